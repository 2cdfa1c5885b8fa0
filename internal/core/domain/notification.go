package domain

// NotificationLevel is the severity of a user-visible notification.
type NotificationLevel string

// Notification levels.
const (
	NotificationInfo  NotificationLevel = "info"
	NotificationError NotificationLevel = "error"
)

// Notification is a toast-style message for the user.
type Notification struct {
	Level   NotificationLevel
	Message string
}
