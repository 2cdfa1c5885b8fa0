package driven

import "github.com/custodia-labs/docchat/internal/core/domain"

// Notifier delivers user-visible notifications (toasts, status lines).
type Notifier interface {
	Notify(n domain.Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n domain.Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n domain.Notification) {
	f(n)
}
