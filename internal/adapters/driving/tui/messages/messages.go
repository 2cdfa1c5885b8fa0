// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/docchat/internal/core/domain"
)

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewDocuments lists documents with their processing status.
	ViewDocuments ViewType = iota
	// ViewChat is the conversation about one document.
	ViewChat
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewDocuments:
		return "documents"
	case ViewChat:
		return "chat"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// DocumentsRefreshed signals the document list was fetched.
type DocumentsRefreshed struct {
	Err error
}

// DocumentsChanged signals the local document collection changed.
type DocumentsChanged struct{}

// UploadStarted signals an upload began.
type UploadStarted struct {
	Path string
}

// UploadTick asks the documents view to redraw upload progress.
type UploadTick struct{}

// DocumentUploaded signals an upload finished.
type DocumentUploaded struct {
	Path     string
	Document *domain.Document
	Err      error
}

// DocumentRemoved signals a delete finished.
type DocumentRemoved struct {
	DocumentID string
	Err        error
}

// ChatOpened asks the app to open the conversation about a document.
type ChatOpened struct {
	Document domain.Document
}

// HistoryLoaded signals a conversation's history was fetched. Seq identifies
// the opening of the conversation the message was produced for, as do the
// Seq fields of ConversationChanged and ExchangeFinished.
type HistoryLoaded struct {
	DocumentID string
	Seq        int
	Err        error
}

// ConversationChanged signals the message log of a conversation changed.
type ConversationChanged struct {
	DocumentID string
	Seq        int
}

// ExchangeFinished signals a sent message reached a terminal state.
type ExchangeFinished struct {
	DocumentID string
	Seq        int
	Result     domain.ExchangeResult
	Err        error
}

// NotificationReceived carries a service notification to the status bar.
type NotificationReceived struct {
	Notification domain.Notification
}

// AuthChecked carries the result of the startup credential check.
type AuthChecked struct {
	Identity *domain.Identity
	Err      error
}
