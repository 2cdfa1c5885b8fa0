package driving

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// ChatService opens conversations about documents.
type ChatService interface {
	// Open returns the controller of the conversation keyed by documentID.
	Open(documentID string) Conversation
}

// Conversation owns the message log of one document conversation.
// The log is only mutated by the conversation; callers read snapshots.
type Conversation interface {
	// Key returns the conversation key (the document ID).
	Key() string

	// LoadHistory replaces the log with the backend's history.
	LoadHistory(ctx context.Context) error

	// Send submits text with the given attachments and consumes the streamed reply.
	// It blocks until the exchange reaches a terminal state. The user turn and an
	// empty assistant placeholder are visible in the log before any network call.
	Send(ctx context.Context, text string, attachments []domain.AttachmentRef) (domain.ExchangeResult, error)

	// Messages returns an ordered snapshot of the log.
	Messages() []domain.Message

	// Subscribe returns a channel signalled after every log change and a
	// function that cancels the subscription and closes the channel.
	Subscribe() (<-chan struct{}, func())

	// InFlight returns the number of exchanges not yet terminal.
	InFlight() int

	// Close cancels in-flight exchanges. Further sends fail.
	Close() error
}
