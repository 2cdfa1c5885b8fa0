package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// ChatRequest is the payload of a chat send.
type ChatRequest struct {
	// DocumentID is the conversation key.
	DocumentID string

	// Message is the user's text.
	Message string

	// AttachedDocuments are IDs of documents supplied as context.
	AttachedDocuments []string
}

// FrameStream is a cancellable, ordered sequence of response frames.
// Implementations must release the underlying transport exactly once,
// whichever way consumption ends.
type FrameStream interface {
	// Next returns the next frame in arrival order.
	// Returns io.EOF after the terminal marker or at natural stream end.
	Next(ctx context.Context) (domain.Frame, error)

	// Close releases the underlying reader. Safe to call more than once.
	Close() error
}

// ChatBackend is the remote chat endpoint.
type ChatBackend interface {
	// History returns the messages of a conversation in order.
	History(ctx context.Context, documentID string) ([]domain.Message, error)

	// SendMessage opens a streamed reply.
	// A non-success response is returned as an error before any frame is read.
	SendMessage(ctx context.Context, req ChatRequest) (FrameStream, error)
}

// UploadFile is a local file to upload.
type UploadFile struct {
	// Name is the file name sent to the backend.
	Name string

	// ContentType is the media type of the file part; the backend only
	// accepts application/pdf and text/plain.
	ContentType string

	// Content is the file body.
	Content io.Reader
}

// DocumentBackend is the remote document endpoint.
type DocumentBackend interface {
	// ListDocuments returns the caller's documents, newest first.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// DocumentStatus re-fetches one document's authoritative state.
	DocumentStatus(ctx context.Context, documentID string) (*domain.Document, error)

	// UploadDocument submits a file; progress is called as bytes are sent.
	UploadDocument(ctx context.Context, file UploadFile, progress func(domain.UploadProgress)) (*domain.Document, error)

	// DownloadDocument writes the original file to w.
	DownloadDocument(ctx context.Context, documentID string, w io.Writer) error

	// DeleteDocument removes a document.
	DeleteDocument(ctx context.Context, documentID string) error
}
