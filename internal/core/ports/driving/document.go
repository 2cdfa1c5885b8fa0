package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// DocumentService owns the local document collection and keeps processing
// documents up to date by polling the backend.
type DocumentService interface {
	// Refresh replaces the collection with the backend's list.
	Refresh(ctx context.Context) error

	// Add inserts a document at the front of the collection.
	Add(doc domain.Document)

	// Remove deletes a document. The local copy is removed first; on backend
	// failure the collection is refreshed.
	Remove(ctx context.Context, documentID string) error

	// Upload sends a local file and adds the resulting document.
	Upload(ctx context.Context, path string, progress func(percent int)) (*domain.Document, error)

	// Download writes the original file of a document to w.
	Download(ctx context.Context, documentID string, w io.Writer) error

	// Documents returns an ordered snapshot of the collection.
	Documents() []domain.Document

	// Get returns one document from the collection.
	Get(documentID string) (domain.Document, bool)

	// Polling reports whether a status poll is scheduled or in flight for the ID.
	Polling(documentID string) bool

	// Subscribe returns a channel signalled after every collection change and a
	// function that cancels the subscription and closes the channel.
	Subscribe() (<-chan struct{}, func())

	// Wait blocks until no poll is scheduled or in flight, or ctx is done.
	Wait(ctx context.Context) error

	// Close stops all polling.
	Close() error
}
