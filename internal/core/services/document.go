package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// uploadTypes are the content types the backend can process.
var uploadTypes = []string{"application/pdf", "text/plain"}

// MaxUploadSize is the largest file the backend accepts.
const MaxUploadSize = 10 << 20

// DocumentService owns the document collection and its status poller.
type DocumentService struct {
	backend  driven.DocumentBackend
	notifier driven.Notifier
	docs     *Collection[domain.Document]
	poller   *poller
}

// NewDocumentService creates a new document service.
func NewDocumentService(
	backend driven.DocumentBackend,
	notifier driven.Notifier,
	poll domain.PollSettings,
) *DocumentService {
	docs := NewCollection[domain.Document]()
	return &DocumentService{
		backend:  backend,
		notifier: notifier,
		docs:     docs,
		poller:   newPoller(backend, notifier, docs, poll.Interval, poll.MaxDuration),
	}
}

// Refresh replaces the collection with the backend's list.
func (s *DocumentService) Refresh(ctx context.Context) error {
	if s.backend == nil {
		return domain.ErrNotImplemented
	}
	docs, err := s.backend.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	s.docs.Replace(docs)
	s.poller.reconcile(docs)
	return nil
}

// Add inserts a document at the front of the collection.
func (s *DocumentService) Add(doc domain.Document) {
	s.docs.Prepend(doc)
	s.poller.reconcile([]domain.Document{doc})
}

// Remove deletes a document locally, then on the backend.
// A backend failure re-synchronises the collection.
func (s *DocumentService) Remove(ctx context.Context, documentID string) error {
	if s.backend == nil {
		return domain.ErrNotImplemented
	}
	s.docs.Remove(documentID)

	// A running poll loop stays active until the delete succeeds, so a
	// refresh after a failed delete finds the id still owned by that loop.
	if err := s.backend.DeleteDocument(ctx, documentID); err != nil {
		logger.Warn("delete %s failed, refreshing: %v", documentID, err)
		if rerr := s.Refresh(ctx); rerr != nil {
			logger.Warn("refresh after failed delete: %v", rerr)
		}
		return fmt.Errorf("delete document: %w", err)
	}
	s.poller.leave(documentID)
	return nil
}

// Upload checks the file type, sends the file and adds the new document.
func (s *DocumentService) Upload(
	ctx context.Context,
	path string,
	progress func(percent int),
) (*domain.Document, error) {
	if s.backend == nil {
		return nil, domain.ErrNotImplemented
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > MaxUploadSize {
		return nil, fmt.Errorf("%w: %s exceeds the 10MB limit", domain.ErrInvalidInput, filepath.Base(path))
	}

	contentType, err := detectUploadType(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	var onProgress func(domain.UploadProgress)
	if progress != nil {
		last := -1
		onProgress = func(p domain.UploadProgress) {
			if pct := p.Percent(); pct != last {
				last = pct
				progress(pct)
			}
		}
	}

	doc, err := s.backend.UploadDocument(ctx, driven.UploadFile{
		Name:        filepath.Base(path),
		ContentType: contentType,
		Content:     f,
	}, onProgress)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", filepath.Base(path), err)
	}

	logger.Info("uploaded %s as %s", doc.FileName, doc.ID)
	s.Add(*doc)
	return doc, nil
}

// detectUploadType sniffs the file header, rewinds the file and returns
// the matching accepted content type.
func detectUploadType(f io.ReadSeeker) (string, error) {
	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return "", fmt.Errorf("detect file type: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind: %w", err)
	}
	for _, t := range uploadTypes {
		if mt.Is(t) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedType, mt.String())
}

// Download writes the original file of a document to w.
func (s *DocumentService) Download(ctx context.Context, documentID string, w io.Writer) error {
	if s.backend == nil {
		return domain.ErrNotImplemented
	}
	if err := s.backend.DownloadDocument(ctx, documentID, w); err != nil {
		return fmt.Errorf("download document: %w", err)
	}
	return nil
}

// Documents returns an ordered snapshot of the collection.
func (s *DocumentService) Documents() []domain.Document {
	return s.docs.Snapshot()
}

// Get returns one document from the collection.
func (s *DocumentService) Get(documentID string) (domain.Document, bool) {
	return s.docs.Get(documentID)
}

// Polling reports whether a status poll is scheduled or in flight for the ID.
func (s *DocumentService) Polling(documentID string) bool {
	return s.poller.isActive(documentID)
}

// Subscribe returns a channel signalled after every collection change.
func (s *DocumentService) Subscribe() (<-chan struct{}, func()) {
	return s.docs.Subscribe()
}

// Wait blocks until no poll is scheduled or in flight, or ctx is done.
func (s *DocumentService) Wait(ctx context.Context) error {
	return s.poller.wait(ctx)
}

// Close stops all polling.
func (s *DocumentService) Close() error {
	s.poller.stop()
	return nil
}
