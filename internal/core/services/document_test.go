package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

var fastPoll = domain.PollSettings{Interval: time.Millisecond}

func waitPolls(t *testing.T, svc *DocumentService) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, svc.Wait(ctx))
}

// statusSequence answers status fetches for one document from a fixed script.
type statusSequence struct {
	mu       sync.Mutex
	doc      domain.Document
	statuses []domain.DocumentStatus
	calls    int
}

func (s *statusSequence) fetch(_ context.Context, id string) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	status := s.statuses[len(s.statuses)-1]
	if s.calls <= len(s.statuses) {
		status = s.statuses[s.calls-1]
	}
	doc := s.doc
	doc.ID = id
	doc.Status = status
	return &doc, nil
}

func (s *statusSequence) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestDocumentService_Refresh(t *testing.T) {
	docs := []domain.Document{
		{ID: "d1", FileName: "a.pdf", Status: domain.DocumentProcessed},
		{ID: "d2", FileName: "b.txt", Status: domain.DocumentFailed},
	}
	svc := NewDocumentService(&mockDocumentBackend{
		ListDocumentsFunc: func(context.Context) ([]domain.Document, error) { return docs, nil },
	}, nil, fastPoll)
	defer svc.Close()

	require.NoError(t, svc.Refresh(context.Background()))

	assert.Equal(t, docs, svc.Documents())
	assert.False(t, svc.Polling("d1"))
	assert.False(t, svc.Polling("d2"))
}

func TestDocumentService_Refresh_Error(t *testing.T) {
	svc := NewDocumentService(&mockDocumentBackend{
		ListDocumentsFunc: func(context.Context) ([]domain.Document, error) {
			return nil, domain.ErrUnauthorized
		},
	}, nil, fastPoll)
	defer svc.Close()

	err := svc.Refresh(context.Background())

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestDocumentService_PollsUntilTerminal(t *testing.T) {
	seq := &statusSequence{
		doc:      domain.Document{FileName: "a.pdf"},
		statuses: []domain.DocumentStatus{domain.DocumentProcessing, domain.DocumentProcessing, domain.DocumentProcessed},
	}
	notifier := &recordingNotifier{}
	backend := &mockDocumentBackend{
		ListDocumentsFunc: func(context.Context) ([]domain.Document, error) {
			return []domain.Document{{ID: "d1", FileName: "a.pdf", Status: domain.DocumentProcessing}}, nil
		},
		DocumentStatusFunc: seq.fetch,
	}
	svc := NewDocumentService(backend, notifier, fastPoll)
	defer svc.Close()

	require.NoError(t, svc.Refresh(context.Background()))
	assert.True(t, svc.Polling("d1"))
	waitPolls(t, svc)

	assert.Equal(t, 3, seq.count())
	assert.False(t, svc.Polling("d1"))

	doc, ok := svc.Get("d1")
	require.True(t, ok)
	assert.Equal(t, domain.DocumentProcessed, doc.Status)
	assert.Empty(t, notifier.all())

	// The server still reporting processing does not restart a resolved poll.
	require.NoError(t, svc.Refresh(context.Background()))
	waitPolls(t, svc)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 3, seq.count())
}

func TestDocumentService_SinglePollerPerDocument(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	backend := &mockDocumentBackend{
		DocumentStatusFunc: func(_ context.Context, id string) (*domain.Document, error) {
			calls.Add(1)
			<-release
			return &domain.Document{ID: id, Status: domain.DocumentProcessed}, nil
		},
	}
	svc := NewDocumentService(backend, nil, fastPoll)
	defer svc.Close()

	doc := domain.Document{ID: "d1", FileName: "a.pdf", Status: domain.DocumentProcessing}
	svc.Add(doc)
	svc.Add(doc)
	svc.Add(doc)
	close(release)
	waitPolls(t, svc)

	assert.Equal(t, int32(1), calls.Load())
	assert.Len(t, svc.Documents(), 1)
}

func TestDocumentService_FailedProcessingNotifiesOnce(t *testing.T) {
	seq := &statusSequence{
		doc:      domain.Document{FileName: "b.txt", ProcessingError: "unreadable"},
		statuses: []domain.DocumentStatus{domain.DocumentFailed},
	}
	notifier := &recordingNotifier{}
	svc := NewDocumentService(&mockDocumentBackend{DocumentStatusFunc: seq.fetch}, notifier, fastPoll)
	defer svc.Close()

	svc.Add(domain.Document{ID: "d2", FileName: "b.txt", Status: domain.DocumentProcessing})
	waitPolls(t, svc)

	doc, _ := svc.Get("d2")
	assert.Equal(t, domain.DocumentFailed, doc.Status)
	assert.Equal(t, "unreadable", doc.ProcessingError)
	assert.Equal(t, []domain.Notification{
		{Level: domain.NotificationError, Message: "Processing failed for document: b.txt"},
	}, notifier.all())
	assert.Equal(t, 1, seq.count())
	assert.False(t, svc.Polling("d2"))
}

func TestDocumentService_FetchErrorForcesFailed(t *testing.T) {
	var calls atomic.Int32
	notifier := &recordingNotifier{}
	svc := NewDocumentService(&mockDocumentBackend{
		DocumentStatusFunc: func(context.Context, string) (*domain.Document, error) {
			calls.Add(1)
			return nil, errors.New("connection refused")
		},
	}, notifier, fastPoll)
	defer svc.Close()

	svc.Add(domain.Document{ID: "d3", FileName: "c.pdf", Status: domain.DocumentProcessing})
	waitPolls(t, svc)

	doc, _ := svc.Get("d3")
	assert.Equal(t, domain.DocumentFailed, doc.Status)
	assert.Equal(t, []domain.Notification{
		{Level: domain.NotificationError, Message: "Could not update status for c.pdf"},
	}, notifier.all())
	assert.Equal(t, int32(1), calls.Load())

	svc.Add(domain.Document{ID: "d3", FileName: "c.pdf", Status: domain.DocumentProcessing})
	waitPolls(t, svc)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDocumentService_MaxPollDuration(t *testing.T) {
	notifier := &recordingNotifier{}
	svc := NewDocumentService(&mockDocumentBackend{
		DocumentStatusFunc: func(_ context.Context, id string) (*domain.Document, error) {
			return &domain.Document{ID: id, FileName: "slow.pdf", Status: domain.DocumentProcessing}, nil
		},
	}, notifier, domain.PollSettings{Interval: time.Millisecond, MaxDuration: 5 * time.Millisecond})
	defer svc.Close()

	svc.Add(domain.Document{ID: "d4", FileName: "slow.pdf", Status: domain.DocumentProcessing})
	waitPolls(t, svc)

	doc, _ := svc.Get("d4")
	assert.Equal(t, domain.DocumentFailed, doc.Status)
	assert.Equal(t, domain.ErrPollTimeout.Error(), doc.ProcessingError)
	assert.Len(t, notifier.all(), 1)
}

func TestDocumentService_CloseStopsPolling(t *testing.T) {
	var calls atomic.Int32
	notifier := &recordingNotifier{}
	svc := NewDocumentService(&mockDocumentBackend{
		DocumentStatusFunc: func(_ context.Context, id string) (*domain.Document, error) {
			calls.Add(1)
			return &domain.Document{ID: id, Status: domain.DocumentProcessing}, nil
		},
	}, notifier, domain.PollSettings{Interval: time.Hour})

	svc.Add(domain.Document{ID: "d5", FileName: "e.pdf", Status: domain.DocumentProcessing})
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, svc.Close())
	waitPolls(t, svc)

	assert.False(t, svc.Polling("d5"))
	assert.Empty(t, notifier.all())

	svc.Add(domain.Document{ID: "d6", Status: domain.DocumentProcessing})
	assert.False(t, svc.Polling("d6"))
}

func TestDocumentService_Remove(t *testing.T) {
	var deleted string
	svc := NewDocumentService(&mockDocumentBackend{
		DeleteDocumentFunc: func(_ context.Context, id string) error {
			deleted = id
			return nil
		},
	}, nil, fastPoll)
	defer svc.Close()
	svc.Add(domain.Document{ID: "d1", Status: domain.DocumentProcessed})
	svc.Add(domain.Document{ID: "d2", Status: domain.DocumentProcessed})

	require.NoError(t, svc.Remove(context.Background(), "d1"))

	assert.Equal(t, "d1", deleted)
	assert.Equal(t, []string{"d2"}, docKeys(svc.Documents()))
}

func TestDocumentService_Remove_FailureRefreshes(t *testing.T) {
	server := []domain.Document{
		{ID: "d1", Status: domain.DocumentProcessed},
		{ID: "d2", Status: domain.DocumentProcessed},
	}
	var removedSeen []string
	var svc *DocumentService
	svc = NewDocumentService(&mockDocumentBackend{
		ListDocumentsFunc: func(context.Context) ([]domain.Document, error) { return server, nil },
		DeleteDocumentFunc: func(context.Context, string) error {
			removedSeen = docKeys(svc.Documents())
			return domain.ErrUnauthorized
		},
	}, nil, fastPoll)
	defer svc.Close()
	require.NoError(t, svc.Refresh(context.Background()))

	err := svc.Remove(context.Background(), "d1")

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, []string{"d2"}, removedSeen)
	assert.Equal(t, []string{"d1", "d2"}, docKeys(svc.Documents()))
}

// fetchLog records when status fetches start so tests can tell how many
// loops poll one document.
type fetchLog struct {
	mu     sync.Mutex
	starts []time.Time
}

func (l *fetchLog) fetch(_ context.Context, id string) (*domain.Document, error) {
	l.mu.Lock()
	l.starts = append(l.starts, time.Now())
	l.mu.Unlock()
	return &domain.Document{ID: id, FileName: "a.pdf", Status: domain.DocumentProcessing}, nil
}

func (l *fetchLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.starts)
}

// minGap returns the shortest time between two consecutive fetches.
func (l *fetchLog) minGap() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	gap := time.Duration(1<<63 - 1)
	for i := 1; i < len(l.starts); i++ {
		gap = min(gap, l.starts[i].Sub(l.starts[i-1]))
	}
	return gap
}

func TestDocumentService_Remove_ProcessingStopsPolling(t *testing.T) {
	log := &fetchLog{}
	server := []domain.Document{{ID: "d1", FileName: "a.pdf", Status: domain.DocumentProcessing}}
	svc := NewDocumentService(&mockDocumentBackend{
		ListDocumentsFunc:  func(context.Context) ([]domain.Document, error) { return server, nil },
		DocumentStatusFunc: log.fetch,
	}, nil, domain.PollSettings{Interval: 10 * time.Millisecond})
	defer svc.Close()

	svc.Add(server[0])
	require.Eventually(t, func() bool { return log.count() > 0 }, time.Second, time.Millisecond)

	require.NoError(t, svc.Remove(context.Background(), "d1"))
	waitPolls(t, svc)
	assert.False(t, svc.Polling("d1"))

	// A stale listing that still shows the document does not restart polling.
	require.NoError(t, svc.Refresh(context.Background()))
	fetched := log.count()
	time.Sleep(50 * time.Millisecond)
	assert.False(t, svc.Polling("d1"))
	assert.Equal(t, fetched, log.count())
}

func TestDocumentService_Remove_FailedDeleteKeepsSinglePollLoop(t *testing.T) {
	const interval = 40 * time.Millisecond
	log := &fetchLog{}
	server := []domain.Document{{ID: "d1", FileName: "a.pdf", Status: domain.DocumentProcessing}}
	notifier := &recordingNotifier{}
	svc := NewDocumentService(&mockDocumentBackend{
		ListDocumentsFunc:  func(context.Context) ([]domain.Document, error) { return server, nil },
		DocumentStatusFunc: log.fetch,
		DeleteDocumentFunc: func(context.Context, string) error { return domain.ErrUnauthorized },
	}, notifier, domain.PollSettings{Interval: interval})
	defer svc.Close()

	svc.Add(server[0])
	require.Eventually(t, func() bool { return log.count() > 0 }, time.Second, time.Millisecond)

	err := svc.Remove(context.Background(), "d1")
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, []string{"d1"}, docKeys(svc.Documents()))
	assert.True(t, svc.Polling("d1"))

	require.Eventually(t, func() bool { return log.count() >= 5 }, 2*time.Second, time.Millisecond)

	// One loop waits a full interval between fetches; a second loop would
	// interleave fetches at most half an interval apart.
	assert.GreaterOrEqual(t, log.minGap(), interval*5/8)
	assert.Empty(t, notifier.all())
}

func TestDocumentService_Upload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain text notes\n"), 0o600))

	var gotName, gotType string
	var gotBody []byte
	backend := &mockDocumentBackend{
		UploadDocumentFunc: func(
			_ context.Context,
			file driven.UploadFile,
			progress func(domain.UploadProgress),
		) (*domain.Document, error) {
			gotName = file.Name
			gotType = file.ContentType
			gotBody, _ = io.ReadAll(file.Content)
			progress(domain.UploadProgress{Sent: 0, Total: 10})
			progress(domain.UploadProgress{Sent: 5, Total: 10})
			progress(domain.UploadProgress{Sent: 5, Total: 10})
			progress(domain.UploadProgress{Sent: 10, Total: 10})
			return &domain.Document{ID: "new", FileName: file.Name, Status: domain.DocumentProcessed}, nil
		},
	}
	svc := NewDocumentService(backend, nil, fastPoll)
	defer svc.Close()
	svc.Add(domain.Document{ID: "old", Status: domain.DocumentProcessed})

	var percents []int
	doc, err := svc.Upload(context.Background(), path, func(p int) { percents = append(percents, p) })

	require.NoError(t, err)
	assert.Equal(t, "new", doc.ID)
	assert.Equal(t, "notes.txt", gotName)
	assert.Equal(t, "text/plain", gotType)
	assert.Equal(t, "plain text notes\n", string(gotBody))
	assert.Equal(t, []int{0, 50, 100}, percents)
	assert.Equal(t, []string{"new", "old"}, docKeys(svc.Documents()))
}

func TestDocumentService_Upload_RejectsUnsupportedType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.png")
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	require.NoError(t, os.WriteFile(path, png, 0o600))

	called := false
	svc := NewDocumentService(&mockDocumentBackend{
		UploadDocumentFunc: func(context.Context, driven.UploadFile, func(domain.UploadProgress)) (*domain.Document, error) {
			called = true
			return nil, nil
		},
	}, nil, fastPoll)
	defer svc.Close()

	_, err := svc.Upload(context.Background(), path, nil)

	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	assert.False(t, called)
}

func TestDocumentService_Upload_RejectsOversizedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.txt")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("a"), MaxUploadSize+1), 0o600))
	svc := NewDocumentService(&mockDocumentBackend{}, nil, fastPoll)
	defer svc.Close()

	_, err := svc.Upload(context.Background(), path, nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDocumentService_Upload_MissingFile(t *testing.T) {
	svc := NewDocumentService(&mockDocumentBackend{}, nil, fastPoll)
	defer svc.Close()

	_, err := svc.Upload(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"), nil)

	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDocumentService_Download(t *testing.T) {
	svc := NewDocumentService(&mockDocumentBackend{
		DownloadDocumentFunc: func(_ context.Context, id string, w io.Writer) error {
			_, err := w.Write([]byte("content of " + id))
			return err
		},
	}, nil, fastPoll)
	defer svc.Close()

	var buf bytes.Buffer
	require.NoError(t, svc.Download(context.Background(), "d1", &buf))

	assert.Equal(t, "content of d1", buf.String())
}

func TestDocumentService_WaitHonoursContext(t *testing.T) {
	svc := NewDocumentService(&mockDocumentBackend{
		DocumentStatusFunc: func(_ context.Context, id string) (*domain.Document, error) {
			return &domain.Document{ID: id, Status: domain.DocumentProcessing}, nil
		},
	}, nil, fastPoll)
	defer svc.Close()

	svc.Add(domain.Document{ID: "d1", Status: domain.DocumentProcessing})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, svc.Wait(ctx), context.DeadlineExceeded)
}

func TestDocumentService_NilBackend(t *testing.T) {
	svc := NewDocumentService(nil, nil, fastPoll)
	defer svc.Close()

	assert.ErrorIs(t, svc.Refresh(context.Background()), domain.ErrNotImplemented)
	assert.ErrorIs(t, svc.Remove(context.Background(), "x"), domain.ErrNotImplemented)
}
