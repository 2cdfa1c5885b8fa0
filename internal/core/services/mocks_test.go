package services

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// --- Mock implementations shared by service tests ---

// mockChatBackend implements driven.ChatBackend for testing.
type mockChatBackend struct {
	HistoryFunc     func(ctx context.Context, documentID string) ([]domain.Message, error)
	SendMessageFunc func(ctx context.Context, req driven.ChatRequest) (driven.FrameStream, error)
}

func (m *mockChatBackend) History(ctx context.Context, documentID string) ([]domain.Message, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc(ctx, documentID)
	}
	return nil, nil
}

func (m *mockChatBackend) SendMessage(ctx context.Context, req driven.ChatRequest) (driven.FrameStream, error) {
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(ctx, req)
	}
	return &mockFrameStream{}, nil
}

// mockFrameStream yields frames, then err (or io.EOF), or blocks until cancelled.
type mockFrameStream struct {
	mu     sync.Mutex
	frames []domain.Frame
	err    error
	block  bool
	onNext func()
	closes int
}

func (s *mockFrameStream) Next(ctx context.Context) (domain.Frame, error) {
	if s.onNext != nil {
		s.onNext()
	}
	s.mu.Lock()
	if len(s.frames) > 0 {
		f := s.frames[0]
		s.frames = s.frames[1:]
		s.mu.Unlock()
		return f, nil
	}
	s.mu.Unlock()

	if s.block {
		<-ctx.Done()
		return domain.Frame{}, ctx.Err()
	}
	if s.err != nil {
		return domain.Frame{}, s.err
	}
	return domain.Frame{}, io.EOF
}

func (s *mockFrameStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *mockFrameStream) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// mockDocumentBackend implements driven.DocumentBackend for testing.
type mockDocumentBackend struct {
	ListDocumentsFunc    func(ctx context.Context) ([]domain.Document, error)
	DocumentStatusFunc   func(ctx context.Context, documentID string) (*domain.Document, error)
	UploadDocumentFunc   func(ctx context.Context, file driven.UploadFile, progress func(domain.UploadProgress)) (*domain.Document, error)
	DownloadDocumentFunc func(ctx context.Context, documentID string, w io.Writer) error
	DeleteDocumentFunc   func(ctx context.Context, documentID string) error
}

func (m *mockDocumentBackend) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	if m.ListDocumentsFunc != nil {
		return m.ListDocumentsFunc(ctx)
	}
	return nil, nil
}

func (m *mockDocumentBackend) DocumentStatus(ctx context.Context, documentID string) (*domain.Document, error) {
	if m.DocumentStatusFunc != nil {
		return m.DocumentStatusFunc(ctx, documentID)
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocumentBackend) UploadDocument(
	ctx context.Context,
	file driven.UploadFile,
	progress func(domain.UploadProgress),
) (*domain.Document, error) {
	if m.UploadDocumentFunc != nil {
		return m.UploadDocumentFunc(ctx, file, progress)
	}
	return nil, domain.ErrNotImplemented
}

func (m *mockDocumentBackend) DownloadDocument(ctx context.Context, documentID string, w io.Writer) error {
	if m.DownloadDocumentFunc != nil {
		return m.DownloadDocumentFunc(ctx, documentID, w)
	}
	return nil
}

func (m *mockDocumentBackend) DeleteDocument(ctx context.Context, documentID string) error {
	if m.DeleteDocumentFunc != nil {
		return m.DeleteDocumentFunc(ctx, documentID)
	}
	return nil
}

// recordingNotifier collects notifications.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (n *recordingNotifier) Notify(note domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
}

func (n *recordingNotifier) all() []domain.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.Notification, len(n.sent))
	copy(out, n.sent)
	return out
}

// sequentialIDs returns a generator of "id-1", "id-2", ...
func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

// mockTokenProvider implements driven.TokenProvider for testing.
type mockTokenProvider struct {
	token string
	err   error
}

func (m *mockTokenProvider) GetToken(context.Context) (string, error) { return m.token, m.err }
func (m *mockTokenProvider) Kind() domain.TokenSourceKind             { return domain.TokenSourceStatic }
func (m *mockTokenProvider) IsAuthenticated() bool                    { return m.token != "" }

// mockTokenInspector implements driven.TokenInspector for testing.
type mockTokenInspector struct {
	InspectFunc func(token string) (*domain.Identity, error)
}

func (m *mockTokenInspector) Inspect(token string) (*domain.Identity, error) {
	if m.InspectFunc != nil {
		return m.InspectFunc(token)
	}
	return &domain.Identity{Subject: "user-1"}, nil
}
