package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// MockDocumentService implements driving.DocumentService for CLI tests.
type MockDocumentService struct {
	mu   sync.Mutex
	docs []domain.Document

	RefreshFunc  func(ctx context.Context) error
	RemoveFunc   func(ctx context.Context, id string) error
	UploadFunc   func(ctx context.Context, path string, progress func(int)) (*domain.Document, error)
	DownloadFunc func(ctx context.Context, id string, w io.Writer) error
	WaitFunc     func(ctx context.Context) error

	subs []chan struct{}
}

func (m *MockDocumentService) Refresh(ctx context.Context) error {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx)
	}
	return nil
}

func (m *MockDocumentService) Add(doc domain.Document) {
	m.mu.Lock()
	m.docs = append([]domain.Document{doc}, m.docs...)
	m.mu.Unlock()
	m.signal()
}

func (m *MockDocumentService) Remove(ctx context.Context, id string) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, id)
	}
	return nil
}

func (m *MockDocumentService) Upload(ctx context.Context, path string, progress func(int)) (*domain.Document, error) {
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, path, progress)
	}
	return &domain.Document{ID: "new", FileName: path, Status: domain.DocumentProcessing}, nil
}

func (m *MockDocumentService) Download(ctx context.Context, id string, w io.Writer) error {
	if m.DownloadFunc != nil {
		return m.DownloadFunc(ctx, id, w)
	}
	return nil
}

func (m *MockDocumentService) Documents() []domain.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Document(nil), m.docs...)
}

func (m *MockDocumentService) Get(id string) (domain.Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs {
		if d.ID == id {
			return d, true
		}
	}
	return domain.Document{}, false
}

func (m *MockDocumentService) Polling(string) bool { return false }

func (m *MockDocumentService) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch, func() {}
}

func (m *MockDocumentService) Wait(ctx context.Context) error {
	if m.WaitFunc != nil {
		return m.WaitFunc(ctx)
	}
	return nil
}

func (m *MockDocumentService) Close() error { return nil }

// SetStatus changes a document status and signals subscribers.
func (m *MockDocumentService) SetStatus(id string, status domain.DocumentStatus) {
	m.mu.Lock()
	for i := range m.docs {
		if m.docs[i].ID == id {
			m.docs[i].Status = status
		}
	}
	m.mu.Unlock()
	m.signal()
}

func (m *MockDocumentService) signal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// MockChatService implements driving.ChatService for CLI tests.
type MockChatService struct {
	OpenFunc func(documentID string) driving.Conversation
}

func (m *MockChatService) Open(documentID string) driving.Conversation {
	return m.OpenFunc(documentID)
}

// MockConversation implements driving.Conversation for CLI tests.
// SendFunc may call Publish to simulate log changes.
type MockConversation struct {
	mu       sync.Mutex
	key      string
	messages []domain.Message
	subs     []chan struct{}
	closed   bool

	LoadHistoryFunc func(ctx context.Context) error
	SendFunc        func(ctx context.Context, text string, attachments []domain.AttachmentRef) (domain.ExchangeResult, error)
}

func (m *MockConversation) Key() string { return m.key }

func (m *MockConversation) LoadHistory(ctx context.Context) error {
	if m.LoadHistoryFunc != nil {
		return m.LoadHistoryFunc(ctx)
	}
	return nil
}

func (m *MockConversation) Send(
	ctx context.Context, text string, attachments []domain.AttachmentRef,
) (domain.ExchangeResult, error) {
	return m.SendFunc(ctx, text, attachments)
}

func (m *MockConversation) Messages() []domain.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Message(nil), m.messages...)
}

func (m *MockConversation) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch, func() {}
}

func (m *MockConversation) InFlight() int { return 0 }

func (m *MockConversation) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Publish replaces the log and signals subscribers.
func (m *MockConversation) Publish(messages ...domain.Message) {
	m.mu.Lock()
	m.messages = messages
	subs := m.subs
	m.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// MockSettingsService implements driving.SettingsService for CLI tests.
type MockSettingsService struct {
	Settings domain.AppSettings
	SetFunc  func(key, value string) error
	set      map[string]string
}

func (m *MockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.Settings
	return &s, nil
}

func (m *MockSettingsService) Save(settings *domain.AppSettings) error {
	m.Settings = *settings
	return nil
}

func (m *MockSettingsService) Set(key, value string) error {
	if m.SetFunc != nil {
		return m.SetFunc(key, value)
	}
	if m.set == nil {
		m.set = make(map[string]string)
	}
	m.set[key] = value
	return nil
}

func (m *MockSettingsService) Validate() error { return nil }

func (m *MockSettingsService) Keys() []string {
	return []string{"api.base_url", "poll.interval"}
}

func (m *MockSettingsService) ConfigPath() string { return "/tmp/docchat/config.toml" }

// MockAuthService implements driving.AuthService for CLI tests.
type MockAuthService struct {
	LoginFunc  func(token string) (*domain.Identity, error)
	StatusFunc func(ctx context.Context) (*domain.Identity, error)
	loggedOut  bool
}

func (m *MockAuthService) Login(token string) (*domain.Identity, error) {
	return m.LoginFunc(token)
}

func (m *MockAuthService) Logout() error {
	m.loggedOut = true
	return nil
}

func (m *MockAuthService) Status(ctx context.Context) (*domain.Identity, error) {
	return m.StatusFunc(ctx)
}

// install replaces the package services for the duration of the test.
func install(t *testing.T, s *Services) {
	t.Helper()
	prev := &Services{
		Chat:      chatService,
		Documents: documentService,
		Settings:  settingsService,
		Auth:      authService,
		Notifier:  notifier,
		Shutdown:  shutdown,
	}
	prevBootstrap := bootstrap
	bootstrap = nil
	SetServices(s)
	t.Cleanup(func() {
		SetServices(prev)
		bootstrap = prevBootstrap
	})
}

// execute runs the root command with args and returns combined output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	docsJSON, docsOutput, uploadWait, uploadConcurrency = false, "", false, 0
	chatAttach = nil
	authTokenStdin = false
	versionShort = false
	opts = Options{}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func sampleDocs() []domain.Document {
	return []domain.Document{
		{ID: "d1", FileName: "report.pdf", Status: domain.DocumentProcessed},
		{ID: "d2", FileName: "notes.txt", Status: domain.DocumentProcessing},
		{ID: "d3", FileName: "broken.pdf", Status: domain.DocumentFailed, ProcessingError: "parse error"},
	}
}
