package documents

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// MockDocumentService implements driving.DocumentService for testing.
type MockDocumentService struct {
	mu   sync.Mutex
	docs []domain.Document
	subs []chan struct{}

	RefreshFunc func(ctx context.Context) error
	RemoveFunc  func(ctx context.Context, id string) error
	UploadFunc  func(ctx context.Context, path string, progress func(int)) (*domain.Document, error)

	unsubscribed bool
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

func (m *MockDocumentService) Download(context.Context, string, io.Writer) error { return nil }

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
	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if !m.unsubscribed {
			m.unsubscribed = true
			close(ch)
		}
	}
}

func (m *MockDocumentService) Wait(context.Context) error { return nil }

func (m *MockDocumentService) Close() error { return nil }

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

var _ driving.DocumentService = (*MockDocumentService)(nil)

func sampleDocs() []domain.Document {
	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	return []domain.Document{
		{ID: "d1", FileName: "report.pdf", Status: domain.DocumentProcessed, CreatedAt: created},
		{ID: "d2", FileName: "notes.txt", Status: domain.DocumentProcessing, CreatedAt: created},
		{ID: "d3", FileName: "broken.pdf", Status: domain.DocumentFailed, ProcessingError: "parse error"},
	}
}

func newView(t *testing.T, svc *MockDocumentService) *View {
	t.Helper()
	v := NewView(styles.DefaultStyles(), svc)
	v.SetDimensions(100, 30)
	return v
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewView(t *testing.T) {
	v := NewView(nil, nil)

	require.NotNil(t, v)
	assert.NotNil(t, v.styles)
	assert.Empty(t, v.Documents())
	assert.Nil(t, v.SelectedDocument())
	assert.Nil(t, v.Init())
}

func TestView_Init_SubscribesAndRefreshes(t *testing.T) {
	refreshed := false
	svc := &MockDocumentService{
		docs: sampleDocs(),
		RefreshFunc: func(context.Context) error {
			refreshed = true
			return nil
		},
	}
	v := newView(t, svc)

	cmd := v.Init()
	require.NotNil(t, cmd)
	assert.True(t, v.loading)
	require.Len(t, svc.subs, 1)

	msg := v.refresh()()
	assert.True(t, refreshed)
	v, _ = v.Update(msg)

	assert.False(t, v.loading)
	assert.Len(t, v.Documents(), 3)
	assert.NoError(t, v.Err())
}

func TestView_RefreshError(t *testing.T) {
	svc := &MockDocumentService{
		RefreshFunc: func(context.Context) error { return errors.New("offline") },
	}
	v := newView(t, svc)
	v.Init()

	v, _ = v.Update(v.refresh()())

	require.Error(t, v.Err())
	assert.Contains(t, v.View(), "offline")
}

func TestView_ListenDeliversChanges(t *testing.T) {
	svc := &MockDocumentService{}
	v := newView(t, svc)
	v.Init()

	svc.Add(domain.Document{ID: "d9", FileName: "new.txt", Status: domain.DocumentProcessing})

	msg := v.listen()()
	assert.Equal(t, messages.DocumentsChanged{}, msg)

	v, cmd := v.Update(msg)
	assert.NotNil(t, cmd, "listening continues after a change")
	require.Len(t, v.Documents(), 1)
	assert.Equal(t, "d9", v.Documents()[0].ID)
}

func TestView_ListenStopsAfterClose(t *testing.T) {
	svc := &MockDocumentService{}
	v := newView(t, svc)
	v.Init()
	cmd := v.listen()

	v.Close()

	assert.Nil(t, cmd())
	assert.True(t, svc.unsubscribed)
}

func TestView_Navigation(t *testing.T) {
	svc := &MockDocumentService{docs: sampleDocs()}
	v := newView(t, svc)
	v.sync()

	v, _ = v.Update(key("down"))
	assert.Equal(t, 1, v.SelectedIndex())
	v, _ = v.Update(key("j"))
	assert.Equal(t, 2, v.SelectedIndex())
	v, _ = v.Update(key("down"))
	assert.Equal(t, 2, v.SelectedIndex(), "stops at the last document")
	v, _ = v.Update(key("k"))
	assert.Equal(t, 1, v.SelectedIndex())
	v, _ = v.Update(key("up"))
	v, _ = v.Update(key("up"))
	assert.Equal(t, 0, v.SelectedIndex())
}

func TestView_SelectionClampedWhenDocumentsShrink(t *testing.T) {
	svc := &MockDocumentService{docs: sampleDocs()}
	v := newView(t, svc)
	v.sync()
	v.selected = 2

	svc.mu.Lock()
	svc.docs = svc.docs[:1]
	svc.mu.Unlock()
	v, _ = v.Update(messages.DocumentsChanged{})

	assert.Equal(t, 0, v.SelectedIndex())
}

func TestView_EnterOpensChatForProcessedDocument(t *testing.T) {
	svc := &MockDocumentService{docs: sampleDocs()}
	v := newView(t, svc)
	v.sync()

	_, cmd := v.Update(key("enter"))
	require.NotNil(t, cmd)

	msg, ok := cmd().(messages.ChatOpened)
	require.True(t, ok)
	assert.Equal(t, "d1", msg.Document.ID)
}

func TestView_EnterRejectsUnprocessedDocuments(t *testing.T) {
	tests := []struct {
		name     string
		selected int
		want     string
	}{
		{name: "processing", selected: 1, want: "still processing"},
		{name: "failed", selected: 2, want: "parse error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockDocumentService{docs: sampleDocs()}
			v := newView(t, svc)
			v.sync()
			v.selected = tt.selected

			v, cmd := v.Update(key("enter"))

			assert.Nil(t, cmd)
			require.Error(t, v.Err())
			assert.Contains(t, v.Err().Error(), tt.want)
		})
	}
}

func TestView_Upload(t *testing.T) {
	release := make(chan struct{})
	svc := &MockDocumentService{
		UploadFunc: func(_ context.Context, path string, progress func(int)) (*domain.Document, error) {
			progress(40)
			<-release
			progress(100)
			return &domain.Document{ID: "up", FileName: "doc.txt", Status: domain.DocumentProcessing}, nil
		},
	}
	v := newView(t, svc)

	v, _ = v.Update(key("u"))
	assert.Equal(t, modeUpload, v.mode)
	assert.Contains(t, v.View(), "Upload file")

	v.pathInput.SetValue("/tmp/doc.txt")
	v, cmd := v.Update(key("enter"))
	require.NotNil(t, cmd)
	assert.Equal(t, modeList, v.mode)
	assert.Equal(t, "Uploading doc.txt 0%", v.UploadStatus())

	done := make(chan tea.Msg, 1)
	go func() { done <- v.upload("/tmp/doc.txt")() }()

	assert.Eventually(t, func() bool {
		return v.UploadStatus() == "Uploading doc.txt 40%"
	}, time.Second, 10*time.Millisecond)

	_, tickCmd := v.Update(messages.UploadTick{})
	assert.NotNil(t, tickCmd, "ticks continue while uploading")

	close(release)
	msg := <-done
	uploaded, ok := msg.(messages.DocumentUploaded)
	require.True(t, ok)
	require.NoError(t, uploaded.Err)

	v, _ = v.Update(uploaded)
	assert.Empty(t, v.UploadStatus())

	_, tickCmd = v.Update(messages.UploadTick{})
	assert.Nil(t, tickCmd, "ticks stop once uploads finish")
}

func TestView_UploadError(t *testing.T) {
	v := newView(t, &MockDocumentService{})
	v.uploads["/tmp/big.pdf"] = 10

	v, _ = v.Update(messages.DocumentUploaded{Path: "/tmp/big.pdf", Err: errors.New("file too large")})

	require.Error(t, v.Err())
	assert.Equal(t, "upload big.pdf: file too large", v.Err().Error())
	assert.Empty(t, v.UploadStatus())
}

func TestView_UploadCancelAndEmptyPath(t *testing.T) {
	v := newView(t, &MockDocumentService{})

	v, _ = v.Update(key("u"))
	v, cmd := v.Update(key("esc"))
	assert.Nil(t, cmd)
	assert.Equal(t, modeList, v.mode)

	v, _ = v.Update(key("u"))
	v.pathInput.SetValue("   ")
	v, cmd = v.Update(key("enter"))
	assert.Nil(t, cmd)
	assert.Empty(t, v.UploadStatus())
}

func TestView_DeleteConfirmed(t *testing.T) {
	var removed string
	svc := &MockDocumentService{
		docs: sampleDocs(),
		RemoveFunc: func(_ context.Context, id string) error {
			removed = id
			return nil
		},
	}
	v := newView(t, svc)
	v.sync()
	v.selected = 1

	v, _ = v.Update(key("d"))
	assert.Equal(t, modeConfirmDelete, v.mode)
	assert.Contains(t, v.View(), "Delete notes.txt?")

	v, cmd := v.Update(key("y"))
	require.NotNil(t, cmd)
	assert.Equal(t, modeList, v.mode)

	msg, ok := cmd().(messages.DocumentRemoved)
	require.True(t, ok)
	assert.Equal(t, "d2", msg.DocumentID)
	assert.Equal(t, "d2", removed)
}

func TestView_DeleteDeclined(t *testing.T) {
	svc := &MockDocumentService{
		docs: sampleDocs(),
		RemoveFunc: func(context.Context, string) error {
			t.Fatal("remove should not be called")
			return nil
		},
	}
	v := newView(t, svc)
	v.sync()

	v, _ = v.Update(key("d"))
	v, cmd := v.Update(key("n"))

	assert.Nil(t, cmd)
	assert.Equal(t, modeList, v.mode)
}

func TestView_DeleteError(t *testing.T) {
	v := newView(t, &MockDocumentService{})

	v, _ = v.Update(messages.DocumentRemoved{DocumentID: "d1", Err: errors.New("forbidden")})

	require.Error(t, v.Err())
}

func TestView_KeysEmitNavigationMessages(t *testing.T) {
	v := newView(t, &MockDocumentService{})

	_, cmd := v.Update(key("?"))
	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewHelp}, cmd())

	_, cmd = v.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, messages.Quit{}, cmd())
}

func TestView_Render(t *testing.T) {
	svc := &MockDocumentService{docs: sampleDocs()}
	v := newView(t, svc)
	v.sync()
	v.selected = 2

	out := v.View()

	assert.Contains(t, out, "Documents (3)")
	assert.Contains(t, out, "report.pdf")
	assert.Contains(t, out, "processed")
	assert.Contains(t, out, "processing")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "parse error")
	assert.Contains(t, out, "[u] upload")
}

func TestView_RenderEmpty(t *testing.T) {
	v := newView(t, &MockDocumentService{})

	assert.Contains(t, v.View(), "No documents yet")

	v.loading = true
	assert.Contains(t, v.View(), "Loading documents...")
}

func TestView_WithContext(t *testing.T) {
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "v")
	var got context.Context
	svc := &MockDocumentService{
		RefreshFunc: func(ctx context.Context) error {
			got = ctx
			return nil
		},
	}
	v := newView(t, svc).WithContext(ctx)

	v.refresh()()

	assert.Equal(t, "v", got.Value(ctxKey{}))
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	assert.Equal(t, "/home/tester/doc.pdf", expandHome("~/doc.pdf"))
	assert.Equal(t, "/tmp/doc.pdf", expandHome("/tmp/doc.pdf"))
}
