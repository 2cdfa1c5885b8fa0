// Package documents provides the documents list view component for the TUI.
package documents

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// uploadTickInterval paces redraws while uploads are running.
const uploadTickInterval = 100 * time.Millisecond

type mode int

const (
	modeList mode = iota
	modeUpload
	modeConfirmDelete
)

// View is the documents list view.
type View struct {
	styles          *styles.Styles
	keymap          *keymap.KeyMap
	documentService driving.DocumentService
	ctx             context.Context

	changes     <-chan struct{}
	unsubscribe func()

	documents    []domain.Document
	selected     int
	scrollOffset int
	width        int
	height       int
	ready        bool
	loading      bool
	err          error
	mode         mode
	pathInput    *input.TextInput

	mu      sync.Mutex
	uploads map[string]int
}

// NewView creates a new documents view.
func NewView(s *styles.Styles, documentService driving.DocumentService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:          s,
		keymap:          keymap.DefaultKeyMap(),
		documentService: documentService,
		ctx:             context.Background(),
		documents:       []domain.Document{},
		pathInput:       input.NewTextInput(s, "Upload file", "path to a .pdf or .txt file"),
		uploads:         make(map[string]int),
	}
}

// WithContext sets the context used for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init subscribes to collection changes and loads the documents.
func (v *View) Init() tea.Cmd {
	if v.documentService == nil {
		return nil
	}
	if v.unsubscribe == nil {
		v.changes, v.unsubscribe = v.documentService.Subscribe()
	}
	v.loading = true
	return tea.Batch(v.refresh(), v.listen())
}

// Close cancels the collection subscription.
func (v *View) Close() {
	if v.unsubscribe != nil {
		v.unsubscribe()
		v.unsubscribe = nil
	}
}

// listen waits for the next collection change.
func (v *View) listen() tea.Cmd {
	ch := v.changes
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return messages.DocumentsChanged{}
	}
}

// refresh returns a command that reloads documents from the backend.
func (v *View) refresh() tea.Cmd {
	svc, ctx := v.documentService, v.ctx
	return func() tea.Msg {
		return messages.DocumentsRefreshed{Err: svc.Refresh(ctx)}
	}
}

// Update handles messages for the documents view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		switch v.mode {
		case modeUpload:
			return v.handleUploadKeyMsg(msg)
		case modeConfirmDelete:
			return v.handleConfirmKeyMsg(msg)
		default:
			return v.handleKeyMsg(msg)
		}

	case messages.DocumentsChanged:
		v.sync()
		return v, v.listen()

	case messages.DocumentsRefreshed:
		v.loading = false
		v.err = msg.Err
		v.sync()
		return v, nil

	case messages.UploadTick:
		if v.uploading() {
			return v, tick()
		}
		return v, nil

	case messages.DocumentUploaded:
		v.mu.Lock()
		delete(v.uploads, msg.Path)
		v.mu.Unlock()
		if msg.Err != nil {
			v.err = fmt.Errorf("upload %s: %w", filepath.Base(msg.Path), msg.Err)
		}
		v.sync()
		return v, nil

	case messages.DocumentRemoved:
		if msg.Err != nil {
			v.err = msg.Err
		}
		v.sync()
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	if v.mode == modeUpload {
		var cmd tea.Cmd
		v.pathInput, cmd = v.pathInput.Update(msg)
		return v, cmd
	}
	return v, nil
}

// handleKeyMsg handles key presses in list mode.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case keymap.Matches(msg.String(), v.keymap.Up):
		if v.selected > 0 {
			v.selected--
			v.adjustScroll()
		}
	case keymap.Matches(msg.String(), v.keymap.Down):
		if v.selected < len(v.documents)-1 {
			v.selected++
			v.adjustScroll()
		}
	case keymap.Matches(msg.String(), v.keymap.Select):
		return v, v.openChat()
	case keymap.Matches(msg.String(), v.keymap.Upload):
		if v.documentService != nil {
			v.mode = modeUpload
			v.pathInput.Reset()
			return v, v.pathInput.Focus()
		}
	case keymap.Matches(msg.String(), v.keymap.Delete):
		if len(v.documents) > 0 {
			v.mode = modeConfirmDelete
		}
	case keymap.Matches(msg.String(), v.keymap.Refresh):
		if v.documentService != nil {
			v.loading = true
			v.err = nil
			return v, v.refresh()
		}
	case keymap.Matches(msg.String(), v.keymap.Help):
		return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewHelp} }
	case keymap.Matches(msg.String(), v.keymap.Quit):
		return v, func() tea.Msg { return messages.Quit{} }
	}

	return v, nil
}

// openChat opens the conversation of the selected document.
// Only processed documents can be chatted about.
func (v *View) openChat() tea.Cmd {
	doc := v.SelectedDocument()
	if doc == nil {
		return nil
	}

	switch doc.Status {
	case domain.DocumentProcessed:
		d := *doc
		return func() tea.Msg { return messages.ChatOpened{Document: d} }
	case domain.DocumentFailed:
		v.err = fmt.Errorf("%s failed processing: %s", doc.FileName, doc.ProcessingError)
	default:
		v.err = fmt.Errorf("%s is still processing", doc.FileName)
	}
	return nil
}

// handleUploadKeyMsg handles key presses while entering a file path.
func (v *View) handleUploadKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		v.mode = modeList
		v.pathInput.Blur()
		return v, nil
	case tea.KeyEnter:
		v.mode = modeList
		v.pathInput.Blur()
		path := expandHome(strings.TrimSpace(v.pathInput.Value()))
		if path == "" {
			return v, nil
		}
		v.err = nil
		v.mu.Lock()
		v.uploads[path] = 0
		v.mu.Unlock()
		return v, tea.Batch(v.upload(path), tick())
	}

	var cmd tea.Cmd
	v.pathInput, cmd = v.pathInput.Update(msg)
	return v, cmd
}

// upload returns a command that uploads path, recording its progress.
func (v *View) upload(path string) tea.Cmd {
	svc, ctx := v.documentService, v.ctx
	return func() tea.Msg {
		doc, err := svc.Upload(ctx, path, func(percent int) {
			v.mu.Lock()
			if _, ok := v.uploads[path]; ok {
				v.uploads[path] = percent
			}
			v.mu.Unlock()
		})
		return messages.DocumentUploaded{Path: path, Document: doc, Err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(uploadTickInterval, func(time.Time) tea.Msg {
		return messages.UploadTick{}
	})
}

// handleConfirmKeyMsg handles the delete confirmation.
func (v *View) handleConfirmKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	v.mode = modeList
	if msg.String() != "y" {
		return v, nil
	}

	doc := v.SelectedDocument()
	if doc == nil {
		return v, nil
	}

	svc, ctx, id := v.documentService, v.ctx, doc.ID
	return v, func() tea.Msg {
		return messages.DocumentRemoved{DocumentID: id, Err: svc.Remove(ctx, id)}
	}
}

// sync copies the service's collection and keeps the selection in range.
func (v *View) sync() {
	if v.documentService == nil {
		return
	}
	v.documents = v.documentService.Documents()
	if v.selected >= len(v.documents) {
		v.selected = max(len(v.documents)-1, 0)
	}
	v.adjustScroll()
}

func (v *View) uploading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.uploads) > 0
}

// UploadStatus summarises running uploads, or returns "" when idle.
func (v *View) UploadStatus() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.uploads) == 0 {
		return ""
	}

	paths := make([]string, 0, len(v.uploads))
	for p := range v.uploads {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	parts := make([]string, 0, len(paths))
	for _, p := range paths {
		parts = append(parts, fmt.Sprintf("%s %d%%", filepath.Base(p), v.uploads[p]))
	}
	return "Uploading " + strings.Join(parts, ", ")
}

// adjustScroll adjusts the scroll offset to keep the selected item visible.
func (v *View) adjustScroll() {
	visibleItems := v.visibleItemCount()
	if v.selected < v.scrollOffset {
		v.scrollOffset = v.selected
	} else if v.selected >= v.scrollOffset+visibleItems {
		v.scrollOffset = v.selected - visibleItems + 1
	}
}

// visibleItemCount returns the number of items that can be displayed.
func (v *View) visibleItemCount() int {
	// Reserve lines for title, prompt, help and the status bar
	reserved := 9
	available := v.height - reserved
	if available < 1 {
		available = 1
	}
	return available
}

// View renders the documents view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render(fmt.Sprintf("Documents (%d)", len(v.documents))))
	b.WriteString("\n\n")

	switch {
	case v.loading && len(v.documents) == 0:
		b.WriteString(v.styles.Muted.Render("Loading documents..."))
		b.WriteString("\n")
	case len(v.documents) == 0:
		b.WriteString(v.styles.Muted.Render("No documents yet. Press u to upload one."))
		b.WriteString("\n")
	default:
		visibleItems := v.visibleItemCount()
		end := min(v.scrollOffset+visibleItems, len(v.documents))
		for i := v.scrollOffset; i < end; i++ {
			b.WriteString(v.renderDocument(i, &v.documents[i]))
			b.WriteString("\n")
		}
		if len(v.documents) > visibleItems {
			b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]",
				v.scrollOffset+1, end, len(v.documents))))
			b.WriteString("\n")
		}
	}

	if v.err != nil {
		b.WriteString("\n")
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch v.mode {
	case modeUpload:
		b.WriteString(v.pathInput.View())
		b.WriteString("\n")
		b.WriteString(v.styles.Help.Render("[enter] upload  [esc] cancel"))
	case modeConfirmDelete:
		if doc := v.SelectedDocument(); doc != nil {
			b.WriteString(v.styles.Warning.Render(fmt.Sprintf("Delete %s? [y/N]", doc.FileName)))
		}
	default:
		b.WriteString(v.renderHelp())
	}

	return b.String()
}

// renderDocument renders a single document line.
func (v *View) renderDocument(index int, doc *domain.Document) string {
	indicator := "  "
	if index == v.selected {
		indicator = "> "
	}

	name := doc.FileName
	if name == "" {
		name = doc.ID
	}
	maxNameLen := v.width/2 - 4
	if maxNameLen < 10 {
		maxNameLen = 10
	}
	if len(name) > maxNameLen {
		name = name[:maxNameLen-3] + "..."
	}

	created := ""
	if !doc.CreatedAt.IsZero() {
		created = doc.CreatedAt.Local().Format("2006-01-02 15:04")
	}

	line := fmt.Sprintf("%s%-*s  ", indicator, maxNameLen, name)
	if index == v.selected {
		line = v.styles.Selected.Render(line)
	} else {
		line = v.styles.Normal.Render(line)
	}
	line += v.styles.StatusBadge(doc.Status) + "  " + v.styles.Muted.Render(created)

	if index == v.selected && doc.Status == domain.DocumentFailed && doc.ProcessingError != "" {
		line += "\n    " + v.styles.Error.Render(doc.ProcessingError)
	}
	return line
}

// renderHelp renders the help footer.
func (v *View) renderHelp() string {
	return v.styles.Help.Render("[↑/↓] navigate  [enter] chat  [u] upload  [d] delete  [r] refresh  [q] quit")
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.pathInput.SetWidth(width)
}

// Documents returns the current list of documents.
func (v *View) Documents() []domain.Document {
	return v.documents
}

// SelectedIndex returns the currently selected document index.
func (v *View) SelectedIndex() int {
	return v.selected
}

// SelectedDocument returns the currently selected document.
func (v *View) SelectedDocument() *domain.Document {
	if v.selected < len(v.documents) {
		return &v.documents[v.selected]
	}
	return nil
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
