// Package chat provides the conversation view for a single document.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// ErrNoAttachments is shown when no other processed document can be attached.
var ErrNoAttachments = errors.New("no other processed documents to attach")

// pendingText is rendered for an assistant turn that has no tokens yet.
const pendingText = "…"

// View is the chat view.
type View struct {
	styles          *styles.Styles
	keymap          *keymap.KeyMap
	chatService     driving.ChatService
	documentService driving.DocumentService
	ctx             context.Context

	document     domain.Document
	conversation driving.Conversation
	seq          int
	changes      <-chan struct{}
	unsubscribe  func()

	messages []domain.Message
	viewport viewport.Model
	input    *input.TextInput

	picking    bool
	pickIndex  int
	candidates []domain.Document
	attached   map[string]bool

	loading bool
	err     error
	width   int
	height  int
}

// NewView creates a new chat view.
func NewView(s *styles.Styles, chatService driving.ChatService, documentService driving.DocumentService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:          s,
		keymap:          keymap.DefaultKeyMap(),
		chatService:     chatService,
		documentService: documentService,
		ctx:             context.Background(),
		viewport:        viewport.New(80, 20),
		input:           input.NewTextInput(s, "Message", "ask about this document"),
		attached:        make(map[string]bool),
	}
}

// WithContext sets the context used for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Open switches the view to the conversation of doc, closing any previous one.
func (v *View) Open(doc domain.Document) tea.Cmd {
	v.Close()

	v.seq++
	v.document = doc
	v.messages = nil
	v.err = nil
	v.picking = false
	v.attached = make(map[string]bool)
	v.input.Reset()
	v.loading = v.chatService != nil
	v.refreshViewport()

	if v.chatService == nil {
		return nil
	}

	v.conversation = v.chatService.Open(doc.ID)
	v.changes, v.unsubscribe = v.conversation.Subscribe()

	return tea.Batch(v.input.Focus(), v.loadHistory(), v.listen())
}

// Close cancels in-flight requests of the open conversation and stops listening.
func (v *View) Close() {
	if v.unsubscribe != nil {
		v.unsubscribe()
		v.unsubscribe = nil
	}
	if v.conversation != nil {
		_ = v.conversation.Close()
		v.conversation = nil
	}
	v.changes = nil
}

func (v *View) loadHistory() tea.Cmd {
	conv, ctx, id, seq := v.conversation, v.ctx, v.document.ID, v.seq
	return func() tea.Msg {
		return messages.HistoryLoaded{DocumentID: id, Seq: seq, Err: conv.LoadHistory(ctx)}
	}
}

// listen waits for the next change of the open conversation.
func (v *View) listen() tea.Cmd {
	ch, id, seq := v.changes, v.document.ID, v.seq
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return messages.ConversationChanged{DocumentID: id, Seq: seq}
	}
}

func (v *View) send(text string, refs []domain.AttachmentRef) tea.Cmd {
	conv, ctx, id, seq := v.conversation, v.ctx, v.document.ID, v.seq
	return func() tea.Msg {
		result, err := conv.Send(ctx, text, refs)
		return messages.ExchangeFinished{DocumentID: id, Seq: seq, Result: result, Err: err}
	}
}

// current reports whether a message tagged with documentID and seq belongs
// to the open conversation. Reopening the same document starts a new seq.
func (v *View) current(documentID string, seq int) bool {
	return v.conversation != nil && documentID == v.document.ID && seq == v.seq
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		if v.picking {
			return v.handlePickerKeyMsg(msg)
		}
		return v.handleKeyMsg(msg)

	case messages.ConversationChanged:
		if !v.current(msg.DocumentID, msg.Seq) {
			return v, nil
		}
		v.messages = v.conversation.Messages()
		v.refreshViewport()
		return v, v.listen()

	case messages.HistoryLoaded:
		if !v.current(msg.DocumentID, msg.Seq) {
			return v, nil
		}
		v.loading = false
		v.err = msg.Err
		v.messages = v.conversation.Messages()
		v.refreshViewport()
		return v, nil

	case messages.ExchangeFinished:
		if !v.current(msg.DocumentID, msg.Seq) {
			return v, nil
		}
		if msg.Result.State == domain.ExchangeCancelled {
			v.err = nil
		}
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		v.Close()
		return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewDocuments} }

	case tea.KeyTab:
		v.openPicker()
		return v, nil

	case tea.KeyEnter:
		text := strings.TrimSpace(v.input.Value())
		if text == "" || v.conversation == nil || v.loading {
			return v, nil
		}
		refs := v.attachmentRefs()
		v.input.Reset()
		v.attached = make(map[string]bool)
		v.err = nil
		return v, v.send(text, refs)

	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(msg)
		return v, cmd
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// openPicker lists processed documents other than the open one.
func (v *View) openPicker() {
	v.candidates = v.candidates[:0]
	if v.documentService != nil {
		for _, d := range v.documentService.Documents() {
			if d.ID != v.document.ID && d.Status == domain.DocumentProcessed {
				v.candidates = append(v.candidates, d)
			}
		}
	}
	if len(v.candidates) == 0 {
		v.err = ErrNoAttachments
		return
	}
	v.err = nil
	v.picking = true
	v.pickIndex = 0
}

func (v *View) handlePickerKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case keymap.Matches(msg.String(), v.keymap.Up):
		if v.pickIndex > 0 {
			v.pickIndex--
		}
	case keymap.Matches(msg.String(), v.keymap.Down):
		if v.pickIndex < len(v.candidates)-1 {
			v.pickIndex++
		}
	case keymap.Matches(msg.String(), v.keymap.Toggle):
		id := v.candidates[v.pickIndex].ID
		if v.attached[id] {
			delete(v.attached, id)
		} else {
			v.attached[id] = true
		}
	case msg.Type == tea.KeyEnter, msg.Type == tea.KeyTab, msg.Type == tea.KeyEsc:
		v.picking = false
	}
	return v, nil
}

// attachmentRefs returns the selected attachments in picker order.
func (v *View) attachmentRefs() []domain.AttachmentRef {
	var refs []domain.AttachmentRef
	for _, d := range v.candidates {
		if v.attached[d.ID] {
			refs = append(refs, domain.AttachmentRef{ID: d.ID, Title: d.FileName})
		}
	}
	return refs
}

func (v *View) refreshViewport() {
	v.viewport.SetContent(v.renderMessages())
	v.viewport.GotoBottom()
}

func (v *View) renderMessages() string {
	if len(v.messages) == 0 {
		if v.loading {
			return v.styles.Muted.Render("Loading history...")
		}
		return v.styles.Muted.Render("No messages yet. Ask something about " + v.document.FileName + ".")
	}

	wrap := lipgloss.NewStyle().Width(max(v.viewport.Width-2, 20))
	blocks := make([]string, 0, len(v.messages))
	for _, m := range v.messages {
		switch m := m.(type) {
		case domain.UserMessage:
			block := v.styles.User.Render("You: ") + m.Content
			if len(m.Attachments) > 0 {
				titles := make([]string, 0, len(m.Attachments))
				for _, a := range m.Attachments {
					titles = append(titles, a.Title)
				}
				block += "\n" + v.styles.Muted.Render("  attached: "+strings.Join(titles, ", "))
			}
			blocks = append(blocks, wrap.Render(block))
		case domain.AssistantMessage:
			switch {
			case strings.HasPrefix(m.Content, domain.ErrorMessagePrefix):
				blocks = append(blocks, wrap.Render(v.styles.Error.Render(m.Content)))
			case m.Content == "":
				blocks = append(blocks, wrap.Render(v.styles.Assistant.Render("Assistant: ")+pendingText))
			default:
				blocks = append(blocks, wrap.Render(v.styles.Assistant.Render("Assistant: ")+m.Content))
			}
		}
	}
	return strings.Join(blocks, "\n\n")
}

// View renders the chat view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Chat: " + v.document.FileName))
	b.WriteString("\n\n")
	b.WriteString(v.viewport.View())
	b.WriteString("\n\n")

	if v.err != nil {
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n")
	}

	if v.picking {
		b.WriteString(v.renderPicker())
		b.WriteString("\n")
		b.WriteString(v.styles.Help.Render("[space] toggle  [enter] done"))
		return b.String()
	}

	if refs := v.attachmentRefs(); len(refs) > 0 {
		titles := make([]string, 0, len(refs))
		for _, r := range refs {
			titles = append(titles, r.Title)
		}
		b.WriteString(v.styles.Muted.Render("Attached: " + strings.Join(titles, ", ")))
		b.WriteString("\n")
	}

	b.WriteString(v.input.View())
	b.WriteString("\n")
	help := "[enter] send  [tab] attach  [pgup/pgdn] scroll  [esc] back"
	if v.conversation != nil {
		if n := v.conversation.InFlight(); n > 0 {
			help = fmt.Sprintf("waiting for %d %s  ", n, plural(n, "reply", "replies")) + help
		}
	}
	b.WriteString(v.styles.Help.Render(help))

	return b.String()
}

func (v *View) renderPicker() string {
	var b strings.Builder
	b.WriteString(v.styles.Subtitle.Render("Attach documents"))
	b.WriteString("\n")
	for i, d := range v.candidates {
		cursor := "  "
		if i == v.pickIndex {
			cursor = "> "
		}
		mark := "[ ]"
		if v.attached[d.ID] {
			mark = "[x]"
		}
		line := fmt.Sprintf("%s%s %s", cursor, mark, d.FileName)
		if i == v.pickIndex {
			line = v.styles.Selected.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	// title, input, help, error and the status bar
	v.viewport.Width = width
	v.viewport.Height = max(height-9, 3)
	v.input.SetWidth(width)
	v.refreshViewport()
}

// Document returns the document whose conversation is open.
func (v *View) Document() domain.Document {
	return v.document
}

// Messages returns the rendered snapshot of the conversation.
func (v *View) Messages() []domain.Message {
	return v.messages
}

// Picking reports whether the attachment picker is open.
func (v *View) Picking() bool {
	return v.picking
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
