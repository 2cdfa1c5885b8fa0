package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/views/chat"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/views/documents"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// notificationBuffer bounds queued notifications; extra ones are dropped.
const notificationBuffer = 32

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	styles *styles.Styles
	keymap *keymap.KeyMap

	documentsView *documents.View
	chatView      *chat.View
	statusBar     *status.Bar

	// notifications queues toasts raised by services on other goroutines.
	notifications chan domain.Notification

	// currentView tracks which view is active.
	currentView messages.ViewType

	// previousView is restored when help is closed.
	previousView messages.ViewType

	identity *domain.Identity

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	bar := status.NewBar(s, km)
	bar.SetHints(km.DocumentsHelp())

	return &App{
		ports:         ports,
		ctx:           context.Background(),
		styles:        s,
		keymap:        km,
		documentsView: documents.NewView(s, ports.Documents),
		chatView:      chat.NewView(s, ports.Chat, ports.Documents),
		statusBar:     bar,
		notifications: make(chan domain.Notification, notificationBuffer),
		currentView:   messages.ViewDocuments,
	}, nil
}

// WithContext sets the context for the app and its views.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.documentsView.WithContext(ctx)
	a.chatView.WithContext(ctx)
	return a
}

// Notifier returns a notifier that shows notifications in the status bar.
// It never blocks; notifications are dropped while the queue is full.
func (a *App) Notifier() driven.Notifier {
	return driven.NotifierFunc(func(n domain.Notification) {
		select {
		case a.notifications <- n:
		default:
		}
	})
}

// waitNotification waits for the next queued notification.
func (a *App) waitNotification() tea.Cmd {
	ch, ctx := a.notifications, a.ctx
	return func() tea.Msg {
		select {
		case n := <-ch:
			return messages.NotificationReceived{Notification: n}
		case <-ctx.Done():
			return nil
		}
	}
}

func (a *App) checkAuth() tea.Cmd {
	if a.ports.Auth == nil {
		return nil
	}
	auth, ctx := a.ports.Auth, a.ctx
	return func() tea.Msg {
		identity, err := auth.Status(ctx)
		return messages.AuthChecked{Identity: identity, Err: err}
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("docchat"),
		a.documentsView.Init(),
		a.waitNotification(),
		a.checkAuth(),
	)
}

// Update implements tea.Model.
//
//nolint:gocognit,gocyclo,funlen // central message handler requires complexity
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		// Global quit with ctrl+c
		if msg.String() == "ctrl+c" {
			a.shutdown()
			return a, tea.Quit
		}

		switch a.currentView {
		case messages.ViewHelp:
			if msg.Type == tea.KeyEsc || msg.String() == "?" || msg.String() == "q" {
				return a.switchView(a.previousView)
			}
			return a, nil
		case messages.ViewChat:
			a.chatView, cmd = a.chatView.Update(msg)
			return a, cmd
		default:
			a.documentsView, cmd = a.documentsView.Update(msg)
			a.syncStatus()
			return a, cmd
		}

	case messages.ViewChanged:
		return a.switchView(msg.View)

	case messages.ChatOpened:
		a.currentView = messages.ViewChat
		a.statusBar.SetHints(a.keymap.ChatHelp())
		return a, a.chatView.Open(msg.Document)

	case messages.NotificationReceived:
		return a, tea.Batch(a.statusBar.Notify(msg.Notification), a.waitNotification())

	case status.Expired:
		a.statusBar, cmd = a.statusBar.Update(msg)
		a.syncStatus()
		return a, cmd

	case messages.AuthChecked:
		a.identity = msg.Identity
		switch {
		case errors.Is(msg.Err, domain.ErrAuthRequired):
			return a, a.statusBar.Notify(domain.Notification{
				Level:   domain.NotificationError,
				Message: "Not logged in. Run 'docchat auth login'.",
			})
		case errors.Is(msg.Err, domain.ErrAuthExpired):
			return a, a.statusBar.Notify(domain.Notification{
				Level:   domain.NotificationError,
				Message: "Token expired. Run 'docchat auth login'.",
			})
		}
		return a, nil

	case messages.ErrorOccurred:
		a.err = msg.Err

	case messages.Quit:
		a.shutdown()
		return a, tea.Quit

	case messages.HistoryLoaded, messages.ConversationChanged, messages.ExchangeFinished:
		a.chatView, cmd = a.chatView.Update(msg)
		return a, cmd

	case messages.DocumentsRefreshed, messages.DocumentsChanged, messages.UploadTick,
		messages.DocumentUploaded, messages.DocumentRemoved:
		a.documentsView, cmd = a.documentsView.Update(msg)
		a.syncStatus()
		return a, cmd
	}

	// Forward other messages to active view
	switch a.currentView {
	case messages.ViewChat:
		a.chatView, cmd = a.chatView.Update(msg)
	case messages.ViewDocuments:
		a.documentsView, cmd = a.documentsView.Update(msg)
	case messages.ViewHelp:
		// Help view doesn't need to handle other messages
	}

	return a, cmd
}

// switchView activates view, remembering the view help returns to.
func (a *App) switchView(view messages.ViewType) (tea.Model, tea.Cmd) {
	if view == messages.ViewHelp && a.currentView != messages.ViewHelp {
		a.previousView = a.currentView
	}
	a.currentView = view

	switch view {
	case messages.ViewChat:
		a.statusBar.SetHints(a.keymap.ChatHelp())
	case messages.ViewDocuments:
		a.statusBar.SetHints(a.keymap.DocumentsHelp())
	case messages.ViewHelp:
		a.statusBar.SetHints(a.keymap.ShortHelp())
	}
	return a, nil
}

// syncStatus mirrors upload progress into the status bar unless a
// notification is showing.
func (a *App) syncStatus() {
	state := a.statusBar.State()
	if state == status.StateInfo || state == status.StateError {
		return
	}
	if progress := a.documentsView.UploadStatus(); progress != "" {
		a.statusBar.SetState(status.StateBusy)
		a.statusBar.SetMessage(progress)
		return
	}
	if state == status.StateBusy {
		a.statusBar.Clear()
	}
}

// shutdown releases view subscriptions and cancels open conversations.
func (a *App) shutdown() {
	a.chatView.Close()
	a.documentsView.Close()
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	var body string
	switch a.currentView {
	case messages.ViewChat:
		body = a.chatView.View()
	case messages.ViewHelp:
		body = a.viewHelp()
	default:
		body = a.documentsView.View()
	}

	return body + "\n" + a.statusBar.View()
}

// viewHelp renders the help view.
func (a *App) viewHelp() string {
	var b strings.Builder

	b.WriteString(a.styles.Title.Render("Help"))
	b.WriteString("\n\n")
	b.WriteString(`Documents:
  j/k, ↑/↓    Navigate documents
  enter       Chat about the selected document
  u           Upload a .pdf or .txt file
  d           Delete the selected document
  r           Refresh

Chat:
  (type)      Enter a message
  enter       Send
  tab         Attach other documents
  space       Toggle an attachment
  pgup/pgdn   Scroll the conversation
  esc         Back to documents

Global:
  ?           Toggle help
  ctrl+c      Quit
`)

	b.WriteString("\n")
	if a.identity != nil {
		who := a.identity.Email
		if who == "" {
			who = a.identity.Subject
		}
		b.WriteString(a.styles.Muted.Render("Logged in as " + who))
		b.WriteString("\n")
	}
	if a.ports.Settings != nil {
		if settings, err := a.ports.Settings.Get(); err == nil {
			b.WriteString(a.styles.Muted.Render("Server: " + settings.API.BaseURL))
			b.WriteString("\n")
		}
		b.WriteString(a.styles.Muted.Render("Config: " + a.ports.Settings.ConfigPath()))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(a.styles.Help.Render("[esc] back"))

	return b.String()
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions on the app and its views.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.documentsView.SetDimensions(width, height)
	a.chatView.SetDimensions(width, height)
	a.statusBar.SetWidth(width)
}
