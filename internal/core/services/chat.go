package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure ChatService and Conversation implement the interfaces.
var (
	_ driving.ChatService  = (*ChatService)(nil)
	_ driving.Conversation = (*Conversation)(nil)
)

// ChatService opens conversations backed by a chat backend.
type ChatService struct {
	backend  driven.ChatBackend
	notifier driven.Notifier
	now      func() time.Time
	newID    func() string
}

// NewChatService creates a new chat service.
func NewChatService(backend driven.ChatBackend, notifier driven.Notifier) *ChatService {
	return &ChatService{
		backend:  backend,
		notifier: notifier,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Open returns a new conversation keyed by documentID.
func (s *ChatService) Open(documentID string) driving.Conversation {
	return s.open(documentID)
}

func (s *ChatService) open(documentID string) *Conversation {
	ctx, cancel := context.WithCancel(context.Background())
	return &Conversation{
		key:      documentID,
		backend:  s.backend,
		notifier: s.notifier,
		now:      s.now,
		newID:    s.newID,
		log:      NewCollection[domain.Message](),
		pending:  make(map[string]struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Conversation reconciles streamed replies into an ordered message log.
// Each Send owns exactly one assistant placeholder and only ever appends to it;
// concurrent sends write to distinct placeholders.
type Conversation struct {
	key      string
	backend  driven.ChatBackend
	notifier driven.Notifier
	now      func() time.Time
	newID    func() string

	log *Collection[domain.Message]

	// ctx is cancelled by Close and bounds every exchange.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	closed   bool
	inFlight int
	wg       sync.WaitGroup

	// pending holds the ids of turns owned by exchanges not yet terminal.
	// LoadHistory keeps them after the fetched history.
	pending map[string]struct{}
}

// Key returns the document ID the conversation is about.
func (c *Conversation) Key() string {
	return c.key
}

// LoadHistory replaces the log with the backend's history. Turns of
// exchanges still in flight are kept after the history.
func (c *Conversation) LoadHistory(ctx context.Context) error {
	if c.backend == nil {
		return domain.ErrNotImplemented
	}
	msgs, err := c.backend.History(ctx, c.key)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	c.mu.Lock()
	c.log.ReplaceKeeping(msgs, func(m domain.Message) bool {
		_, ok := c.pending[m.Key()]
		return ok
	})
	c.mu.Unlock()
	logger.Debug("conversation %s: loaded %d messages", c.key, len(msgs))
	return nil
}

// Send submits text and consumes the streamed reply into a fresh placeholder.
func (c *Conversation) Send(
	ctx context.Context,
	text string,
	attachments []domain.AttachmentRef,
) (domain.ExchangeResult, error) {
	if strings.TrimSpace(text) == "" {
		return domain.ExchangeResult{State: domain.ExchangeIdle},
			fmt.Errorf("%w: message is empty", domain.ErrInvalidInput)
	}
	if c.backend == nil {
		return domain.ExchangeResult{State: domain.ExchangeIdle}, domain.ErrNotImplemented
	}
	if err := c.begin(); err != nil {
		return domain.ExchangeResult{State: domain.ExchangeIdle}, err
	}
	defer c.end()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	now := c.now()
	user := domain.UserMessage{
		ID:              c.newID(),
		ConversationKey: c.key,
		Content:         text,
		CreatedAt:       now,
		Attachments:     append([]domain.AttachmentRef(nil), attachments...),
	}
	placeholder := domain.AssistantMessage{
		ID:              c.newID(),
		ConversationKey: c.key,
		CreatedAt:       now,
	}
	c.track(user.ID, placeholder.ID)
	defer c.untrack(user.ID, placeholder.ID)
	c.log.Append(user, placeholder)

	result := domain.ExchangeResult{
		UserMessageID: user.ID,
		PlaceholderID: placeholder.ID,
		State:         domain.ExchangeSending,
	}

	ids := make([]string, 0, len(attachments))
	for _, a := range attachments {
		ids = append(ids, a.ID)
	}

	logger.Debug("conversation %s: sending message with %d attachments", c.key, len(ids))
	stream, err := c.backend.SendMessage(ctx, driven.ChatRequest{
		DocumentID:        c.key,
		Message:           text,
		AttachedDocuments: ids,
	})
	if err != nil {
		return c.fail(ctx, result, err)
	}
	defer stream.Close()

	result.State = domain.ExchangeStreaming
	for {
		frame, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			return c.complete(result), nil
		}
		if err != nil {
			return c.fail(ctx, result, err)
		}

		switch frame.Kind {
		case domain.FrameToken:
			c.log.Update(placeholder.ID, func(m domain.Message) domain.Message {
				if am, ok := m.(domain.AssistantMessage); ok {
					return am.Append(frame.Token)
				}
				return m
			})
		case domain.FrameDone:
			return c.complete(result), nil
		case domain.FrameError:
			return c.fail(ctx, result, &streamError{reason: frame.Err})
		}
	}
}

// Messages returns an ordered snapshot of the log.
func (c *Conversation) Messages() []domain.Message {
	return c.log.Snapshot()
}

// Subscribe returns a channel signalled after every log change.
func (c *Conversation) Subscribe() (<-chan struct{}, func()) {
	return c.log.Subscribe()
}

// InFlight returns the number of exchanges not yet terminal.
func (c *Conversation) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Close cancels in-flight exchanges and waits for them to stop.
// Partial replies stay in the log; no failure is reported for them.
func (c *Conversation) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	return nil
}

func (c *Conversation) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrConversationClosed
	}
	c.inFlight++
	c.wg.Add(1)
	return nil
}

func (c *Conversation) end() {
	c.mu.Lock()
	c.inFlight--
	c.mu.Unlock()
	c.wg.Done()
}

func (c *Conversation) track(ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		c.pending[id] = struct{}{}
	}
}

func (c *Conversation) untrack(ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.pending, id)
	}
}

func (c *Conversation) complete(result domain.ExchangeResult) domain.ExchangeResult {
	result.State = domain.ExchangeCompleted
	logger.Debug("conversation %s: reply %s completed", c.key, result.PlaceholderID)
	return result
}

// fail ends an exchange. A cancelled exchange keeps its partial placeholder;
// any other failure swaps the placeholder for an error turn and notifies once.
func (c *Conversation) fail(
	ctx context.Context,
	result domain.ExchangeResult,
	cause error,
) (domain.ExchangeResult, error) {
	if ctx.Err() != nil {
		result.State = domain.ExchangeCancelled
		result.Err = ctx.Err()
		logger.Debug("conversation %s: reply %s cancelled", c.key, result.PlaceholderID)
		return result, result.Err
	}

	reason := cause.Error()
	errMsg := domain.NewErrorMessage(c.newID(), c.key, reason, c.now())
	c.log.Remove(result.PlaceholderID)
	c.log.Append(errMsg)

	result.State = domain.ExchangeFailed
	result.ErrorMessageID = errMsg.ID
	result.Err = cause

	logger.Warn("conversation %s: reply failed: %s", c.key, reason)
	notify(c.notifier, domain.NotificationError, "%s", reason)
	return result, cause
}

// streamError is a failure reported by the server inside the stream.
type streamError struct {
	reason string
}

func (e *streamError) Error() string {
	return e.reason
}
