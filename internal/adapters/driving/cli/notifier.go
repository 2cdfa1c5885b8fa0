package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure Notifier implements the driven port.
var _ driven.Notifier = (*Notifier)(nil)

// Notifier relays service notifications to whichever front end is active.
// With no sink attached, notifications are printed to the fallback writer.
type Notifier struct {
	mu   sync.RWMutex
	out  io.Writer
	sink driven.Notifier
}

// NewNotifier creates a notifier printing to out until a sink is attached.
func NewNotifier(out io.Writer) *Notifier {
	return &Notifier{out: out}
}

// Notify implements driven.Notifier.
func (n *Notifier) Notify(note domain.Notification) {
	n.mu.RLock()
	sink, out := n.sink, n.out
	n.mu.RUnlock()

	if sink != nil {
		sink.Notify(note)
		return
	}
	if out == nil {
		return
	}
	fmt.Fprintf(out, "%s: %s\n", note.Level, note.Message)
}

// Attach routes notifications to sink until the returned detach is called.
func (n *Notifier) Attach(sink driven.Notifier) (detach func()) {
	n.mu.Lock()
	prev := n.sink
	n.sink = sink
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		n.sink = prev
		n.mu.Unlock()
	}
}
