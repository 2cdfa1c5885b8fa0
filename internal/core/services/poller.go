package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// poller keeps processing documents current by re-fetching their status
// at a fixed interval. Each document ID is polled by at most one loop; an ID
// that has left the active set is never polled again by this poller.
type poller struct {
	backend     driven.DocumentBackend
	notifier    driven.Notifier
	docs        *Collection[domain.Document]
	interval    time.Duration
	maxDuration time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	active   map[string]struct{}
	resolved map[string]struct{}
	wg       sync.WaitGroup
}

func newPoller(
	backend driven.DocumentBackend,
	notifier driven.Notifier,
	docs *Collection[domain.Document],
	interval, maxDuration time.Duration,
) *poller {
	if interval <= 0 {
		interval = domain.DefaultPollInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &poller{
		backend:     backend,
		notifier:    notifier,
		docs:        docs,
		interval:    interval,
		maxDuration: maxDuration,
		ctx:         ctx,
		cancel:      cancel,
		active:      make(map[string]struct{}),
		resolved:    make(map[string]struct{}),
	}
}

// reconcile starts a loop for every processing document not yet known.
func (p *poller) reconcile(docs []domain.Document) {
	for _, doc := range docs {
		if doc.Status != domain.DocumentProcessing {
			continue
		}
		if !p.enter(doc.ID) {
			continue
		}
		logger.Debug("poller: watching %s (%s)", doc.FileName, doc.ID)
		go p.run(doc)
	}
}

// enter adds id to the active set. Returns false if it is, or was, active.
func (p *poller) enter(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx.Err() != nil {
		return false
	}
	if _, ok := p.active[id]; ok {
		return false
	}
	if _, ok := p.resolved[id]; ok {
		return false
	}
	p.active[id] = struct{}{}
	p.wg.Add(1)
	return true
}

// leave removes id from the active set for good.
func (p *poller) leave(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.active, id)
	p.resolved[id] = struct{}{}
}

func (p *poller) isActive(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.active[id]
	return ok
}

func (p *poller) run(doc domain.Document) {
	defer p.wg.Done()

	started := time.Now()
	for {
		if !p.isActive(doc.ID) {
			return
		}

		updated, err := p.backend.DocumentStatus(p.ctx, doc.ID)
		if err != nil {
			p.leave(doc.ID)
			if p.ctx.Err() != nil {
				return
			}
			logger.Warn("poller: status of %s: %v", doc.FileName, err)
			if !p.tracked(doc.ID) {
				return
			}
			p.markFailed(doc.ID, err.Error())
			notify(p.notifier, domain.NotificationError, "Could not update status for %s", doc.FileName)
			return
		}

		if updated.Status != domain.DocumentProcessing {
			p.leave(doc.ID)
			p.replace(doc.ID, *updated)
			logger.Debug("poller: %s is %s", updated.FileName, updated.Status)
			if updated.Status == domain.DocumentFailed && p.tracked(doc.ID) {
				notify(p.notifier, domain.NotificationError,
					"Processing failed for document: %s", updated.FileName)
			}
			return
		}

		p.replace(doc.ID, *updated)
		doc = *updated

		if p.maxDuration > 0 && time.Since(started) >= p.maxDuration {
			p.leave(doc.ID)
			if !p.tracked(doc.ID) {
				return
			}
			p.markFailed(doc.ID, domain.ErrPollTimeout.Error())
			notify(p.notifier, domain.NotificationError,
				"Processing failed for document: %s", doc.FileName)
			return
		}

		timer := time.NewTimer(p.interval)
		select {
		case <-p.ctx.Done():
			timer.Stop()
			p.leave(doc.ID)
			return
		case <-timer.C:
		}
	}
}

// replace swaps in the authoritative copy of a document still in the collection.
func (p *poller) replace(id string, doc domain.Document) {
	p.docs.Update(id, func(domain.Document) domain.Document {
		return doc
	})
}

// tracked reports whether the document is still in the collection.
func (p *poller) tracked(id string) bool {
	_, ok := p.docs.Get(id)
	return ok
}

func (p *poller) markFailed(id, reason string) {
	p.docs.Update(id, func(d domain.Document) domain.Document {
		d.Status = domain.DocumentFailed
		d.ProcessingError = reason
		return d
	})
}

// stop cancels every loop. Loops exit at their next wait or fetch.
func (p *poller) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancel()
}

// wait blocks until every loop has exited or ctx is done.
func (p *poller) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for status polls: %w", ctx.Err())
	}
}
