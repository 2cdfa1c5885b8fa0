package services

import "sync"

// keyed is anything identified by a stable string key.
type keyed interface {
	Key() string
}

// Collection is an ordered, keyed set of items shared between a service and
// its readers. All mutations go through its methods, so concurrent writers
// never observe a stale copy: each mutation applies to the current state.
type Collection[T keyed] struct {
	mu    sync.RWMutex
	items []T

	subMu  sync.Mutex
	subs   map[int]chan struct{}
	nextID int
}

// NewCollection creates an empty collection.
func NewCollection[T keyed]() *Collection[T] {
	return &Collection[T]{subs: make(map[int]chan struct{})}
}

// Replace swaps the whole content. Later duplicates of a key are dropped.
func (c *Collection[T]) Replace(items []T) {
	c.ReplaceKeeping(items, nil)
}

// ReplaceKeeping swaps the content for items followed by the current entries
// for which keep returns true, in their current order. The swap is atomic
// with respect to every other mutation. Later duplicates of a key are dropped.
func (c *Collection[T]) ReplaceKeeping(items []T, keep func(T) bool) {
	next := make([]T, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	add := func(item T) {
		if _, dup := seen[item.Key()]; dup {
			return
		}
		seen[item.Key()] = struct{}{}
		next = append(next, item)
	}
	for _, item := range items {
		add(item)
	}

	c.mu.Lock()
	if keep != nil {
		for _, item := range c.items {
			if keep(item) {
				add(item)
			}
		}
	}
	c.items = next
	c.mu.Unlock()
	c.notify()
}

// Append adds items at the end. An item whose key is already present
// replaces the existing entry in place.
func (c *Collection[T]) Append(items ...T) {
	if len(items) == 0 {
		return
	}
	c.mu.Lock()
	for _, item := range items {
		if i := c.indexLocked(item.Key()); i >= 0 {
			c.items[i] = item
			continue
		}
		c.items = append(c.items, item)
	}
	c.mu.Unlock()
	c.notify()
}

// Prepend inserts item at the front, removing any entry with the same key.
func (c *Collection[T]) Prepend(item T) {
	c.mu.Lock()
	if i := c.indexLocked(item.Key()); i >= 0 {
		c.items = append(c.items[:i], c.items[i+1:]...)
	}
	c.items = append([]T{item}, c.items...)
	c.mu.Unlock()
	c.notify()
}

// Update applies fn to the item with the given key.
// Returns false, without notifying, when the key is absent.
func (c *Collection[T]) Update(key string, fn func(T) T) bool {
	c.mu.Lock()
	i := c.indexLocked(key)
	if i < 0 {
		c.mu.Unlock()
		return false
	}
	c.items[i] = fn(c.items[i])
	c.mu.Unlock()
	c.notify()
	return true
}

// Remove deletes the item with the given key.
func (c *Collection[T]) Remove(key string) bool {
	c.mu.Lock()
	i := c.indexLocked(key)
	if i < 0 {
		c.mu.Unlock()
		return false
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	c.mu.Unlock()
	c.notify()
	return true
}

// Get returns the item with the given key.
func (c *Collection[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexLocked(key); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

// Snapshot returns a copy of the items in order.
func (c *Collection[T]) Snapshot() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of items.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Subscribe returns a channel signalled after changes and a cancel function.
// Signals coalesce: a slow reader sees one pending signal, never a backlog,
// and should re-read the Snapshot when woken. cancel closes the channel.
func (c *Collection[T]) Subscribe() (<-chan struct{}, func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	id := c.nextID
	c.nextID++
	ch := make(chan struct{}, 1)
	c.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, id)
			close(ch)
			c.subMu.Unlock()
		})
	}
	return ch, cancel
}

func (c *Collection[T]) notify() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (c *Collection[T]) indexLocked(key string) int {
	for i, item := range c.items {
		if item.Key() == key {
			return i
		}
	}
	return -1
}
