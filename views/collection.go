package views

import (
	"sort"
	"sync"
)

type Status int

const (
	StatusLoading Status = iota
	StatusReady
)

// Collection is the reconciled local copy of one entity collection. Every
// mutation and change-feed echo lands here through Upsert/Remove, which
// are idempotent by id, so the optimistic path and the echo can race in
// any order without duplicating rows.
type Collection[T Entity] struct {
	mu     sync.Mutex
	status Status
	items  []T
	index  map[string]int
	less   func(a, b T) bool
}

// NewCollection builds an empty collection. A nil less keeps stable
// insertion order.
func NewCollection[T Entity](less func(a, b T) bool) *Collection[T] {
	return &Collection[T]{
		index: make(map[string]int),
		less:  less,
	}
}

func (c *Collection[T]) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Replace swaps in a freshly loaded snapshot and marks the collection
// ready.
func (c *Collection[T]) Replace(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append([]T(nil), items...)
	c.reindexLocked()
	c.sortLocked()
	c.status = StatusReady
}

// Upsert merges one row by id. It reports whether the row was new; an
// echo of a row already applied optimistically is absorbed in place.
func (c *Collection[T]) Upsert(item T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i, ok := c.index[item.EntityID()]; ok {
		c.items[i] = item
		c.sortLocked()
		return false
	}
	c.items = append(c.items, item)
	c.index[item.EntityID()] = len(c.items) - 1
	c.sortLocked()
	return true
}

func (c *Collection[T]) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.index[id]
	if !ok {
		return false
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	c.reindexLocked()
	return true
}

func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	i, ok := c.index[id]
	if !ok {
		return zero, false
	}
	return c.items[i], true
}

// Mutate applies fn to the entry with the given id, in place.
func (c *Collection[T]) Mutate(id string, fn func(*T)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.index[id]
	if !ok {
		return false
	}
	fn(&c.items[i])
	c.sortLocked()
	return true
}

func (c *Collection[T]) Snapshot() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.items...)
}

func (c *Collection[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Reset empties the collection back to Loading, e.g. on a scope switch.
func (c *Collection[T]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.index = make(map[string]int)
	c.status = StatusLoading
}

func (c *Collection[T]) sortLocked() {
	if c.less == nil {
		return
	}
	sort.SliceStable(c.items, func(i, j int) bool {
		return c.less(c.items[i], c.items[j])
	})
	c.reindexLocked()
}

func (c *Collection[T]) reindexLocked() {
	c.index = make(map[string]int, len(c.items))
	for i, item := range c.items {
		c.index[item.EntityID()] = i
	}
}
