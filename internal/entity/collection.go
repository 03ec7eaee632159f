package entity

import (
	"fmt"

	"github.com/roach88/layersync/internal/event"
)

// CollectionEventKind is the closed set of structural changes a Collection reports.
type CollectionEventKind int

const (
	// Added reports an entity inserted at Index.
	Added CollectionEventKind = iota + 1
	// Removed reports an entity removed from Index.
	Removed
)

// String returns the lower-case name of the kind.
func (k CollectionEventKind) String() string {
	switch k {
	case Added:
		return "add"
	case Removed:
		return "remove"
	default:
		return fmt.Sprintf("CollectionEventKind(%d)", int(k))
	}
}

// CollectionEvent describes one structural change.
// For Added, Index is the entity's position after insertion; for Removed,
// the position it occupied before removal.
type CollectionEvent struct {
	Kind   CollectionEventKind
	Entity *Entity
	Index  int
}

// Collection is an ordered sequence of unique entities.
type Collection struct {
	items  []*Entity
	events event.Feed[CollectionEvent]
}

// NewCollection creates a collection holding items in order.
// Duplicates and nil entries are dropped.
func NewCollection(items ...*Entity) *Collection {
	c := &Collection{items: make([]*Entity, 0, len(items))}
	for _, e := range items {
		if e != nil && !c.Contains(e) {
			c.items = append(c.items, e)
		}
	}
	return c
}

// Len returns the number of entities.
func (c *Collection) Len() int {
	return len(c.items)
}

// At returns the entity at index i, or nil when out of range.
func (c *Collection) At(i int) *Entity {
	if i < 0 || i >= len(c.items) {
		return nil
	}
	return c.items[i]
}

// Items returns a copy of the entities in order.
func (c *Collection) Items() []*Entity {
	out := make([]*Entity, len(c.items))
	copy(out, c.items)
	return out
}

// IndexOf returns the position of e, or -1.
func (c *Collection) IndexOf(e *Entity) int {
	for i, item := range c.items {
		if item == e {
			return i
		}
	}
	return -1
}

// Contains reports whether e is in the collection.
func (c *Collection) Contains(e *Entity) bool {
	return c.IndexOf(e) >= 0
}

// Push appends e.
func (c *Collection) Push(e *Entity) error {
	return c.InsertAt(len(c.items), e)
}

// InsertAt inserts e at index i (0 <= i <= Len) and emits Added.
func (c *Collection) InsertAt(i int, e *Entity) error {
	if e == nil {
		return ErrNilEntity
	}
	if i < 0 || i > len(c.items) {
		return fmt.Errorf("insert %s at %d (len %d): %w", e.ID(), i, len(c.items), ErrIndexOutOfRange)
	}
	if c.Contains(e) {
		return fmt.Errorf("insert %s: %w", e.ID(), ErrDuplicate)
	}

	c.items = append(c.items, nil)
	copy(c.items[i+1:], c.items[i:])
	c.items[i] = e

	c.events.Emit(CollectionEvent{Kind: Added, Entity: e, Index: i})
	return nil
}

// Extend appends every entity in order, one Added event each.
// It stops at the first failure.
func (c *Collection) Extend(items ...*Entity) error {
	for _, e := range items {
		if err := c.Push(e); err != nil {
			return err
		}
	}
	return nil
}

// RemoveAt removes the entity at index i and emits Removed.
func (c *Collection) RemoveAt(i int) (*Entity, error) {
	if i < 0 || i >= len(c.items) {
		return nil, fmt.Errorf("remove at %d (len %d): %w", i, len(c.items), ErrIndexOutOfRange)
	}
	e := c.items[i]
	c.items = append(c.items[:i], c.items[i+1:]...)

	c.events.Emit(CollectionEvent{Kind: Removed, Entity: e, Index: i})
	return e, nil
}

// Remove removes e. It reports whether e was present.
func (c *Collection) Remove(e *Entity) bool {
	i := c.IndexOf(e)
	if i < 0 {
		return false
	}
	_, err := c.RemoveAt(i)
	return err == nil
}

// Clear removes every entity from the tail forward, one Removed event each.
func (c *Collection) Clear() {
	for len(c.items) > 0 {
		_, _ = c.RemoveAt(len(c.items) - 1)
	}
}

// Reset replaces the whole content: Clear followed by Extend.
func (c *Collection) Reset(items ...*Entity) error {
	c.Clear()
	return c.Extend(items...)
}

// Subscribe registers fn for structural events.
func (c *Collection) Subscribe(fn func(CollectionEvent)) (cancel func()) {
	return c.events.Subscribe(fn)
}

// Subscribers returns the number of live structural subscriptions.
func (c *Collection) Subscribers() int {
	return c.events.Len()
}

func (c *Collection) collection() *Collection {
	if c == nil {
		return nil
	}
	return c
}
