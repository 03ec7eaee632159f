package record

import (
	"fmt"
	"slices"

	"github.com/roach88/layersync/internal/entity"
	"github.com/roach88/layersync/internal/event"
)

// LoadOptions controls LoadRecords.
type LoadOptions struct {
	// AddRecords appends instead of replacing the current content.
	AddRecords bool
}

// Collection is the ordered record store.
type Collection struct {
	items  []*Record
	reader Reader
	total  int
	events event.Feed[Event]
	data   event.Feed[Replace]
}

// NewCollection creates an empty store that reads raw entities with reader.
// A nil reader means NewLayerReader().
func NewCollection(reader Reader) *Collection {
	if reader == nil {
		reader = NewLayerReader()
	}
	return &Collection{reader: reader}
}

// Reader returns the store's reader.
func (c *Collection) Reader() Reader {
	return c.reader
}

// Len returns the number of records.
func (c *Collection) Len() int {
	return len(c.items)
}

// At returns the record at index i, or nil when out of range.
func (c *Collection) At(i int) *Record {
	if i < 0 || i >= len(c.items) {
		return nil
	}
	return c.items[i]
}

// Items returns a copy of the records in order.
func (c *Collection) Items() []*Record {
	out := make([]*Record, len(c.items))
	copy(out, c.items)
	return out
}

// IndexOf returns the position of r, or -1.
func (c *Collection) IndexOf(r *Record) int {
	for i, item := range c.items {
		if item == r {
			return i
		}
	}
	return -1
}

// Contains reports whether r is in the store.
func (c *Collection) Contains(r *Record) bool {
	return c.IndexOf(r) >= 0
}

// ByID returns the record with the given ID, or nil.
func (c *Collection) ByID(id string) *Record {
	for _, r := range c.items {
		if r.id == id {
			return r
		}
	}
	return nil
}

// FindBy returns the index of the first record satisfying fn, or -1.
func (c *Collection) FindBy(fn func(*Record) bool) int {
	for i, r := range c.items {
		if fn(r) {
			return i
		}
	}
	return -1
}

// TotalCount returns the total reported by the last LoadRawData.
func (c *Collection) TotalCount() int {
	return c.total
}

// Insert places records at index i, in order, and fires one Add.
// Nothing is inserted if any record is rejected.
func (c *Collection) Insert(i int, records ...*Record) error {
	if i < 0 || i > len(c.items) {
		return fmt.Errorf("insert at %d (len %d): %w", i, len(c.items), ErrIndexOutOfRange)
	}
	if err := c.admit(records, false); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	c.items = slices.Insert(c.items, i, records...)
	for _, r := range records {
		r.owner = c
	}

	c.events.Emit(Add{Records: records, Index: i})
	return nil
}

// Add appends records and fires one Add.
func (c *Collection) Add(records ...*Record) error {
	return c.Insert(len(c.items), records...)
}

// admit validates records for insertion. When replacing, records already in
// the store are acceptable because the store is about to be emptied.
func (c *Collection) admit(records []*Record, replacing bool) error {
	seen := make(map[*Record]bool, len(records))
	for _, r := range records {
		if r == nil {
			return fmt.Errorf("admit: nil record")
		}
		if seen[r] || (r.owner == c && !replacing) {
			return fmt.Errorf("admit %s: %w", r.id, ErrDuplicateRecord)
		}
		if r.owner != nil && r.owner != c {
			return fmt.Errorf("admit %s: %w", r.id, ErrOwned)
		}
		seen[r] = true
	}
	return nil
}

// Remove removes the given records and fires one Remove listing those that
// were present. It returns how many were removed.
func (c *Collection) Remove(records ...*Record) int {
	var removed []*Record
	first := -1
	for _, r := range records {
		i := c.IndexOf(r)
		if i < 0 {
			continue
		}
		if first < 0 {
			first = i
		}
		c.items = append(c.items[:i], c.items[i+1:]...)
		r.owner = nil
		removed = append(removed, r)
	}
	if len(removed) == 0 {
		return 0
	}

	c.events.Emit(Remove{Records: removed, Index: first})
	return len(removed)
}

// RemoveAt removes the record at index i.
func (c *Collection) RemoveAt(i int) (*Record, error) {
	r := c.At(i)
	if r == nil {
		return nil, fmt.Errorf("remove at %d (len %d): %w", i, len(c.items), ErrIndexOutOfRange)
	}
	c.Remove(r)
	return r, nil
}

// RemoveAll empties the store and fires Clear.
func (c *Collection) RemoveAll() {
	removed := c.detachAll()
	c.events.Emit(Clear{Removed: removed})
}

func (c *Collection) detachAll() []*Record {
	removed := c.items
	for _, r := range removed {
		r.owner = nil
	}
	c.items = nil
	return removed
}

// Replace swaps old for r at the same position. The data feed sees a
// Replace first, then subscribers see an Add of r at that index.
func (c *Collection) Replace(old, r *Record) error {
	i := c.IndexOf(old)
	if i < 0 {
		return fmt.Errorf("replace %s: %w", old.id, ErrNotFound)
	}
	if err := c.admit([]*Record{r}, false); err != nil {
		return err
	}

	c.items[i] = r
	old.owner = nil
	r.owner = c

	c.data.Emit(Replace{Old: old, New: r, Index: i})
	c.events.Emit(Add{Records: []*Record{r}, Index: i})
	return nil
}

// LoadRecords loads records in one batch and fires Load. Unless
// opts.AddRecords is set the previous content is dropped silently first.
func (c *Collection) LoadRecords(records []*Record, opts LoadOptions) error {
	if err := c.admit(records, !opts.AddRecords); err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	if !opts.AddRecords {
		c.detachAll()
	}
	c.items = append(c.items, records...)
	for _, r := range records {
		r.owner = c
	}

	c.events.Emit(Load{Records: records, Successful: true, AddRecords: opts.AddRecords})
	return nil
}

// LoadRawData reads entities with the store's reader and loads the result.
// When the read fails an unsuccessful Load is fired and nothing changes.
func (c *Collection) LoadRawData(appendRecords bool, entities ...*entity.Entity) error {
	result := c.reader.Read(entities...)
	if !result.Success {
		c.events.Emit(Load{AddRecords: appendRecords})
		return ErrReadFailed
	}
	c.total = result.Total
	return c.LoadRecords(result.Records, LoadOptions{AddRecords: appendRecords})
}

// FireUpdate publishes an Update for r.
func (c *Collection) FireUpdate(r *Record, op Operation, modified []string) {
	c.events.Emit(Update{Record: r, Operation: op, Modified: modified})
}

// Subscribe registers fn for public events.
func (c *Collection) Subscribe(fn func(Event)) (cancel func()) {
	return c.events.Subscribe(fn)
}

// SubscribeData registers fn for low-level replacements.
func (c *Collection) SubscribeData(fn func(Replace)) (cancel func()) {
	return c.data.Subscribe(fn)
}

// Subscribers returns the number of live public and data subscriptions.
func (c *Collection) Subscribers() int {
	return c.events.Len() + c.data.Len()
}
