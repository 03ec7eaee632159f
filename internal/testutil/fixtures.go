package testutil

import (
	"fmt"

	"github.com/roach88/layersync/internal/entity"
	"github.com/roach88/layersync/internal/ir"
	"github.com/roach88/layersync/internal/record"
)

// Layer creates a plain entity titled id, visible, fully opaque, with any
// extra properties applied on top.
func Layer(id string, extra ...ir.Pair) *entity.Entity {
	props := ir.NewObject(
		ir.P(ir.KeyTitle, ir.String(id)),
		ir.P(ir.KeyVisible, ir.Bool(true)),
		ir.P(ir.KeyOpacity, ir.Float(1)),
	)
	for _, p := range extra {
		props[p.Key] = p.Value
	}
	return entity.New(id, props)
}

// NewRecordStore creates a record store whose records are named
// "<prefix>-1", "<prefix>-2", ... in read order. Extra reader options are
// applied after the ID generator.
func NewRecordStore(prefix string, opts ...record.ReaderOption) *record.Collection {
	opts = append([]record.ReaderOption{record.WithIDGenerator(entity.NewSequenceGenerator(prefix))}, opts...)
	return record.NewCollection(record.NewLayerReader(opts...))
}

// CheckMirrored reports the first position at which records and layers do
// not correspond, or nil.
func CheckMirrored(records *record.Collection, layers *entity.Collection) error {
	if records.Len() != layers.Len() {
		return fmt.Errorf("length mismatch: %d records, %d entities", records.Len(), layers.Len())
	}
	for i := 0; i < layers.Len(); i++ {
		if got, want := records.At(i).Entity(), layers.At(i); got != want {
			return fmt.Errorf("position %d: record wraps %s, entity is %s", i, got.ID(), want.ID())
		}
	}
	return nil
}

// CheckSynchronized reports the first record whose synchronized properties
// differ from its entity's, or nil.
func CheckSynchronized(records *record.Collection) error {
	for i, r := range records.Items() {
		for _, key := range r.SynchronizedProperties() {
			if !ir.Equal(r.Get(key), r.Entity().Get(key)) {
				return fmt.Errorf("position %d (%s): %s is %v on the record, %v on the entity",
					i, r.Entity().ID(), key, ir.ToAny(r.Get(key)), ir.ToAny(r.Entity().Get(key)))
			}
		}
	}
	return nil
}

// EntityIDs lists the IDs of c in order.
func EntityIDs(c *entity.Collection) []string {
	out := make([]string, 0, c.Len())
	for _, e := range c.Items() {
		out = append(out, e.ID())
	}
	return out
}

// RecordEntityIDs lists, in order, the IDs of the entities records wrap.
func RecordEntityIDs(c *record.Collection) []string {
	out := make([]string, 0, c.Len())
	for _, r := range c.Items() {
		out = append(out, r.Entity().ID())
	}
	return out
}
