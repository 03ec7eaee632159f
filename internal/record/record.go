package record

import (
	"slices"

	"github.com/roach88/layersync/internal/entity"
	"github.com/roach88/layersync/internal/ir"
)

// Derived display fields. They are never synchronized back to the entity.
const (
	FieldText    = "text"
	FieldQtip    = "qtip"
	FieldIsGroup = "isGroup"
)

// DefaultSynchronizedProperties is the property list records carry unless
// the reader is configured otherwise.
var DefaultSynchronizedProperties = []string{ir.KeyTitle, ir.KeyVisible, ir.KeyOpacity}

// Record is the UI-side view of one entity.
type Record struct {
	id     string
	entity *entity.Entity
	fields ir.Object
	synced []string
	dirty  bool
	owner  *Collection
}

// New creates a record for e. Synchronized properties and derived fields are
// seeded from the entity's current values.
func New(id string, e *entity.Entity, synced []string) *Record {
	r := &Record{
		id:     id,
		entity: e,
		fields: make(ir.Object, len(synced)+3),
		synced: slices.Clone(synced),
	}
	for _, key := range synced {
		if v := e.Get(key); v != nil {
			r.fields[key] = v
		}
	}
	if title, ok := e.Get(ir.KeyTitle).(ir.String); ok {
		r.fields[FieldText] = title
	}
	if desc := e.Get(ir.KeyDescription); desc != nil {
		r.fields[FieldQtip] = desc
	}
	r.fields[FieldIsGroup] = ir.Bool(e.Group() != nil)
	return r
}

// ID returns the record identifier.
func (r *Record) ID() string {
	return r.id
}

// Entity returns the entity this record wraps.
func (r *Record) Entity() *entity.Entity {
	return r.entity
}

// Get returns the value of field key, or nil if unset.
func (r *Record) Get(key string) ir.Value {
	return r.fields[key]
}

// Fields returns a copy of all fields.
func (r *Record) Fields() ir.Object {
	return r.fields.Clone()
}

// Set assigns one field. See SetFields.
func (r *Record) Set(key string, value ir.Value) {
	r.SetFields(ir.Object{key: value})
}

// SetFields assigns several fields at once and returns the names that
// actually changed, in canonical order. A title change also refreshes the
// text field.
//
// When the record is in a collection, one Edit update carrying the modified
// names is fired on that collection.
func (r *Record) SetFields(values ir.Object) []string {
	var modified []string
	for _, key := range values.SortedKeys() {
		if r.assign(key, values[key]) {
			modified = append(modified, key)
		}
	}
	if slices.Contains(modified, ir.KeyTitle) && !slices.Contains(modified, FieldText) {
		if title, ok := r.fields[ir.KeyTitle].(ir.String); ok && r.assign(FieldText, title) {
			modified = append(modified, FieldText)
		}
	}
	if len(modified) == 0 {
		return nil
	}

	r.dirty = true
	if r.owner != nil {
		r.owner.FireUpdate(r, OpEdit, modified)
	}
	return modified
}

func (r *Record) assign(key string, value ir.Value) bool {
	if ir.IsNull(value) {
		value = ir.Null{}
	}
	if ir.Equal(r.fields[key], value) {
		return false
	}
	r.fields[key] = value
	return true
}

// Dirty reports whether the record has uncommitted edits.
func (r *Record) Dirty() bool {
	return r.dirty
}

// Commit accepts pending edits and fires a Commit update.
func (r *Record) Commit() {
	r.dirty = false
	if r.owner != nil {
		r.owner.FireUpdate(r, OpCommit, nil)
	}
}

// SynchronizedProperties returns the names kept equal with the entity.
func (r *Record) SynchronizedProperties() []string {
	return slices.Clone(r.synced)
}

// IsSynchronized reports whether key is a synchronized property.
func (r *Record) IsSynchronized(key string) bool {
	return slices.Contains(r.synced, key)
}
