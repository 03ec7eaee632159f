package entity

import (
	"github.com/roach88/layersync/internal/event"
	"github.com/roach88/layersync/internal/ir"
)

// PropertyChange is emitted when an entity property takes a new value.
type PropertyChange struct {
	Target *Entity
	Key    string
	Value  ir.Value
	Old    ir.Value
}

// Entity is a mutable property bag representing one map layer.
type Entity struct {
	id      string
	props   ir.Object
	changes event.Feed[PropertyChange]
	group   *Group
}

// New creates an entity with a copy of props.
func New(id string, props ir.Object) *Entity {
	e := &Entity{id: id, props: make(ir.Object, len(props))}
	for k, v := range props {
		e.props[k] = v
	}
	return e
}

// ID returns the entity's identifier. Identity comparisons use the pointer;
// the ID exists for logs, traces and snapshots.
func (e *Entity) ID() string {
	return e.id
}

// Get returns the value of key, or nil if unset.
func (e *Entity) Get(key string) ir.Value {
	return e.props[key]
}

// Set assigns key. Subscribers are notified only when the value changes.
func (e *Entity) Set(key string, value ir.Value) {
	old := e.props[key]
	if ir.IsNull(value) {
		value = ir.Null{}
	}
	e.props[key] = value
	if !ir.Equal(old, value) {
		e.changes.Emit(PropertyChange{Target: e, Key: key, Value: value, Old: old})
	}
}

// Unset removes key, notifying subscribers if it was set.
func (e *Entity) Unset(key string) {
	old, ok := e.props[key]
	if !ok {
		return
	}
	delete(e.props, key)
	if !ir.IsNull(old) {
		e.changes.Emit(PropertyChange{Target: e, Key: key, Value: nil, Old: old})
	}
}

// Keys returns the property keys in canonical order.
func (e *Entity) Keys() []string {
	return e.props.SortedKeys()
}

// Properties returns a copy of the property bag.
func (e *Entity) Properties() ir.Object {
	return e.props.Clone()
}

// Title is a convenience accessor for the title property.
func (e *Entity) Title() string {
	s, _ := e.props[ir.KeyTitle].(ir.String)
	return string(s)
}

// OnPropertyChange subscribes to property changes.
func (e *Entity) OnPropertyChange(fn func(PropertyChange)) (cancel func()) {
	return e.changes.Subscribe(fn)
}

// Group returns the group this entity is the body of, or nil for a plain layer.
func (e *Entity) Group() *Group {
	return e.group
}

// Watchers returns the number of live property-change subscriptions.
func (e *Entity) Watchers() int {
	return e.changes.Len()
}
