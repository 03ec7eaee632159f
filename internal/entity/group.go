package entity

import "github.com/roach88/layersync/internal/ir"

// Source is anything a mirror can bind to: a flat Collection, a Group whose
// children are the sequence to mirror, or a Map's root collection. It is a
// closed union; Resolve turns it into the single flat handle the mirror
// works with.
type Source interface {
	collection() *Collection
}

// Resolve returns the ordered collection behind src, unwrapping groups.
// It returns nil for a nil source, including a typed nil.
func Resolve(src Source) *Collection {
	if src == nil {
		return nil
	}
	return src.collection()
}

// Group is an entity that owns an ordered collection of child entities.
type Group struct {
	*Entity
	layers *Collection
}

// NewGroup creates a group entity with the given children.
func NewGroup(id string, props ir.Object, children ...*Entity) *Group {
	g := &Group{
		Entity: New(id, props),
		layers: NewCollection(children...),
	}
	g.Entity.group = g
	return g
}

// Layers returns the group's child collection.
func (g *Group) Layers() *Collection {
	return g.layers
}

func (g *Group) collection() *Collection {
	if g == nil {
		return nil
	}
	return g.layers
}

// Map is the containing context that owns the root layer collection.
type Map struct {
	id     string
	layers *Collection
}

// NewMap creates a map whose root collection holds layers in order.
func NewMap(id string, layers ...*Entity) *Map {
	return &Map{id: id, layers: NewCollection(layers...)}
}

// ID returns the map identifier.
func (m *Map) ID() string {
	return m.id
}

// Layers returns the root layer collection.
func (m *Map) Layers() *Collection {
	return m.layers
}

// AddGroup appends a group to the root collection.
func (m *Map) AddGroup(g *Group) error {
	return m.layers.Push(g.Entity)
}

func (m *Map) collection() *Collection {
	if m == nil {
		return nil
	}
	return m.layers
}
