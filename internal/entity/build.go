package entity

import "github.com/roach88/layersync/internal/ir"

// BuildMap creates a map whose root collection holds one entity per spec,
// in order. Group specs become Groups with their children built recursively.
//
// When gen is nil the spec name is used as the entity ID.
func BuildMap(id string, specs []ir.LayerSpec, gen IDGenerator) *Map {
	return NewMap(id, Build(specs, gen)...)
}

// Build creates one entity per spec, in order.
func Build(specs []ir.LayerSpec, gen IDGenerator) []*Entity {
	out := make([]*Entity, 0, len(specs))
	for _, spec := range specs {
		out = append(out, build(spec, gen))
	}
	return out
}

func build(spec ir.LayerSpec, gen IDGenerator) *Entity {
	id := spec.Name
	if gen != nil {
		id = gen.Generate()
	}
	if !spec.IsGroup() {
		return New(id, spec.Props())
	}
	return NewGroup(id, spec.Props(), Build(spec.Layers, gen)...).Entity
}

// Describe captures the entities of c, in order, as snapshot layers.
// Groups are described with their children.
func Describe(c *Collection) []ir.SnapshotLayer {
	out := make([]ir.SnapshotLayer, 0, c.Len())
	for _, e := range c.items {
		layer := ir.SnapshotLayer{ID: e.ID(), Properties: e.Properties()}
		if g := e.Group(); g != nil {
			layer.Group = true
			layer.Children = Describe(g.Layers())
		}
		out = append(out, layer)
	}
	return out
}

// Restore rebuilds a map from snapshot layers, keeping their IDs.
func Restore(id string, layers []ir.SnapshotLayer) *Map {
	return NewMap(id, restoreAll(layers)...)
}

func restoreAll(layers []ir.SnapshotLayer) []*Entity {
	out := make([]*Entity, 0, len(layers))
	for _, l := range layers {
		if !l.Group {
			out = append(out, New(l.ID, l.Properties))
			continue
		}
		out = append(out, NewGroup(l.ID, l.Properties, restoreAll(l.Children)...).Entity)
	}
	return out
}
