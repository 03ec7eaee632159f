package ir

// Well-known property keys shared by entities and records.
const (
	KeyName        = "name"
	KeyTitle       = "title"
	KeyDescription = "description"
	KeyVisible     = "visible"
	KeyOpacity     = "opacity"
)

// LayerSpec is the declarative description of a layer or layer group,
// produced by the CUE compiler and by harness scenarios.
type LayerSpec struct {
	Name        string      `json:"name" yaml:"name"`
	Title       string      `json:"title" yaml:"title"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Visible     bool        `json:"visible" yaml:"visible"`
	Opacity     float64     `json:"opacity" yaml:"opacity"`
	Properties  Object      `json:"properties,omitempty" yaml:"-"`
	Group       bool        `json:"group,omitempty" yaml:"group,omitempty"`
	Layers      []LayerSpec `json:"layers,omitempty" yaml:"layers,omitempty"`
}

// Props returns the property bag an entity built from this spec starts with.
// Extra properties never override the well-known keys.
func (s LayerSpec) Props() Object {
	props := make(Object, len(s.Properties)+5)
	for k, v := range s.Properties {
		props[k] = v
	}
	props[KeyName] = String(s.Name)
	props[KeyTitle] = String(s.Title)
	props[KeyVisible] = Bool(s.Visible)
	props[KeyOpacity] = Float(s.Opacity)
	if s.Description != "" {
		props[KeyDescription] = String(s.Description)
	}
	return props
}

// IsGroup reports whether the spec describes a layer group.
func (s LayerSpec) IsGroup() bool {
	return s.Group || len(s.Layers) > 0
}

// Direction names which side of a mirror a propagation wrote to.
type Direction string

const (
	// ToRecords marks propagation from the entity collection into records.
	ToRecords Direction = "to_records"
	// ToEntities marks propagation from the record collection into entities.
	ToEntities Direction = "to_entities"
)

// TraceEvent is one propagation performed by a mirror.
type TraceEvent struct {
	Seq       int64     `json:"seq"`
	Direction Direction `json:"direction"`
	Kind      string    `json:"kind"`
	Index     int       `json:"index"`
	Subject   string    `json:"subject"`       // entity ID
	Key       string    `json:"key,omitempty"` // property key for property propagation
}

// Object returns the event as an Object for canonical serialization.
func (e TraceEvent) Object() Object {
	obj := Object{
		"seq":       Int(e.Seq),
		"direction": String(e.Direction),
		"kind":      String(e.Kind),
		"index":     Int(e.Index),
		"subject":   String(e.Subject),
	}
	if e.Key != "" {
		obj["key"] = String(e.Key)
	}
	return obj
}

// Snapshot is a persisted copy of an entity collection.
type Snapshot struct {
	Name   string          `json:"name"`
	Hash   string          `json:"hash"`
	Layers []SnapshotLayer `json:"layers"`
}

// SnapshotLayer is one entity in a snapshot. Groups carry their children.
type SnapshotLayer struct {
	ID         string          `json:"id"`
	Group      bool            `json:"group,omitempty"`
	Properties Object          `json:"properties"`
	Children   []SnapshotLayer `json:"children,omitempty"`
}

func (l SnapshotLayer) object() Object {
	children := make(Array, len(l.Children))
	for i, c := range l.Children {
		children[i] = c.object()
	}
	return Object{
		"id":         String(l.ID),
		"group":      Bool(l.Group),
		"properties": l.Properties,
		"children":   children,
	}
}
