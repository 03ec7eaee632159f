// Package entity models the mapping-engine side of a layer mirror.
//
// An Entity is a mutable property bag with change notification; identity is
// the pointer. A Collection is an ordered, identity-unique sequence of
// entities that reports structural changes with index information. A Group
// is an entity that owns a child collection, and a Map is the containing
// context that owns the root collection.
//
// Everything here is single-threaded: events are delivered synchronously
// before the mutating call returns.
package entity
