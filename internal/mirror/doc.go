// Package mirror keeps a record collection and an entity collection in
// step, in both directions, without echoing changes back to their origin.
//
// A Mirror subscribes to the structural events of both collections, to the
// property changes of every mirrored entity and to the record store's
// update and replace events. Each handler reacts to one side by mutating
// the other. Two guard flags, adding and removing, stop the mutation a
// handler performs from being handled again as if it came from outside.
//
// While bound, the record at position i wraps the entity at position i,
// except inside a single handler.
//
// Everything runs synchronously on the caller's goroutine. A Mirror is not
// safe for concurrent use.
package mirror
