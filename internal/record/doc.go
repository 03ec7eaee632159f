// Package record models the UI-facing side of a layer mirror.
//
// A Record wraps exactly one entity and carries a copy of its synchronized
// properties plus a few derived display fields. A Collection is the ordered
// record store: it reports load, clear, add, remove and update events on its
// public feed, and low-level replacements on a separate data feed.
//
// A Reader turns raw entities into records; LayerReader is the default.
package record
