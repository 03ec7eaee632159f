// Package store provides SQLite-backed persistence for mirror trace
// journals and layer snapshots.
//
// Trace events are keyed by (session, seq) and written idempotently, so a
// journal can be flushed more than once. Snapshots are stored as a header
// row plus one row per layer in pre-order; the content hash is verified on
// load.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Property bags are stored as canonical JSON (see ir.MarshalCanonical).
package store
