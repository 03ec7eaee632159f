// Package ir provides the shared value and data types for layersync.
//
// All other internal packages import ir; ir imports nothing internal. Entities
// and records both store their properties as ir.Value, which keeps property
// comparison (the basis of loop-free synchronization) well defined.
//
// Key design constraints:
//   - Value is a sealed interface; only the types in value.go implement it
//   - A missing property and an explicit Null compare equal
//   - Floats must be finite to be serialized canonically
//   - Logical clocks (seq) only, never wall-clock timestamps
package ir
