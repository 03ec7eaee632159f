// Package testutil provides deterministic fixtures and invariant checks for
// tests and the scenario harness.
package testutil
