package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes.
// Version suffix enables future algorithm migration.
const (
	DomainSnapshot = "layersync/snapshot/v1"
	DomainTrace    = "layersync/trace/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SnapshotHash computes the content hash of an ordered layer list.
// The snapshot name is excluded: two snapshots of the same layers share a hash.
func SnapshotHash(layers []SnapshotLayer) (string, error) {
	arr := make(Array, len(layers))
	for i, l := range layers {
		arr[i] = l.object()
	}
	canonical, err := MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("SnapshotHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canonical), nil
}

// TraceHash computes the content hash of a trace, for cheap equality checks
// between runs.
func TraceHash(events []TraceEvent) (string, error) {
	canonical, err := MarshalTrace(events)
	if err != nil {
		return "", fmt.Errorf("TraceHash: %w", err)
	}
	return hashWithDomain(DomainTrace, canonical), nil
}

// MarshalTrace serializes a trace as canonical JSON.
func MarshalTrace(events []TraceEvent) ([]byte, error) {
	arr := make(Array, len(events))
	for i, ev := range events {
		arr[i] = ev.Object()
	}
	canonical, err := MarshalCanonical(arr)
	if err != nil {
		return nil, fmt.Errorf("marshal trace: %w", err)
	}
	return canonical, nil
}

// MustSnapshotHash is like SnapshotHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSnapshotHash(layers []SnapshotLayer) string {
	hash, err := SnapshotHash(layers)
	if err != nil {
		panic(err)
	}
	return hash
}
