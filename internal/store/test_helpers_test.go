package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/layersync/internal/ir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEvent creates a trace event with minimal required fields.
func createTestEvent(seq int64, kind, subject string) ir.TraceEvent {
	return ir.TraceEvent{
		Seq:       seq,
		Direction: ir.ToRecords,
		Kind:      kind,
		Index:     int(seq - 1),
		Subject:   subject,
	}
}

// sampleLayers returns a two-level layer tree.
func sampleLayers() []ir.SnapshotLayer {
	return []ir.SnapshotLayer{
		{ID: "osm", Properties: ir.Object{ir.KeyTitle: ir.String("OSM"), ir.KeyOpacity: ir.Float(0.5)}},
		{ID: "overlays", Group: true, Properties: ir.Object{ir.KeyTitle: ir.String("Overlays")}, Children: []ir.SnapshotLayer{
			{ID: "roads", Properties: ir.Object{ir.KeyVisible: ir.Bool(true)}},
			{ID: "empty", Group: true, Properties: ir.Object{}, Children: []ir.SnapshotLayer{}},
		}},
		{ID: "labels", Properties: ir.Object{"zIndex": ir.Int(9)}},
	}
}
