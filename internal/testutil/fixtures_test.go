package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/layersync/internal/entity"
	"github.com/roach88/layersync/internal/ir"
	"github.com/roach88/layersync/internal/record"
)

func TestLayer(t *testing.T) {
	e := Layer("roads", ir.P(ir.KeyOpacity, ir.Float(0.5)), ir.P("zIndex", ir.Int(2)))

	assert.Equal(t, "roads", e.ID())
	assert.Equal(t, "roads", e.Title())
	assert.Equal(t, ir.Bool(true), e.Get(ir.KeyVisible))
	assert.Equal(t, ir.Float(0.5), e.Get(ir.KeyOpacity))
	assert.Equal(t, ir.Int(2), e.Get("zIndex"))
}

func TestNewRecordStore_DeterministicIDs(t *testing.T) {
	records := NewRecordStore("r", record.WithSynchronizedProperties(ir.KeyTitle))
	require.NoError(t, records.LoadRawData(false, Layer("a"), Layer("b")))

	assert.Equal(t, "r-1", records.At(0).ID())
	assert.Equal(t, "r-2", records.At(1).ID())
	assert.Equal(t, []string{ir.KeyTitle}, records.At(0).SynchronizedProperties())
}

func TestCheckMirrored(t *testing.T) {
	a, b := Layer("a"), Layer("b")
	records := NewRecordStore("r")
	require.NoError(t, records.LoadRawData(false, a, b))

	assert.NoError(t, CheckMirrored(records, entity.NewCollection(a, b)))
	assert.ErrorContains(t, CheckMirrored(records, entity.NewCollection(b, a)), "position 0")
	assert.ErrorContains(t, CheckMirrored(records, entity.NewCollection(a)), "length mismatch")
}

func TestCheckSynchronized(t *testing.T) {
	a := Layer("a")
	records := NewRecordStore("r")
	require.NoError(t, records.LoadRawData(false, a))
	assert.NoError(t, CheckSynchronized(records))

	a.Set(ir.KeyVisible, ir.Bool(false))
	assert.ErrorContains(t, CheckSynchronized(records), "visible")
}

func TestIDLists(t *testing.T) {
	a, b := Layer("a"), Layer("b")
	records := NewRecordStore("r")
	require.NoError(t, records.LoadRawData(false, b, a))

	assert.Equal(t, []string{"a", "b"}, EntityIDs(entity.NewCollection(a, b)))
	assert.Equal(t, []string{"b", "a"}, RecordEntityIDs(records))
}
