package mirror

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/layersync/internal/entity"
	"github.com/roach88/layersync/internal/ir"
	"github.com/roach88/layersync/internal/record"
)

// ============================================================================
// Helpers
// ============================================================================

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func traceAt(seq int64) ir.TraceEvent {
	return ir.TraceEvent{Seq: seq, Direction: ir.ToRecords, Kind: "add", Subject: "x"}
}

func layer(id string) *entity.Entity {
	return entity.New(id, ir.Object{
		ir.KeyTitle:   ir.String(id),
		ir.KeyVisible: ir.Bool(true),
		ir.KeyOpacity: ir.Float(1),
	})
}

func newRecords(opts ...record.ReaderOption) *record.Collection {
	opts = append([]record.ReaderOption{record.WithIDGenerator(entity.NewSequenceGenerator("rec"))}, opts...)
	return record.NewCollection(record.NewLayerReader(opts...))
}

type fixture struct {
	mirror  *Mirror
	records *record.Collection
	layers  *entity.Collection
	journal *Journal
	byID    map[string]*entity.Entity
}

func newFixture(t *testing.T, ids []string, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		records: newRecords(),
		journal: NewJournal(),
		byID:    make(map[string]*entity.Entity),
	}
	items := make([]*entity.Entity, 0, len(ids))
	for _, id := range ids {
		e := layer(id)
		f.byID[id] = e
		items = append(items, e)
	}
	f.layers = entity.NewCollection(items...)

	opts = append([]Option{WithLayers(f.layers), WithTracer(f.journal), WithLogger(discardLogger())}, opts...)
	f.mirror = New(f.records, opts...)
	require.True(t, f.mirror.Bound())
	return f
}

func (f *fixture) newRecord(id string) *record.Record {
	e := layer(id)
	f.byID[id] = e
	return f.records.Reader().Read(e).Records[0]
}

func entityIDs(c *entity.Collection) []string {
	out := make([]string, 0, c.Len())
	for _, e := range c.Items() {
		out = append(out, e.ID())
	}
	return out
}

func recordEntityIDs(c *record.Collection) []string {
	out := make([]string, 0, c.Len())
	for _, r := range c.Items() {
		out = append(out, r.Entity().ID())
	}
	return out
}

// requireMirrored checks positional correspondence between both sides.
func requireMirrored(t *testing.T, m *Mirror) {
	t.Helper()
	require.Equal(t, m.Layers().Len(), m.Records().Len(), "length mismatch")
	for i := 0; i < m.Layers().Len(); i++ {
		require.Same(t, m.Layers().At(i), m.Records().At(i).Entity(), "position %d", i)
	}
}

func countUpdates(c *record.Collection) *int {
	n := 0
	c.Subscribe(func(ev record.Event) {
		if _, ok := ev.(record.Update); ok {
			n++
		}
	})
	return &n
}

// ============================================================================
// Binding
// ============================================================================

func TestBind_InitialLoad(t *testing.T) {
	f := newFixture(t, []string{"e1", "e2"})

	requireMirrored(t, f.mirror)
	assert.Equal(t, []string{"e1", "e2"}, recordEntityIDs(f.records))
	assert.True(t, f.mirror.Watching(f.byID["e1"]))
	assert.True(t, f.mirror.Watching(f.byID["e2"]))
	assert.Equal(t, ir.String("e1"), f.records.At(0).Get(ir.KeyTitle))

	assert.Equal(t, []ir.TraceEvent{
		{Seq: 1, Direction: ir.ToRecords, Kind: "load", Index: 0, Subject: "e1"},
		{Seq: 2, Direction: ir.ToRecords, Kind: "load", Index: 1, Subject: "e2"},
	}, f.journal.Events())
}

func TestBind_InitialLoadIsNotWrittenBack(t *testing.T) {
	layers := entity.NewCollection(layer("e1"))
	added := 0
	layers.Subscribe(func(entity.CollectionEvent) { added++ })

	m := New(newRecords(), WithLayers(layers), WithLogger(discardLogger()))

	assert.Equal(t, 0, added)
	assert.Equal(t, 1, m.Records().Len())
}

func TestBind_ReplacesPriorRecords(t *testing.T) {
	records := newRecords()
	require.NoError(t, records.LoadRawData(false, layer("stale")))

	m := New(records, WithLayers(entity.NewCollection(layer("e1"))), WithLogger(discardLogger()))

	requireMirrored(t, m)
	assert.Equal(t, []string{"e1"}, recordEntityIDs(records))
}

func TestBind_Errors(t *testing.T) {
	m := New(newRecords(), WithLogger(discardLogger()))
	assert.False(t, m.Bound())
	assert.ErrorIs(t, m.Bind(nil, nil), ErrNoLayers)
	assert.ErrorIs(t, m.BindMap(nil), ErrNoLayers)

	assert.ErrorIs(t, m.Bind((*entity.Group)(nil), nil), ErrNoLayers)
	assert.ErrorIs(t, m.Bind((*entity.Map)(nil), nil), ErrNoLayers)
	assert.False(t, m.Bound())

	require.NoError(t, m.Bind(entity.NewCollection(), nil))
	assert.ErrorIs(t, m.Bind(entity.NewCollection(), nil), ErrAlreadyBound)
}

func TestBind_Group(t *testing.T) {
	child1, child2 := layer("c1"), layer("c2")
	g := entity.NewGroup("g", ir.Object{ir.KeyTitle: ir.String("G")}, child1, child2)

	m := New(newRecords(), WithLayers(g), WithLogger(discardLogger()))

	assert.Same(t, g.Layers(), m.Layers())
	assert.Equal(t, []string{"c1", "c2"}, recordEntityIDs(m.Records()))

	require.NoError(t, g.Layers().Push(layer("c3")))
	requireMirrored(t, m)
}

func TestBindMap_SignalsAndRemembersContext(t *testing.T) {
	mp := entity.NewMap("main", layer("e1"))
	m := New(newRecords(), WithLogger(discardLogger()))

	var got []BindEvent
	m.OnBind(func(ev BindEvent) { got = append(got, ev) })

	require.NoError(t, m.BindMap(mp))

	require.Len(t, got, 1)
	assert.Same(t, m, got[0].Mirror)
	assert.Same(t, mp, got[0].Map)
	assert.Same(t, mp, m.Map())
	assert.Same(t, mp.Layers(), m.Layers())
	requireMirrored(t, m)
}

func TestWithMap_TakesPrecedence(t *testing.T) {
	mp := entity.NewMap("main", layer("m1"))
	other := entity.NewCollection(layer("o1"))

	m := New(newRecords(), WithMap(mp), WithLayers(other), WithLogger(discardLogger()))

	assert.Same(t, mp.Layers(), m.Layers())
	assert.Same(t, mp, m.Map())
}

// ============================================================================
// Entity side -> records
// ============================================================================

func TestEntityAdded_NoEcho(t *testing.T) {
	f := newFixture(t, []string{"e1", "e2"})
	f.journal.Reset()

	recordAdds, entityAdds := 0, 0
	f.records.Subscribe(func(ev record.Event) {
		if _, ok := ev.(record.Add); ok {
			recordAdds++
		}
	})
	f.layers.Subscribe(func(ev entity.CollectionEvent) {
		if ev.Kind == entity.Added {
			entityAdds++
		}
	})

	e3 := layer("e3")
	require.NoError(t, f.layers.Push(e3))

	assert.Equal(t, 1, recordAdds)
	assert.Equal(t, 1, entityAdds)
	assert.Equal(t, []string{"e1", "e2", "e3"}, entityIDs(f.layers))
	requireMirrored(t, f.mirror)
	assert.True(t, f.mirror.Watching(e3))
	assert.Equal(t, []ir.TraceEvent{
		{Seq: 3, Direction: ir.ToRecords, Kind: "add", Index: 2, Subject: "e3"},
	}, f.journal.Events())
}

func TestEntityInsertedAtIndex(t *testing.T) {
	f := newFixture(t, []string{"e1", "e2"})

	require.NoError(t, f.layers.InsertAt(1, layer("x")))

	assert.Equal(t, []string{"e1", "x", "e2"}, recordEntityIDs(f.records))
	requireMirrored(t, f.mirror)
}

func TestEntityRemoved(t *testing.T) {
	f := newFixture(t, []string{"e1", "e2", "e3"})
	e2 := f.byID["e2"]

	assert.True(t, f.layers.Remove(e2))

	assert.Equal(t, []string{"e1", "e3"}, recordEntityIDs(f.records))
	assert.False(t, f.mirror.Watching(e2))
	assert.Equal(t, 0, e2.Watchers())
	requireMirrored(t, f.mirror)
}

func TestEntityClear(t *testing.T) {
	f := newFixture(t, []string{"e1", "e2"})

	f.layers.Clear()

	assert.Equal(t, 0, f.records.Len())
	assert.False(t, f.mirror.Watching(f.byID["e1"]))
}

func TestEntityReset(t *testing.T) {
	f := newFixture(t, []string{"e1", "e2"})
	a, b := layer("a"), layer("b")

	require.NoError(t, f.layers.Reset(a, b))

	assert.Equal(t, []string{"a", "b"}, recordEntityIDs(f.records))
	requireMirrored(t, f.mirror)
	assert.False(t, f.mirror.Watching(f.byID["e1"]))
	assert.False(t, f.mirror.Watching(f.byID["e2"]))
	assert.True(t, f.mirror.Watching(a))
	assert.True(t, f.mirror.Watching(b))

	a.Set(ir.KeyVisible, ir.Bool(false))
	assert.Equal(t, ir.Bool(false), f.records.At(0).Get(ir.KeyVisible))
}

func TestPropertyChange_Synchronized(t *testing.T) {
	f := newFixture(t, []string{"e1", "e2"})
	updates := countUpdates(f.records)

	f.byID["e1"].Set(ir.KeyVisible, ir.Bool(false))

	assert.Equal(t, ir.Bool(false), f.records.At(0).Get(ir.KeyVisible))
	assert.Equal(t, 1, *updates)
}

func TestPropertyChange_NaNSettles(t *testing.T) {
	f := newFixture(t, []string{"e1"})
	updates := countUpdates(f.records)

	f.byID["e1"].Set(ir.KeyOpacity, ir.Float(math.NaN()))

	got, ok := f.records.At(0).Get(ir.KeyOpacity).(ir.Float)
	require.True(t, ok)
	assert.True(t, math.IsNaN(float64(got)))
	assert.Equal(t, 1, *updates)

	f.byID["e1"].Set(ir.KeyOpacity, ir.Float(math.NaN()))
	assert.Equal(t, 1, *updates, "NaN over NaN is not a change")
}

func TestPropertyChange_TitleRefreshesText(t *testing.T) {
	f := newFixture(t, []string{"e1"})

	f.byID["e1"].Set(ir.KeyTitle, ir.String("Roads"))

	assert.Equal(t, ir.String("Roads"), f.records.At(0).Get(record.FieldText))
	assert.Equal(t, ir.String("Roads"), f.byID["e1"].Get(ir.KeyTitle))
}

func TestPropertyChange_Description(t *testing.T) {
	f := newFixture(t, []string{"e1"})
	updates := countUpdates(f.records)

	f.byID["e1"].Set(ir.KeyDescription, ir.String("Road network"))

	r := f.records.At(0)
	assert.Equal(t, ir.String("Road network"), r.Get(record.FieldQtip))
	assert.Nil(t, r.Get(ir.KeyDescription), "description is not synchronized by default")
	assert.Equal(t, 1, *updates)
}

func TestPropertyChange_DescriptionSynchronized(t *testing.T) {
	e1 := layer("e1")
	records := newRecords(record.WithSynchronizedProperties(ir.KeyTitle, ir.KeyDescription))
	New(records, WithLayers(entity.NewCollection(e1)), WithLogger(discardLogger()))
	updates := countUpdates(records)

	e1.Set(ir.KeyDescription, ir.String("Road network"))

	r := records.At(0)
	assert.Equal(t, ir.String("Road network"), r.Get(record.FieldQtip))
	assert.Equal(t, ir.String("Road network"), r.Get(ir.KeyDescription))
	assert.Equal(t, 2, *updates)
}

func TestPropertyChange_UnsynchronizedFiresGenericUpdate(t *testing.T) {
	f := newFixture(t, []string{"e1"})

	var got []record.Update
	f.records.Subscribe(func(ev record.Event) {
		if u, ok := ev.(record.Update); ok {
			got = append(got, u)
		}
	})

	f.byID["e1"].Set("zIndex", ir.Int(4))

	require.Len(t, got, 1)
	assert.Same(t, f.records.At(0), got[0].Record)
	assert.Equal(t, record.OpEdit, got[0].Operation)
	assert.Nil(t, got[0].Modified)
	assert.Nil(t, f.records.At(0).Get("zIndex"))
}

func TestPropertyChange_Filter(t *testing.T) {
	// Route every change to the record with ID rec-2.
	filter := func(_ *entity.Entity, r *record.Record) bool { return r.ID() == "rec-2" }
	f := newFixture(t, []string{"e1", "e2"}, WithFilter(filter))

	f.byID["e1"].Set(ir.KeyOpacity, ir.Float(0.25))

	assert.Equal(t, ir.Float(1), f.records.At(0).Get(ir.KeyOpacity))
	assert.Equal(t, ir.Float(0.25), f.records.At(1).Get(ir.KeyOpacity))
}

func TestPropertyChange_FilterMissIsSilent(t *testing.T) {
	filter := func(*entity.Entity, *record.Record) bool { return false }
	f := newFixture(t, []string{"e1"}, WithFilter(filter))
	f.journal.Reset()
	updates := countUpdates(f.records)

	f.byID["e1"].Set(ir.KeyVisible, ir.Bool(false))

	assert.Equal(t, 0, *updates)
	assert.Equal(t, 0, f.journal.Len())
}

// ============================================================================
// Record side -> entities
// ============================================================================

func TestRecordAdded_Appends(t *testing.T) {
	f := newFixture(t, []string{"e1"})
	r := f.newRecord("e2")

	require.NoError(t, f.records.Add(r))

	assert.Equal(t, []string{"e1", "e2"}, entityIDs(f.layers))
	assert.True(t, f.mirror.Watching(r.Entity()))
	requireMirrored(t, f.mirror)
}

func TestRecordInserted_KeepsPosition(t *testing.T) {
	f := newFixture(t, []string{"e1", "e2"})

	require.NoError(t, f.records.Insert(0, f.newRecord("head")))
	require.NoError(t, f.records.Insert(2, f.newRecord("a"), f.newRecord("b")))

	assert.Equal(t, []string{"head", "e1", "a", "b", "e2"}, entityIDs(f.layers))
	requireMirrored(t, f.mirror)
}

func TestRecordAdded_NoEcho(t *testing.T) {
	f := newFixture(t, []string{"e1"})
	recordAdds := 0
	f.records.Subscribe(func(ev record.Event) {
		if _, ok := ev.(record.Add); ok {
			recordAdds++
		}
	})

	require.NoError(t, f.records.Add(f.newRecord("e2")))

	assert.Equal(t, 1, recordAdds)
	assert.Equal(t, 2, f.records.Len())
}

func TestRecordRemoved(t *testing.T) {
	f := newFixture(t, []string{"e1", "e2", "e3"})
	require.NoError(t, f.layers.Push(layer("e4")))

	f.records.Remove(f.records.At(1), f.records.At(3))

	assert.Equal(t, []string{"e1", "e3"}, entityIDs(f.layers))
	assert.False(t, f.mirror.Watching(f.byID["e2"]))
	requireMirrored(t, f.mirror)
}

func TestRecordEdit_WritesEntity(t *testing.T) {
	f := newFixture(t, []string{"e1"})
	e1 := f.byID["e1"]
	changes := 0
	e1.OnPropertyChange(func(entity.PropertyChange) { changes++ })

	f.records.At(0).Set(ir.KeyOpacity, ir.Float(0.3))

	assert.Equal(t, ir.Float(0.3), e1.Get(ir.KeyOpacity))
	assert.Equal(t, 1, changes)
}

func TestRecordEdit_DerivedFieldsStayOnRecord(t *testing.T) {
	f := newFixture(t, []string{"e1"})

	f.records.At(0).Set(record.FieldQtip, ir.String("tip"))

	assert.Nil(t, f.byID["e1"].Get(record.FieldQtip))
}

func TestRecordCommit_Ignored(t *testing.T) {
	f := newFixture(t, []string{"e1"})
	f.journal.Reset()

	f.records.At(0).Commit()

	assert.Equal(t, 0, f.journal.Len())
}

func TestRecordRemoveAll_ClearsEntities(t *testing.T) {
	f := newFixture(t, []string{"e1", "e2"})

	f.records.RemoveAll()

	assert.Equal(t, 0, f.layers.Len())
	assert.Equal(t, 0, f.byID["e1"].Watchers())
	assert.Equal(t, 0, f.byID["e2"].Watchers())
}

func TestLoad_Replaces(t *testing.T) {
	f := newFixture(t, []string{"e1", "e2"})
	e9 := layer("e9")

	require.NoError(t, f.records.LoadRawData(false, e9))

	assert.Equal(t, []string{"e9"}, entityIDs(f.layers))
	assert.Equal(t, 0, f.byID["e1"].Watchers())
	assert.True(t, f.mirror.Watching(e9))
	requireMirrored(t, f.mirror)
}

func TestLoad_Appends(t *testing.T) {
	f := newFixture(t, []string{"e1", "e2"})

	require.NoError(t, f.records.LoadRawData(true, layer("e3"), layer("e4")))

	assert.Equal(t, []string{"e1", "e2", "e3", "e4"}, entityIDs(f.layers))
	assert.True(t, f.mirror.Watching(f.byID["e1"]))
	requireMirrored(t, f.mirror)
}

func TestLoad_FailureLeavesEntities(t *testing.T) {
	f := newFixture(t, []string{"e1"})

	err := f.records.LoadRawData(false, nil)

	assert.ErrorIs(t, err, record.ErrReadFailed)
	assert.Equal(t, []string{"e1"}, entityIDs(f.layers))
}

func TestLoad_AppendSkipsEntitiesAlreadyPresent(t *testing.T) {
	f := newFixture(t, []string{"e1"})
	dup := f.records.Reader().Read(f.byID["e1"]).Records[0]

	require.NoError(t, f.records.LoadRecords([]*record.Record{dup}, record.LoadOptions{AddRecords: true}))

	assert.Equal(t, []string{"e1"}, entityIDs(f.layers))
}

func TestReplace(t *testing.T) {
	f := newFixture(t, []string{"e1", "e2"})
	e1 := f.byID["e1"]
	r9 := f.newRecord("e9")

	require.NoError(t, f.records.Replace(f.records.At(0), r9))

	assert.Equal(t, []string{"e9", "e2"}, entityIDs(f.layers))
	assert.False(t, f.mirror.Watching(e1))
	assert.True(t, f.mirror.Watching(r9.Entity()))
	requireMirrored(t, f.mirror)
}

func TestReplace_SameEntity(t *testing.T) {
	f := newFixture(t, []string{"e1", "e2"})
	e1 := f.byID["e1"]
	fresh := f.records.Reader().Read(e1).Records[0]

	require.NoError(t, f.records.Replace(f.records.At(0), fresh))

	assert.Equal(t, []string{"e1", "e2"}, entityIDs(f.layers))
	assert.True(t, f.mirror.Watching(e1))
	requireMirrored(t, f.mirror)
}

// ============================================================================
// Scenario B end to end, with trace
// ============================================================================

func TestScenario_AppendThenRemoveRecord(t *testing.T) {
	f := newFixture(t, []string{"e1", "e2"})

	require.NoError(t, f.layers.Push(layer("e3")))
	f.records.Remove(f.records.At(1))

	assert.Equal(t, []string{"e1", "e3"}, entityIDs(f.layers))
	requireMirrored(t, f.mirror)
	assert.Equal(t, []ir.TraceEvent{
		{Seq: 1, Direction: ir.ToRecords, Kind: "load", Index: 0, Subject: "e1"},
		{Seq: 2, Direction: ir.ToRecords, Kind: "load", Index: 1, Subject: "e2"},
		{Seq: 3, Direction: ir.ToRecords, Kind: "add", Index: 2, Subject: "e3"},
		{Seq: 4, Direction: ir.ToEntities, Kind: "remove", Index: 1, Subject: "e2"},
	}, f.journal.Events())
}

// ============================================================================
// Synchronize and lookup
// ============================================================================

func TestSynchronize_Idempotent(t *testing.T) {
	src := entity.New("src", ir.Object{ir.KeyVisible: ir.Bool(false)})
	dst := entity.New("dst", ir.Object{ir.KeyVisible: ir.Bool(true)})
	changes := 0
	dst.OnPropertyChange(func(entity.PropertyChange) { changes++ })

	assert.True(t, Synchronize(dst, src, ir.KeyVisible))
	assert.False(t, Synchronize(dst, src, ir.KeyVisible))

	assert.Equal(t, ir.Bool(false), dst.Get(ir.KeyVisible))
	assert.Equal(t, 1, changes)
}

func TestSynchronize_NumericEquality(t *testing.T) {
	src := entity.New("src", ir.Object{ir.KeyOpacity: ir.Int(1)})
	dst := entity.New("dst", ir.Object{ir.KeyOpacity: ir.Float(1)})

	assert.False(t, Synchronize(dst, src, ir.KeyOpacity))
}

func TestGetByEntity(t *testing.T) {
	f := newFixture(t, []string{"e1", "e2"})

	assert.Same(t, f.records.At(1), f.mirror.GetByEntity(f.byID["e2"], nil))
	assert.Nil(t, f.mirror.GetByEntity(layer("stranger"), nil))

	byTitle := func(e *entity.Entity, r *record.Record) bool {
		return ir.Equal(r.Get(ir.KeyTitle), ir.String("e1"))
	}
	assert.Same(t, f.records.At(0), f.mirror.GetByEntity(f.byID["e2"], byTitle))
}

// ============================================================================
// Lifecycle
// ============================================================================

func TestUnbind_StopsStructuralMirroring(t *testing.T) {
	f := newFixture(t, []string{"e1"})

	f.mirror.Unbind()
	assert.False(t, f.mirror.Bound())

	require.NoError(t, f.layers.Push(layer("e2")))
	assert.Equal(t, 1, f.records.Len())

	// Property subscriptions survive Unbind.
	f.byID["e1"].Set(ir.KeyVisible, ir.Bool(false))
	assert.Equal(t, ir.Bool(false), f.records.At(0).Get(ir.KeyVisible))

	f.mirror.Unbind()
	assert.Equal(t, 0, f.records.Subscribers())
}

func TestRebind_KeepsHeldCollection(t *testing.T) {
	f := newFixture(t, []string{"e1"})
	f.mirror.Unbind()

	require.NoError(t, f.mirror.Bind(entity.NewCollection(layer("other")), nil))

	assert.Same(t, f.layers, f.mirror.Layers())
	assert.Equal(t, []string{"e1"}, recordEntityIDs(f.records))
}

func TestUnbindMap_ForgetsContext(t *testing.T) {
	mp := entity.NewMap("main", layer("e1"))
	m := New(newRecords(), WithMap(mp), WithLogger(discardLogger()))

	m.UnbindMap()

	assert.Nil(t, m.Map())
	assert.False(t, m.Bound())
	assert.Same(t, mp.Layers(), m.Layers())
}

func TestClose_DropsEverySubscription(t *testing.T) {
	f := newFixture(t, []string{"e1", "e2"})

	f.mirror.Close()

	assert.False(t, f.mirror.Bound())
	assert.Equal(t, 0, f.layers.Subscribers())
	assert.Equal(t, 0, f.records.Subscribers())
	assert.Equal(t, 0, f.byID["e1"].Watchers())
	assert.Equal(t, 0, f.byID["e2"].Watchers())

	f.byID["e1"].Set(ir.KeyVisible, ir.Bool(false))
	assert.Equal(t, ir.Bool(true), f.records.At(0).Get(ir.KeyVisible))
}

func TestWithClock_ContinuesSequence(t *testing.T) {
	f := newFixture(t, []string{"e1"}, WithClock(NewClockAt(40)))

	events := f.journal.Events()
	require.Len(t, events, 1)
	assert.Equal(t, int64(41), events[0].Seq)
}

// ============================================================================
// Positional invariant under a random mix of operations
// ============================================================================

func TestInvariant_RandomOperations(t *testing.T) {
	f := newFixture(t, []string{"e0", "e1", "e2"})
	rng := rand.New(rand.NewPCG(7, 11))
	next := 3

	fresh := func() *entity.Entity {
		next++
		return layer(fmt.Sprintf("n%d", next))
	}

	for step := 0; step < 500; step++ {
		n := f.layers.Len()
		switch op := rng.IntN(10); {
		case op == 0:
			require.NoError(t, f.layers.Push(fresh()))
		case op == 1:
			require.NoError(t, f.layers.InsertAt(rng.IntN(n+1), fresh()))
		case op == 2 && n > 0:
			f.layers.Remove(f.layers.At(rng.IntN(n)))
		case op == 3:
			r := f.records.Reader().Read(fresh()).Records[0]
			require.NoError(t, f.records.Insert(rng.IntN(n+1), r))
		case op == 4 && n > 0:
			f.records.Remove(f.records.At(rng.IntN(n)))
		case op == 5 && n > 0:
			f.layers.At(rng.IntN(n)).Set(ir.KeyVisible, ir.Bool(rng.IntN(2) == 0))
		case op == 6 && n > 0:
			f.records.At(rng.IntN(n)).Set(ir.KeyOpacity, ir.Float(float64(rng.IntN(10))/10))
		case op == 7 && n > 0:
			r := f.records.Reader().Read(fresh()).Records[0]
			require.NoError(t, f.records.Replace(f.records.At(rng.IntN(n)), r))
		case op == 8:
			require.NoError(t, f.records.LoadRawData(true, fresh(), fresh()))
		case op == 9 && n > 12:
			require.NoError(t, f.records.LoadRawData(false, fresh()))
		}
		requireMirrored(t, f.mirror)

		for i := 0; i < f.records.Len(); i++ {
			r := f.records.At(i)
			for _, key := range r.SynchronizedProperties() {
				require.True(t, ir.Equal(r.Get(key), r.Entity().Get(key)), "step %d: %s differs", step, key)
			}
		}
	}
}
