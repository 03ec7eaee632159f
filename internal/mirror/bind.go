package mirror

import (
	"fmt"

	"github.com/roach88/layersync/internal/entity"
	"github.com/roach88/layersync/internal/ir"
	"github.com/roach88/layersync/internal/record"
)

// Bind establishes the mirror with the entity collection behind src, and
// remembers ctx as the containing context when given.
//
// The mirror adopts src only if it does not already hold a collection; a
// mirror that was unbound rebinds to the collection it held before. The
// current entities are read into records in one batch, replacing the
// store's content, before any subscription exists, so the initial load is
// never written back. Each pair is then bound and the structural
// subscriptions are installed.
func (m *Mirror) Bind(src entity.Source, ctx *entity.Map) error {
	if m.Bound() {
		return ErrAlreadyBound
	}
	if m.layers == nil {
		m.layers = entity.Resolve(src)
	}
	if m.layers == nil {
		return ErrNoLayers
	}
	if ctx != nil && m.ctx == nil {
		m.ctx = ctx
	}

	items := m.layers.Items()
	if err := m.records.LoadRawData(false, items...); err != nil {
		return fmt.Errorf("initial load: %w", err)
	}
	for i, e := range items {
		m.trace(ir.ToRecords, "load", i, e, "")
	}
	for _, e := range items {
		m.bindPair(e, m.GetByEntity(e, nil))
	}

	m.subs = append(m.subs,
		m.layers.Subscribe(m.onEntityEvent),
		m.records.Subscribe(m.onRecordEvent),
		m.records.SubscribeData(m.onReplace),
	)

	m.logger.Info("mirror bound",
		"layers", m.layers.Len(),
		"records", m.records.Len(),
		"map", mapID(ctx),
	)
	m.binds.Emit(BindEvent{Mirror: m, Map: ctx})
	return nil
}

// BindMap remembers ctx, if no context is held yet, and binds its root
// collection.
func (m *Mirror) BindMap(ctx *entity.Map) error {
	if ctx == nil {
		return ErrNoLayers
	}
	if m.ctx == nil {
		m.ctx = ctx
	}
	return m.Bind(ctx, ctx)
}

// Unbind removes the structural and replace subscriptions. Per-entity
// property subscriptions are left in place; they are dropped when the
// entity leaves the collection, or by Close.
func (m *Mirror) Unbind() {
	if !m.Bound() {
		return
	}
	for _, cancel := range m.subs {
		cancel()
	}
	m.subs = nil
	m.logger.Info("mirror unbound", "layers", m.layers.Len(), "records", m.records.Len())
}

// UnbindMap unbinds and forgets the containing context.
func (m *Mirror) UnbindMap() {
	m.Unbind()
	m.ctx = nil
}

// Close tears the mirror down: UnbindMap, then drop every property
// subscription.
func (m *Mirror) Close() {
	m.UnbindMap()
	for e := range m.watched {
		m.unwatch(e)
	}
}

// bindPair subscribes to e's property changes, once, and seeds r's
// synchronized properties from e. A nil r only subscribes.
func (m *Mirror) bindPair(e *entity.Entity, r *record.Record) {
	if _, ok := m.watched[e]; !ok {
		m.watched[e] = e.OnPropertyChange(m.onEntityChanged)
	}
	if r == nil {
		return
	}
	for _, key := range r.SynchronizedProperties() {
		if Synchronize(r, e, key) {
			m.trace(ir.ToRecords, "sync", m.records.IndexOf(r), e, key)
		}
	}
}

func (m *Mirror) unwatch(e *entity.Entity) {
	if cancel, ok := m.watched[e]; ok {
		cancel()
		delete(m.watched, e)
	}
}

func (m *Mirror) unwatchAll(items []*entity.Entity) {
	for _, e := range items {
		m.unwatch(e)
	}
}

// trace stamps and publishes one propagation.
func (m *Mirror) trace(dir ir.Direction, kind string, index int, e *entity.Entity, key string) {
	ev := ir.TraceEvent{
		Seq:       m.clock.Next(),
		Direction: dir,
		Kind:      kind,
		Index:     index,
		Subject:   e.ID(),
		Key:       key,
	}
	m.logger.Debug("mirror propagated",
		"seq", ev.Seq,
		"direction", dir,
		"kind", kind,
		"index", index,
		"entity", ev.Subject,
		"key", key,
	)
	if m.tracer != nil {
		m.tracer.Trace(ev)
	}
}

func mapID(ctx *entity.Map) string {
	if ctx == nil {
		return ""
	}
	return ctx.ID()
}
