package mirror

import (
	"github.com/roach88/layersync/internal/entity"
	"github.com/roach88/layersync/internal/ir"
	"github.com/roach88/layersync/internal/record"
)

// ============================================================================
// Entity collection -> record store
// ============================================================================

func (m *Mirror) onEntityEvent(ev entity.CollectionEvent) {
	switch ev.Kind {
	case entity.Added:
		m.onEntityAdded(ev)
	case entity.Removed:
		m.onEntityRemoved(ev)
	}
}

// onEntityAdded reads the new entity into a record and inserts it at the
// same index. The pair is bound after the guard is released whether or not
// this handler inserted, so an entity added by onAdd still gets its
// record seeded.
func (m *Mirror) onEntityAdded(ev entity.CollectionEvent) {
	e := ev.Entity
	if !m.guard.held(adding) {
		m.guard.hold(adding, func() {
			result := m.records.Reader().Read(e)
			if !result.Success {
				m.logger.Warn("reader failed for added entity", "entity", e.ID())
				return
			}
			if err := m.records.Insert(ev.Index, result.Records...); err != nil {
				m.logger.Error("insert record for added entity failed",
					"entity", e.ID(),
					"index", ev.Index,
					"error", err,
				)
				return
			}
			m.trace(ir.ToRecords, "add", ev.Index, e, "")
		})
	}
	m.bindPair(e, m.GetByEntity(e, nil))
}

// onEntityRemoved removes the record wrapping the removed entity.
func (m *Mirror) onEntityRemoved(ev entity.CollectionEvent) {
	if m.guard.held(removing) {
		return
	}
	r := m.GetByEntity(ev.Entity, nil)
	if r == nil {
		return
	}
	m.guard.hold(removing, func() {
		index := m.records.IndexOf(r)
		m.unwatch(ev.Entity)
		m.records.Remove(r)
		m.trace(ir.ToRecords, "remove", index, ev.Entity, "")
	})
}

// onEntityChanged mirrors one property change into the matching record.
// Description also drives the record's tooltip. Keys the record does not
// synchronize produce a generic edit update with no field list.
func (m *Mirror) onEntityChanged(pc entity.PropertyChange) {
	e := pc.Target
	r := m.GetByEntity(e, m.filter)
	if r == nil {
		return
	}
	index := m.records.IndexOf(r)

	switch {
	case pc.Key == ir.KeyDescription:
		r.Set(record.FieldQtip, e.Get(ir.KeyDescription))
		m.trace(ir.ToRecords, "qtip", index, e, pc.Key)
		if r.IsSynchronized(pc.Key) && Synchronize(r, e, pc.Key) {
			m.trace(ir.ToRecords, "sync", index, e, pc.Key)
		}
	case r.IsSynchronized(pc.Key):
		if Synchronize(r, e, pc.Key) {
			m.trace(ir.ToRecords, "sync", index, e, pc.Key)
		}
	default:
		m.records.FireUpdate(r, record.OpEdit, nil)
		m.trace(ir.ToRecords, "touch", index, e, pc.Key)
	}
}

// ============================================================================
// Record store -> entity collection
// ============================================================================

func (m *Mirror) onRecordEvent(ev record.Event) {
	switch ev := ev.(type) {
	case record.Load:
		m.onLoad(ev)
	case record.Clear:
		m.onClear()
	case record.Add:
		m.onAdd(ev)
	case record.Remove:
		m.onRemove(ev)
	case record.Update:
		m.onUpdate(ev)
	}
}

// onLoad mirrors a successful bulk load. Unless the records were appended,
// the entity collection is cleared first.
func (m *Mirror) onLoad(ev record.Load) {
	if !ev.Successful {
		return
	}
	if !ev.AddRecords {
		m.clearLayers()
	}
	if len(ev.Records) == 0 {
		return
	}

	loaded := make([]*entity.Entity, 0, len(ev.Records))
	for _, r := range ev.Records {
		e := r.Entity()
		m.bindPair(e, r)
		loaded = append(loaded, e)
	}
	m.guard.hold(adding, func() {
		for _, e := range loaded {
			if m.layers.Contains(e) {
				m.logger.Warn("loaded entity already in collection", "entity", e.ID())
				continue
			}
			if err := m.layers.Push(e); err != nil {
				m.logger.Error("append loaded entity failed", "entity", e.ID(), "error", err)
				continue
			}
			m.trace(ir.ToEntities, "add", m.layers.Len()-1, e, "")
		}
	})
}

func (m *Mirror) onClear() {
	m.clearLayers()
}

// clearLayers drops every entity and its property subscription under the
// removing guard.
func (m *Mirror) clearLayers() {
	items := m.layers.Items()
	m.guard.hold(removing, func() {
		m.unwatchAll(items)
		m.layers.Clear()
	})
	for i := len(items) - 1; i >= 0; i-- {
		m.trace(ir.ToEntities, "clear", i, items[i], "")
	}
}

// onAdd inserts the entities of added records at the matching positions.
// An index at or past the end appends.
func (m *Mirror) onAdd(ev record.Add) {
	if m.guard.held(adding) {
		return
	}
	m.guard.hold(adding, func() {
		for i, r := range ev.Records {
			e := r.Entity()
			m.bindPair(e, r)
			if m.layers.Contains(e) {
				m.logger.Debug("added record's entity already mirrored", "entity", e.ID())
				continue
			}

			index := ev.Index + i
			var err error
			if index >= m.layers.Len() {
				index = m.layers.Len()
				err = m.layers.Push(e)
			} else {
				err = m.layers.InsertAt(index, e)
			}
			if err != nil {
				m.logger.Error("insert entity for added record failed",
					"entity", e.ID(),
					"index", index,
					"error", err,
				)
				continue
			}
			m.trace(ir.ToEntities, "add", index, e, "")
		}
	})
}

// onRemove removes the entities of removed records that are still present.
func (m *Mirror) onRemove(ev record.Remove) {
	if m.guard.held(removing) {
		return
	}
	for _, r := range ev.Records {
		e := r.Entity()
		m.unwatch(e)
		index := m.layers.IndexOf(e)
		if index < 0 {
			continue
		}
		m.guard.hold(removing, func() {
			m.layers.Remove(e)
		})
		m.trace(ir.ToEntities, "remove", index, e, "")
	}
}

// onUpdate mirrors committed field edits back to the entity.
func (m *Mirror) onUpdate(ev record.Update) {
	if ev.Operation != record.OpEdit || ev.Modified == nil {
		return
	}
	r := ev.Record
	e := r.Entity()
	for _, key := range ev.Modified {
		if r.IsSynchronized(key) && Synchronize(e, r, key) {
			m.trace(ir.ToEntities, "sync", m.layers.IndexOf(e), e, key)
		}
	}
}

// onReplace removes the entity of a superseded record. It runs regardless
// of the guards. When the new record wraps the same entity nothing moves.
func (m *Mirror) onReplace(ev record.Replace) {
	e := ev.Old.Entity()
	if ev.New != nil && ev.New.Entity() == e {
		return
	}
	m.unwatch(e)
	index := m.layers.IndexOf(e)
	if index < 0 {
		return
	}
	m.layers.Remove(e)
	m.trace(ir.ToEntities, "replace", index, e, "")
}
