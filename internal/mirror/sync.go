package mirror

import (
	"github.com/roach88/layersync/internal/entity"
	"github.com/roach88/layersync/internal/ir"
	"github.com/roach88/layersync/internal/record"
)

// PropertyBag is the view Synchronize needs of either side.
// Both *entity.Entity and *record.Record satisfy it.
type PropertyBag interface {
	Get(key string) ir.Value
	Set(key string, value ir.Value)
}

// Synchronize copies src's key into dst when the two values differ and
// reports whether it wrote. Equal values are left alone so no change
// notification fires.
func Synchronize(dst, src PropertyBag, key string) bool {
	value := src.Get(key)
	if ir.Equal(value, dst.Get(key)) {
		return false
	}
	dst.Set(key, value)
	return true
}

// GetByEntity returns the record wrapping e, or the first record accepted
// by filter when filter is non-nil. It returns nil when nothing matches.
func (m *Mirror) GetByEntity(e *entity.Entity, filter FilterFunc) *record.Record {
	var i int
	if filter != nil {
		i = m.records.FindBy(func(r *record.Record) bool { return filter(e, r) })
	} else {
		i = m.records.FindBy(func(r *record.Record) bool { return r.Entity() == e })
	}
	return m.records.At(i)
}
