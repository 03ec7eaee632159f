package mirror

import (
	"log/slog"

	"github.com/roach88/layersync/internal/entity"
	"github.com/roach88/layersync/internal/event"
	"github.com/roach88/layersync/internal/record"
)

// FilterFunc selects the record that corresponds to an entity when a
// property change is handled. When unset, the record wrapping the entity is
// used.
type FilterFunc func(e *entity.Entity, r *record.Record) bool

// BindEvent is published once a Bind completes.
type BindEvent struct {
	Mirror *Mirror
	Map    *entity.Map
}

// Mirror is the live binding between a record store and an entity collection.
type Mirror struct {
	records *record.Collection
	layers  *entity.Collection
	ctx     *entity.Map

	filter FilterFunc
	logger *slog.Logger
	tracer Tracer
	clock  *Clock

	guard   guard
	subs    []func()
	watched map[*entity.Entity]func()
	binds   event.Feed[BindEvent]

	// initial source applied by New
	source entity.Source
	srcMap *entity.Map
}

// Option configures a Mirror.
type Option func(*Mirror)

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mirror) {
		m.logger = logger
	}
}

// WithFilter sets the record lookup used for property changes.
func WithFilter(fn FilterFunc) Option {
	return func(m *Mirror) {
		m.filter = fn
	}
}

// WithTracer sends every propagation to t.
func WithTracer(t Tracer) Option {
	return func(m *Mirror) {
		m.tracer = t
	}
}

// WithClock sets the clock that stamps trace events.
func WithClock(c *Clock) Option {
	return func(m *Mirror) {
		m.clock = c
	}
}

// WithLayers binds src when the mirror is created.
func WithLayers(src entity.Source) Option {
	return func(m *Mirror) {
		m.source = src
	}
}

// WithMap binds the map's root collection when the mirror is created.
// It takes precedence over WithLayers.
func WithMap(ctx *entity.Map) Option {
	return func(m *Mirror) {
		m.srcMap = ctx
	}
}

// New creates a mirror over records. With WithMap or WithLayers it is bound
// immediately; otherwise call Bind or BindMap.
func New(records *record.Collection, opts ...Option) *Mirror {
	m := &Mirror{
		records: records,
		logger:  slog.Default(),
		clock:   NewClock(),
		watched: make(map[*entity.Entity]func()),
	}
	for _, opt := range opts {
		opt(m)
	}

	// A fresh mirror holds no subscriptions, so binding cannot fail with
	// ErrAlreadyBound, and a nil source is simply left unbound.
	switch {
	case m.srcMap != nil:
		_ = m.BindMap(m.srcMap)
	case m.source != nil:
		_ = m.Bind(m.source, nil)
	}
	m.source, m.srcMap = nil, nil
	return m
}

// Records returns the record store.
func (m *Mirror) Records() *record.Collection {
	return m.records
}

// Layers returns the entity collection the mirror holds, or nil.
func (m *Mirror) Layers() *entity.Collection {
	return m.layers
}

// Map returns the remembered containing context, or nil.
func (m *Mirror) Map() *entity.Map {
	return m.ctx
}

// Bound reports whether the structural subscriptions are active.
func (m *Mirror) Bound() bool {
	return len(m.subs) > 0
}

// OnBind subscribes to bind completion.
func (m *Mirror) OnBind(fn func(BindEvent)) (cancel func()) {
	return m.binds.Subscribe(fn)
}

// Watching reports whether the mirror is subscribed to e's property changes.
func (m *Mirror) Watching(e *entity.Entity) bool {
	_, ok := m.watched[e]
	return ok
}
