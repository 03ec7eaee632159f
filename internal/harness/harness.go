package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/layersync/internal/entity"
	"github.com/roach88/layersync/internal/ir"
	"github.com/roach88/layersync/internal/mirror"
	"github.com/roach88/layersync/internal/record"
	"github.com/roach88/layersync/internal/testutil"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every step kept the two sides
	// mirrored and every assertion held.
	Pass bool `json:"pass"`

	// Trace contains every propagation the mirror performed, in order.
	Trace []ir.TraceEvent `json:"trace"`

	// Errors contains invariant violations and failed assertions.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Entities and Records are the final orders, as entity IDs.
	Entities []string `json:"entities"`
	Records  []string `json:"records"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []ir.TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Harness holds the live state of one scenario run.
type Harness struct {
	mirror  *mirror.Mirror
	records *record.Collection
	layers  *entity.Collection
	journal *mirror.Journal
	updates []record.Update
	logger  *slog.Logger
}

// Option configures a run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
	tracer mirror.Tracer
	clock  *mirror.Clock
}

// WithLogger sets the logger handed to the mirror. Runs are silent by
// default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithTracer forwards every trace event to t as well as the result.
func WithTracer(t mirror.Tracer) Option {
	return func(c *runConfig) {
		c.tracer = t
	}
}

// WithClock stamps the trace with c, to continue a persisted sequence.
func WithClock(c *mirror.Clock) Option {
	return func(rc *runConfig) {
		rc.clock = c
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against freshly built collections. Record IDs come
// from a sequence generator and entity IDs are the layer names, so
// identical scenarios produce identical traces.
//
// Execution flow:
// 1. Build the layer tree and bind a mirror to the chosen target
// 2. Execute steps, checking the two sides still correspond after each
// 3. Evaluate assertions against the final state and trace
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	h, err := newHarness(scenario, cfg)
	if err != nil {
		return nil, err
	}
	defer h.mirror.Close()

	result := NewResult()
	if err := h.check(); err != nil {
		result.AddError(fmt.Sprintf("after bind: %v", err))
	}

	for i, step := range scenario.Steps {
		if err := h.execute(step); err != nil {
			return nil, fmt.Errorf("steps[%d] %s: %w", i, step.Op, err)
		}
		if err := h.check(); err != nil {
			result.AddError(fmt.Sprintf("steps[%d] %s: %v", i, step.Op, err))
		}
	}

	result.Trace = h.journal.Events()
	result.Entities = testutil.EntityIDs(h.layers)
	result.Records = testutil.RecordEntityIDs(h.records)

	actx := &AssertionContext{
		Records: h.records,
		Layers:  h.layers,
		Updates: h.updates,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}
	return result, nil
}

func newHarness(scenario *Scenario, cfg runConfig) (*Harness, error) {
	specs, err := layerSpecs(scenario.Layers)
	if err != nil {
		return nil, err
	}

	var readerOpts []record.ReaderOption
	if len(scenario.Synchronized) > 0 {
		readerOpts = append(readerOpts, record.WithSynchronizedProperties(scenario.Synchronized...))
	}

	h := &Harness{
		records: testutil.NewRecordStore("rec", readerOpts...),
		journal: mirror.NewJournal(),
		logger:  cfg.logger,
	}
	h.records.Subscribe(func(ev record.Event) {
		if u, ok := ev.(record.Update); ok {
			h.updates = append(h.updates, u)
		}
	})

	var tracer mirror.Tracer = h.journal
	if cfg.tracer != nil {
		tracer = mirror.TracerFunc(func(ev ir.TraceEvent) {
			h.journal.Trace(ev)
			cfg.tracer.Trace(ev)
		})
	}

	mopts := []mirror.Option{mirror.WithLogger(cfg.logger), mirror.WithTracer(tracer)}
	if cfg.clock != nil {
		mopts = append(mopts, mirror.WithClock(cfg.clock))
	}
	if scenario.FilterByTitle {
		mopts = append(mopts, mirror.WithFilter(titleFilter))
	}
	h.mirror = mirror.New(h.records, mopts...)

	switch scenario.Bind {
	case BindMap:
		err = h.mirror.BindMap(entity.BuildMap(scenario.Name, specs, nil))
	case BindGroup:
		root := entity.Build(specs[:1], nil)[0]
		err = h.mirror.Bind(root.Group(), nil)
	default:
		err = h.mirror.Bind(entity.NewCollection(entity.Build(specs, nil)...), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to bind: %w", err)
	}
	h.layers = h.mirror.Layers()
	return h, nil
}

// titleFilter matches a record whose text is the entity's title.
func titleFilter(e *entity.Entity, r *record.Record) bool {
	return ir.Equal(r.Get(record.FieldText), e.Get(ir.KeyTitle))
}

// check reports a broken correspondence. An unbound mirror no longer
// mirrors structure, so nothing is checked.
func (h *Harness) check() error {
	if !h.mirror.Bound() {
		return nil
	}
	return testutil.CheckMirrored(h.records, h.layers)
}

func (h *Harness) execute(step Step) error {
	switch step.Op {
	case OpAddEntity, OpInsertEntity:
		e, err := newEntity(step.ID, step.Props)
		if err != nil {
			return err
		}
		if step.Op == OpAddEntity {
			return h.layers.Push(e)
		}
		return h.layers.InsertAt(*step.Index, e)

	case OpRemoveEntity:
		e, err := h.entity(step.ID)
		if err != nil {
			return err
		}
		h.layers.Remove(e)
		return nil

	case OpSetEntity:
		e, err := h.entity(step.ID)
		if err != nil {
			return err
		}
		props, err := toObject(step.Props)
		if err != nil {
			return err
		}
		for _, k := range props.SortedKeys() {
			e.Set(k, props[k])
		}
		return nil

	case OpClearEntities:
		h.layers.Clear()
		return nil

	case OpAddRecord, OpInsertRecord:
		r, err := h.newRecord(step.ID, step.Props)
		if err != nil {
			return err
		}
		if step.Op == OpAddRecord {
			return h.records.Add(r)
		}
		return h.records.Insert(*step.Index, r)

	case OpRemoveRecord:
		r, err := h.record(step.ID)
		if err != nil {
			return err
		}
		h.records.Remove(r)
		return nil

	case OpSetRecord:
		r, err := h.record(step.ID)
		if err != nil {
			return err
		}
		props, err := toObject(step.Props)
		if err != nil {
			return err
		}
		r.SetFields(props)
		return nil

	case OpLoadRecords:
		specs, err := layerSpecs(step.Layers)
		if err != nil {
			return err
		}
		err = h.records.LoadRawData(step.Append, entity.Build(specs, nil)...)
		if err != nil {
			h.logger.Warn("load failed", "error", err)
		}
		return nil

	case OpClearRecords:
		h.records.RemoveAll()
		return nil

	case OpReplaceRecord:
		old, err := h.record(step.ID)
		if err != nil {
			return err
		}
		r, err := h.newRecord(step.With, step.Props)
		if err != nil {
			return err
		}
		return h.records.Replace(old, r)

	case OpUnbind:
		h.mirror.Unbind()
		return nil
	}
	return fmt.Errorf("unknown op %q", step.Op)
}

// entity finds an entity in the bound collection by ID.
func (h *Harness) entity(id string) (*entity.Entity, error) {
	for _, e := range h.layers.Items() {
		if e.ID() == id {
			return e, nil
		}
	}
	return nil, fmt.Errorf("entity %q: %w", id, entity.ErrNotFound)
}

// record finds the record wrapping the entity with the given ID.
func (h *Harness) record(id string) (*record.Record, error) {
	i := h.records.FindBy(func(r *record.Record) bool { return r.Entity().ID() == id })
	if i < 0 {
		return nil, fmt.Errorf("record for %q: %w", id, record.ErrNotFound)
	}
	return h.records.At(i), nil
}

// newRecord reads a fresh entity into a record, the way a grid would
// create one.
func (h *Harness) newRecord(id string, props map[string]any) (*record.Record, error) {
	e, err := newEntity(id, props)
	if err != nil {
		return nil, err
	}
	result := h.records.Reader().Read(e)
	if !result.Success || len(result.Records) != 1 {
		return nil, fmt.Errorf("read %q: %w", id, record.ErrReadFailed)
	}
	return result.Records[0], nil
}

func newEntity(id string, props map[string]any) (*entity.Entity, error) {
	extra, err := toObject(props)
	if err != nil {
		return nil, fmt.Errorf("entity %q: %w", id, err)
	}
	pairs := make([]ir.Pair, 0, len(extra))
	for _, k := range extra.SortedKeys() {
		pairs = append(pairs, ir.P(k, extra[k]))
	}
	return testutil.Layer(id, pairs...), nil
}

func layerSpecs(layers []Layer) ([]ir.LayerSpec, error) {
	specs := make([]ir.LayerSpec, 0, len(layers))
	for _, l := range layers {
		spec, err := l.Spec()
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
