package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/layersync/internal/ir"
)

// Scenario defines a mirroring scenario.
// A scenario binds a mirror over an inline layer tree, drives either side
// through a list of steps, and asserts on the final state and the trace.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Layers is the initial layer tree. Entity IDs are the layer names.
	Layers []Layer `yaml:"layers"`

	// Bind selects what the mirror binds to: "layers" (a bare collection,
	// the default), "map" (a map's root collection) or "group" (the children
	// of the first layer, which must be a group).
	Bind string `yaml:"bind,omitempty"`

	// FilterByTitle routes entity property changes to the record whose text
	// equals the entity's current title instead of the record wrapping it.
	FilterByTitle bool `yaml:"filter_by_title,omitempty"`

	// Synchronized overrides the reader's synchronized properties.
	Synchronized []string `yaml:"synchronized,omitempty"`

	// Steps are executed in order. After every step the two sides must
	// still correspond position by position, unless the mirror is unbound.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state and trace.
	// Supported types: order, record_field, entity_prop, update_count, trace_count
	Assertions []Assertion `yaml:"assertions"`
}

// Layer is an inline layer description.
type Layer struct {
	Name        string         `yaml:"name"`
	Title       string         `yaml:"title,omitempty"`
	Description string         `yaml:"description,omitempty"`
	Visible     *bool          `yaml:"visible,omitempty"`
	Opacity     *float64       `yaml:"opacity,omitempty"`
	Properties  map[string]any `yaml:"properties,omitempty"`
	Layers      []Layer        `yaml:"layers,omitempty"`
	Group       bool           `yaml:"group,omitempty"`
}

// Spec converts the inline description to a layer spec. The title defaults
// to the name, visibility to true and opacity to 1.
func (l Layer) Spec() (ir.LayerSpec, error) {
	spec := ir.LayerSpec{
		Name:        l.Name,
		Title:       l.Title,
		Description: l.Description,
		Visible:     true,
		Opacity:     1,
		Group:       l.Group,
	}
	if spec.Title == "" {
		spec.Title = l.Name
	}
	if l.Visible != nil {
		spec.Visible = *l.Visible
	}
	if l.Opacity != nil {
		spec.Opacity = *l.Opacity
	}
	if len(l.Properties) > 0 {
		props, err := toObject(l.Properties)
		if err != nil {
			return ir.LayerSpec{}, fmt.Errorf("layer %s: %w", l.Name, err)
		}
		spec.Properties = props
	}
	for _, child := range l.Layers {
		cs, err := child.Spec()
		if err != nil {
			return ir.LayerSpec{}, err
		}
		spec.Layers = append(spec.Layers, cs)
	}
	return spec, nil
}

// Step is one operation on either side of the mirror.
type Step struct {
	// Op is the operation, one of the Op* constants.
	Op string `yaml:"op"`

	// ID names the entity the step targets or creates. Records are
	// addressed by the ID of the entity they wrap.
	ID string `yaml:"id,omitempty"`

	// Index is the insert position for insert_entity and insert_record.
	Index *int `yaml:"index,omitempty"`

	// Props are property values: set on the target for set_entity and
	// set_record, applied to the new entity for add and insert steps.
	Props map[string]any `yaml:"props,omitempty"`

	// With is the replacement entity ID for replace_record.
	With string `yaml:"with,omitempty"`

	// Layers are the entities read by load_records.
	Layers []Layer `yaml:"layers,omitempty"`

	// Append keeps existing records on load_records.
	Append bool `yaml:"append,omitempty"`
}

// Step operations.
const (
	OpAddEntity     = "add_entity"
	OpInsertEntity  = "insert_entity"
	OpRemoveEntity  = "remove_entity"
	OpSetEntity     = "set_entity"
	OpClearEntities = "clear_entities"
	OpAddRecord     = "add_record"
	OpInsertRecord  = "insert_record"
	OpRemoveRecord  = "remove_record"
	OpSetRecord     = "set_record"
	OpLoadRecords   = "load_records"
	OpClearRecords  = "clear_records"
	OpReplaceRecord = "replace_record"
	OpUnbind        = "unbind"
)

// Bind targets.
const (
	BindLayers = "layers"
	BindMap    = "map"
	BindGroup  = "group"
)

// Assertion validates the final state or the trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "order": entity IDs, in order, on one or both sides
	// - "record_field": a field of the record wrapping an entity
	// - "entity_prop": a property of an entity
	// - "update_count": number of update events the record store fired
	// - "trace_count": number of trace events of a kind
	Type string `yaml:"type"`

	// Side is "records", "entities" or "both" (default) for order.
	Side string `yaml:"side,omitempty"`

	// IDs is the expected order (used by order).
	IDs []string `yaml:"ids,omitempty"`

	// ID is the entity ID (used by record_field and entity_prop).
	ID string `yaml:"id,omitempty"`

	// Key is the field or property name.
	Key string `yaml:"key,omitempty"`

	// Value is the expected value. Omitting it asserts the key is unset.
	Value any `yaml:"value,omitempty"`

	// Count is the expected number (used by update_count and trace_count).
	Count *int `yaml:"count,omitempty"`

	// Operation narrows update_count to "edit" or "commit".
	Operation string `yaml:"operation,omitempty"`

	// Kind and Direction narrow trace_count.
	Kind      string `yaml:"kind,omitempty"`
	Direction string `yaml:"direction,omitempty"`
}

// Assertion type constants.
const (
	AssertOrder       = "order"
	AssertRecordField = "record_field"
	AssertEntityProp  = "entity_prop"
	AssertUpdateCount = "update_count"
	AssertTraceCount  = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios lists the .yaml and .yml files under dir, sorted.
func FindScenarios(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	switch s.Bind {
	case "", BindLayers, BindMap:
	case BindGroup:
		if len(s.Layers) == 0 || !(s.Layers[0].Group || len(s.Layers[0].Layers) > 0) {
			return fmt.Errorf("bind: group requires the first layer to be a group")
		}
	default:
		return fmt.Errorf("bind: unknown target %q", s.Bind)
	}

	if err := validateLayers("layers", s.Layers); err != nil {
		return err
	}
	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateLayers(where string, layers []Layer) error {
	for i, l := range layers {
		if l.Name == "" {
			return fmt.Errorf("%s[%d]: name is required", where, i)
		}
		if err := validateLayers(fmt.Sprintf("%s[%d].layers", where, i), l.Layers); err != nil {
			return err
		}
	}
	return nil
}

// validateStep validates a single step based on its op.
func validateStep(index int, s *Step) error {
	switch s.Op {
	case OpAddEntity, OpRemoveEntity, OpAddRecord, OpRemoveRecord:
		if s.ID == "" {
			return fmt.Errorf("steps[%d]: id is required for %s", index, s.Op)
		}
	case OpInsertEntity, OpInsertRecord:
		if s.ID == "" {
			return fmt.Errorf("steps[%d]: id is required for %s", index, s.Op)
		}
		if s.Index == nil {
			return fmt.Errorf("steps[%d]: index is required for %s", index, s.Op)
		}
	case OpSetEntity, OpSetRecord:
		if s.ID == "" {
			return fmt.Errorf("steps[%d]: id is required for %s", index, s.Op)
		}
		if len(s.Props) == 0 {
			return fmt.Errorf("steps[%d]: props is required for %s", index, s.Op)
		}
	case OpReplaceRecord:
		if s.ID == "" || s.With == "" {
			return fmt.Errorf("steps[%d]: id and with are required for %s", index, s.Op)
		}
	case OpLoadRecords:
		if err := validateLayers(fmt.Sprintf("steps[%d].layers", index), s.Layers); err != nil {
			return err
		}
	case OpClearRecords, OpClearEntities, OpUnbind:
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, s.Op)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertOrder:
		switch a.Side {
		case "", "both", "records", "entities":
		default:
			return fmt.Errorf("assertions[%d]: unknown side %q", index, a.Side)
		}
	case AssertRecordField, AssertEntityProp:
		if a.ID == "" || a.Key == "" {
			return fmt.Errorf("assertions[%d]: id and key are required for %s", index, a.Type)
		}
	case AssertUpdateCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for update_count", index)
		}
		switch a.Operation {
		case "", "edit", "commit":
		default:
			return fmt.Errorf("assertions[%d]: unknown operation %q", index, a.Operation)
		}
	case AssertTraceCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for trace_count", index)
		}
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for trace_count", index)
		}
		switch ir.Direction(a.Direction) {
		case "", ir.ToRecords, ir.ToEntities:
		default:
			return fmt.Errorf("assertions[%d]: unknown direction %q", index, a.Direction)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// toObject converts decoded YAML values to an object.
func toObject(m map[string]any) (ir.Object, error) {
	obj := make(ir.Object, len(m))
	for k, v := range m {
		val, err := ir.FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		obj[k] = val
	}
	return obj, nil
}
