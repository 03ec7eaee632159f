package compiler

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/layersync/internal/ir"
)

//go:embed schema.cue
var schemaCUE string

// CompileLayers compiles every entry of the top-level layers struct of v,
// in declaration order. A value without a layers field yields no specs.
func CompileLayers(v cue.Value) ([]ir.LayerSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	schema, err := loadSchema(v.Context())
	if err != nil {
		return nil, err
	}
	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	layersVal := unified.LookupPath(cue.ParsePath("layers"))
	if !layersVal.Exists() {
		return nil, nil
	}
	return compileChildren(layersVal)
}

// CompileLayer compiles a single layer value. The name is taken from the
// last path selector, e.g. "roads" for layers.overlays.layers.roads.
func CompileLayer(v cue.Value) (*ir.LayerSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	schema, err := loadSchema(v.Context())
	if err != nil {
		return nil, err
	}
	unified := schema.LookupPath(cue.ParsePath("#Layer")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	spec, err := compileLayer(unified)
	if err != nil {
		return nil, err
	}
	if labels := v.Path().Selectors(); len(labels) > 0 {
		spec.Name = label(labels[len(labels)-1])
	}
	return spec, nil
}

func loadSchema(ctx *cue.Context) (cue.Value, error) {
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compile layer schema: %w", err)
	}
	return schema, nil
}

func compileChildren(v cue.Value) ([]ir.LayerSpec, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var specs []ir.LayerSpec
	for iter.Next() {
		spec, err := compileLayer(iter.Value())
		if err != nil {
			return nil, err
		}
		spec.Name = label(iter.Selector())
		specs = append(specs, *spec)
	}
	return specs, nil
}

// compileLayer reads a value already unified with #Layer and validated.
func compileLayer(v cue.Value) (*ir.LayerSpec, error) {
	spec := &ir.LayerSpec{}
	var err error

	if spec.Title, err = v.LookupPath(cue.ParsePath("title")).String(); err != nil {
		return nil, formatCUEError(err)
	}
	if desc := v.LookupPath(cue.ParsePath("description")); desc.Exists() {
		if spec.Description, err = desc.String(); err != nil {
			return nil, formatCUEError(err)
		}
	}
	if spec.Visible, err = defaulted(v, "visible").Bool(); err != nil {
		return nil, formatCUEError(err)
	}
	if spec.Opacity, err = defaulted(v, "opacity").Float64(); err != nil {
		return nil, formatCUEError(err)
	}
	if group := v.LookupPath(cue.ParsePath("group")); group.Exists() {
		if spec.Group, err = group.Bool(); err != nil {
			return nil, formatCUEError(err)
		}
	}

	if props := v.LookupPath(cue.ParsePath("properties")); props.Exists() {
		val, err := toValue(props)
		if err != nil {
			return nil, err
		}
		obj, _ := val.(ir.Object)
		for _, key := range reservedKeys {
			if _, ok := obj[key]; ok {
				return nil, &CompileError{
					Field:   "properties." + key,
					Message: fmt.Sprintf("%q is set by the layer itself, not through properties", key),
					Pos:     props.Pos(),
				}
			}
		}
		spec.Properties = obj
	}

	if children := v.LookupPath(cue.ParsePath("layers")); children.Exists() {
		spec.Group = true
		if spec.Layers, err = compileChildren(children); err != nil {
			return nil, err
		}
	}

	return spec, nil
}

var reservedKeys = []string{ir.KeyName, ir.KeyTitle, ir.KeyDescription, ir.KeyVisible, ir.KeyOpacity}

func defaulted(v cue.Value, field string) cue.Value {
	f := v.LookupPath(cue.ParsePath(field))
	if d, ok := f.Default(); ok {
		return d
	}
	return f
}

// toValue converts a concrete CUE value to an ir.Value.
func toValue(v cue.Value) (ir.Value, error) {
	if d, ok := v.Default(); ok {
		v = d
	}
	switch v.IncompleteKind() {
	case cue.NullKind:
		return ir.Null{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Bool(b), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.String(s), nil
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Int(i), nil
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Float(f), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		arr := ir.Array{}
		for iter.Next() {
			elem, err := toValue(iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := ir.Object{}
		for iter.Next() {
			elem, err := toValue(iter.Value())
			if err != nil {
				return nil, err
			}
			obj[label(iter.Selector())] = elem
		}
		return obj, nil
	default:
		return nil, &CompileError{
			Field:   strings.Join(pathOf(v), "."),
			Message: fmt.Sprintf("unsupported value kind %s", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func pathOf(v cue.Value) []string {
	sels := v.Path().Selectors()
	out := make([]string, len(sels))
	for i, s := range sels {
		out[i] = label(s)
	}
	return out
}

// label returns a selector as written, without quotes for string labels.
func label(sel cue.Selector) string {
	if sel.LabelType() == cue.StringLabel {
		return sel.Unquoted()
	}
	return sel.String()
}

// CompileError is a layer definition error with its CUE position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts path and position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	field := strings.Join(first.Path(), ".")
	if field == "" {
		field = "cue"
	}
	format, args := first.Msg()
	ce := &CompileError{Field: field, Message: fmt.Sprintf(format, args...)}
	if positions := errors.Positions(first); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}
