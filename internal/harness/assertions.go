package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/layersync/internal/entity"
	"github.com/roach88/layersync/internal/ir"
	"github.com/roach88/layersync/internal/record"
	"github.com/roach88/layersync/internal/testutil"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string          // Assertion type for categorization
	Expected string          // Human-readable expected outcome
	Actual   string          // Human-readable actual outcome
	Trace    []ir.TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s %s@%d", ev.Seq, ev.Direction, ev.Kind, ev.Subject, ev.Index)
			if ev.Key != "" {
				fmt.Fprintf(&buf, " %s", ev.Key)
			}
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// AssertionContext provides the final state assertions run against.
type AssertionContext struct {
	Records *record.Collection
	Layers  *entity.Collection
	Updates []record.Update
}

// EvaluateAssertions runs all assertions and returns their failures.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertOrder:
			err = assertOrder(actx, assertion)
		case AssertRecordField:
			err = assertRecordField(actx, assertion)
		case AssertEntityProp:
			err = assertEntityProp(actx, assertion)
		case AssertUpdateCount:
			err = assertUpdateCount(actx.Updates, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertOrder compares the entity IDs of one or both sides with the
// expected order.
func assertOrder(actx *AssertionContext, assertion Assertion) error {
	want := assertion.IDs
	if want == nil {
		want = []string{}
	}
	check := func(side string, got []string) error {
		if slices.Equal(got, want) {
			return nil
		}
		return &AssertionError{
			Type:     AssertOrder,
			Expected: fmt.Sprintf("%s order %v", side, want),
			Actual:   fmt.Sprintf("%v", got),
		}
	}

	if assertion.Side != "records" {
		if err := check("entities", testutil.EntityIDs(actx.Layers)); err != nil {
			return err
		}
	}
	if assertion.Side != "entities" {
		if err := check("records", testutil.RecordEntityIDs(actx.Records)); err != nil {
			return err
		}
	}
	return nil
}

func assertRecordField(actx *AssertionContext, assertion Assertion) error {
	i := actx.Records.FindBy(func(r *record.Record) bool { return r.Entity().ID() == assertion.ID })
	if i < 0 {
		return &AssertionError{
			Type:     AssertRecordField,
			Expected: fmt.Sprintf("a record for %s", assertion.ID),
			Actual:   "not found",
		}
	}
	return compareValue(AssertRecordField, "record "+assertion.ID, assertion, actx.Records.At(i).Get(assertion.Key))
}

func assertEntityProp(actx *AssertionContext, assertion Assertion) error {
	for _, e := range actx.Layers.Items() {
		if e.ID() == assertion.ID {
			return compareValue(AssertEntityProp, "entity "+assertion.ID, assertion, e.Get(assertion.Key))
		}
	}
	return &AssertionError{
		Type:     AssertEntityProp,
		Expected: fmt.Sprintf("entity %s", assertion.ID),
		Actual:   "not found",
	}
}

// compareValue matches got against the assertion's expected value.
// Integers and floats compare numerically.
func compareValue(typ, subject string, assertion Assertion, got ir.Value) error {
	want, err := ir.FromAny(assertion.Value)
	if err != nil {
		return fmt.Errorf("%s: invalid expected value for %s: %w", typ, assertion.Key, err)
	}
	if ir.Equal(got, want) {
		return nil
	}
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("%s %s = %v", subject, assertion.Key, ir.ToAny(want)),
		Actual:   fmt.Sprintf("%v", ir.ToAny(got)),
	}
}

func assertUpdateCount(updates []record.Update, assertion Assertion) error {
	count := 0
	for _, u := range updates {
		if assertion.Operation == "" || u.Operation.String() == assertion.Operation {
			count++
		}
	}
	if count == *assertion.Count {
		return nil
	}
	what := "updates"
	if assertion.Operation != "" {
		what = assertion.Operation + " updates"
	}
	return &AssertionError{
		Type:     AssertUpdateCount,
		Expected: fmt.Sprintf("%d %s", *assertion.Count, what),
		Actual:   fmt.Sprintf("%d %s", count, what),
	}
}

// assertTraceCount counts trace events of a kind, optionally in one
// direction.
func assertTraceCount(trace []ir.TraceEvent, assertion Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Kind != assertion.Kind {
			continue
		}
		if assertion.Direction != "" && string(ev.Direction) != assertion.Direction {
			continue
		}
		count++
	}
	if count == *assertion.Count {
		return nil
	}
	what := assertion.Kind
	if assertion.Direction != "" {
		what += " " + assertion.Direction
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%s to occur %d times", what, *assertion.Count),
		Actual:   fmt.Sprintf("occurred %d times", count),
		Trace:    trace,
	}
}
