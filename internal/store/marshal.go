package store

import (
	"fmt"

	"github.com/roach88/layersync/internal/ir"
)

// marshalProperties converts a property bag to canonical JSON TEXT for storage.
func marshalProperties(props ir.Object) (string, error) {
	if props == nil {
		props = ir.Object{}
	}
	data, err := ir.MarshalCanonical(props)
	if err != nil {
		return "", fmt.Errorf("marshal properties: %w", err)
	}
	return string(data), nil
}

// unmarshalProperties parses canonical JSON TEXT back into a property bag.
// Integers decode as ir.Int, other numbers as ir.Float.
func unmarshalProperties(data string) (ir.Object, error) {
	if data == "" || data == "{}" {
		return ir.Object{}, nil
	}
	obj, err := ir.UnmarshalObject([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal properties: %w", err)
	}
	return obj, nil
}
