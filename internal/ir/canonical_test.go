package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"sorted keys", Object{"b": Int(2), "a": Int(1)}, `{"a":1,"b":2}`},
		{"no html escaping", String("<a&b>"), `"<a&b>"`},
		{"integral float", Float(1), `1`},
		{"fractional float", Float(0.5), `0.5`},
		{"large float", Float(1e21), `1e+21`},
		{"small float", Float(1e-7), `1e-7`},
		{"null", Null{}, `null`},
		{"nested", map[string]any{"layers": []any{"x", true}}, `{"layers":["x",true]}`},
		{"line separator stays literal", String("a\u2028b"), "\"a\u2028b\""},
		{"NFC normalization", String("e\u0301"), "\"\u00e9\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalCanonical_RejectsNonFinite(t *testing.T) {
	_, err := MarshalCanonical(Float(math.NaN()))
	assert.Error(t, err)

	_, err = MarshalCanonical(Float(math.Inf(1)))
	assert.Error(t, err)
}

func TestMarshalCanonical_EscapedBackslashKept(t *testing.T) {
	got, err := MarshalCanonical(String(`\u2028`))
	require.NoError(t, err)
	assert.Equal(t, `"\\u2028"`, string(got))
}
