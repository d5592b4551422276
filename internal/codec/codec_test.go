package codec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/remember/internal/equal"
)

func TestSerializeJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"int", 5, "5"},
		{"string", "a<b", `"a<b"`},
		{"object", map[string]any{"b": 1, "a": true}, `{"a":true,"b":1}`},
		{"array", []any{1, "x", nil}, `[1,"x",null]`},
		{"null", nil, "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := SerializeJSON(tt.input, "key")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(out))
		})
	}
}

func TestSerializeJSON_Unsupported(t *testing.T) {
	_, err := SerializeJSON(make(chan int), "key")
	assert.Error(t, err)
}

func TestUnserializeJSON(t *testing.T) {
	v, err := UnserializeJSON([]byte(`{"counter":10,"todos":["a"]}`), "rootState")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"counter": 10.0, "todos": []any{"a"}}, v)

	_, err = UnserializeJSON([]byte(`{broken`), "rootState")
	assert.Error(t, err)
}

func TestJSONRoundTrip(t *testing.T) {
	state := map[string]any{
		"counter": 5.0,
		"user":    map[string]any{"name": "ada", "tags": []any{"x", "y"}},
		"empty":   nil,
	}

	for k, v := range state {
		data, err := SerializeJSON(v, k)
		require.NoError(t, err)
		back, err := UnserializeJSON(data, k)
		require.NoError(t, err)
		assert.True(t, equal.IsDeepEqual(v, back), "key %s", k)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	value := map[string]any{"name": "ada", "tags": []any{"x", "y"}, "n": 3}

	data, err := SerializeYAML(value, "user")
	require.NoError(t, err)
	back, err := UnserializeYAML(data, "user")
	require.NoError(t, err)

	assert.Equal(t, value, back)
}

func TestMarshalCanonical(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"null", nil, "null"},
		{"int", 42, "42"},
		{"integral float", 10.0, "10"},
		{"fraction", 1.5, "1.5"},
		{"negative zero", math.Copysign(0, -1), "0"},
		{"small", 0.000001, "0.000001"},
		{"tiny", 1e-7, "1e-7"},
		{"huge", 1e21, "1e+21"},
		{"sorted keys", map[string]any{"zebra": 1, "alpha": 2}, `{"alpha":2,"zebra":1}`},
		{"nested", map[string]any{"z": map[string]any{"b": 1, "a": 2}, "a": []any{true}}, `{"a":[true],"z":{"a":2,"b":1}}`},
		{"no html escape", "<a&b>", `"<a&b>"`},
		{"line separator", "a\u2028b", "\"a\u2028b\""},
		{"control chars", "a\n\x01", `"a\n\u0001"`},
		{"struct via json tags", struct {
			B int    `json:"b"`
			A string `json:"a"`
		}{B: 1, A: "x"}, `{"a":"x","b":1}`},
		{"typed map", map[string]int{"b": 2, "a": 1}, `{"a":1,"b":2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(out))
		})
	}
}

func TestMarshalCanonical_UTF16KeyOrder(t *testing.T) {
	// U+1F600 encodes as surrogates 0xD83D 0xDE00, which sort before U+FB01
	// in UTF-16 but after it in UTF-8.
	obj := map[string]any{"\uFB01": 1, "\U0001F600": 2}

	out, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"\uFB01\":1}", string(out))
}

func TestMarshalCanonical_NFC(t *testing.T) {
	decomposed := "e\u0301"
	out, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(out))
}

func TestMarshalCanonical_RejectsNonFinite(t *testing.T) {
	_, err := MarshalCanonical(math.NaN())
	assert.Error(t, err)
	_, err = MarshalCanonical(map[string]any{"x": math.Inf(1)})
	assert.Error(t, err)
}

func TestMarshalCanonical_Deterministic(t *testing.T) {
	obj := map[string]any{"c": 3, "a": 1, "b": map[string]any{"y": 1, "x": 2}}

	first, err := MarshalCanonical(obj)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := MarshalCanonical(obj)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "JSON", "canonical", "yaml", ""} {
		c, err := ByName(name)
		require.NoError(t, err, name)
		assert.NotNil(t, c.Serialize)
		assert.NotNil(t, c.Unserialize)
	}

	c, err := ByName("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, c.Name)

	_, err = ByName("xml")
	assert.ErrorContains(t, err, "unknown format")
	assert.Equal(t, []string{"canonical", "json", "yaml"}, Names())
}
