package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_SortsKeys(t *testing.T) {
	got, err := Marshal(map[string]any{"b": 1, "a": 2, "c": map[string]any{"z": true, "y": false}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":2,"b":1,"c":{"y":false,"z":true}}`, string(got))
}

func TestMarshal_UsesStructTags(t *testing.T) {
	type event struct {
		Kind string `json:"kind"`
		Seq  int64  `json:"seq"`
		Size int    `json:"size"`
	}

	got, err := Marshal(event{Kind: "produced", Seq: 3, Size: 1})
	require.NoError(t, err)
	assert.Equal(t, `{"kind":"produced","seq":3,"size":1}`, string(got))
}

func TestMarshal_NoHTMLEscaping(t *testing.T) {
	got, err := Marshal("<a & b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(got))
}

func TestMarshal_LineSeparatorsLiteral(t *testing.T) {
	got, err := Marshal("x\u2028y\u2029z")
	require.NoError(t, err)
	assert.Equal(t, "\"x\u2028y\u2029z\"", string(got))
}

func TestMarshal_ControlCharacters(t *testing.T) {
	got, err := Marshal("a\nb\tc\x01\"\\")
	require.NoError(t, err)
	assert.Equal(t, `"a\nb\tc\u0001\"\\"`, string(got))
}

func TestMarshal_NFC(t *testing.T) {
	got, err := Marshal("e\u0301") // e + combining acute
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(got))
}

func TestMarshal_RejectsFloats(t *testing.T) {
	_, err := Marshal(map[string]any{"x": 1.5})
	assert.Error(t, err)
}

func TestMarshal_UTF16KeyOrder(t *testing.T) {
	// U+FF61 sorts before U+1F600 in UTF-8 but after it in UTF-16
	// (the emoji is a surrogate pair starting 0xD83D).
	got, err := Marshal(map[string]any{"\uff61": 1, "\U0001F600": 2})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"\uff61\":1}", string(got))
}

func TestHash_StableAndDomainSeparated(t *testing.T) {
	v := map[string]any{"kind": "reset", "seq": 9}

	h1, err := Hash(DomainEvent, v)
	require.NoError(t, err)
	h2, err := Hash(DomainEvent, map[string]any{"seq": 9, "kind": "reset"})
	require.NoError(t, err)
	h3, err := Hash(DomainRun, v)
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "key order must not matter")
	assert.NotEqual(t, h1, h3, "domains must separate")
	assert.Len(t, h1, 64)
}
