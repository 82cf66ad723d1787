package jsonx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_PlainObject(t *testing.T) {
	var out struct {
		Summary string `json:"summary"`
	}
	err := Decode(`{"summary":"hello"}`, &out)
	require.NoError(t, err)
	assert.Equal(t, "hello", out.Summary)
}

func TestDecode_FencedWithLanguageTag(t *testing.T) {
	raw := "```json\n{\"summary\": \"fenced\"}\n```"
	var out map[string]string
	err := Decode(raw, &out)
	require.NoError(t, err)
	assert.Equal(t, "fenced", out["summary"])
}

func TestDecode_ObjectBuriedInProse(t *testing.T) {
	raw := "Sure! Here is the JSON you asked for:\n{\"a\": 1, \"b\": {\"c\": 2}}\nLet me know if you need anything else."
	var out map[string]interface{}
	err := Decode(raw, &out)
	require.NoError(t, err)
	assert.Equal(t, float64(1), out["a"])
}

func TestExtract_BracesInsideStringsIgnored(t *testing.T) {
	raw := `{"text": "unbalanced } inside \" a string {"}`
	got, err := Extract(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestExtract_Array(t *testing.T) {
	got, err := Extract("prefix [1, 2, 3] suffix")
	require.NoError(t, err)
	assert.Equal(t, "[1, 2, 3]", got)
}

func TestExtract_NoJSON(t *testing.T) {
	_, err := Extract("the model refused to answer")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestExtract_TruncatedObject(t *testing.T) {
	_, err := Extract(`{"summary": "cut off`)
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestStripFences_NoFence(t *testing.T) {
	assert.Equal(t, `{"x":1}`, StripFences(` {"x":1} `))
}

func TestStripFences_FenceWithoutTag(t *testing.T) {
	assert.Equal(t, `{"x":1}`, StripFences("```\n{\"x\":1}\n```"))
}
