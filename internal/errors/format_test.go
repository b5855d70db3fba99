package errors

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForCLI(t *testing.T) {
	// Given: an error with a suggestion
	err := New(ErrCodeIndexNotFound, "vector index not found", nil).
		WithSuggestion("run 'wikigraph setup' first")

	// When: formatting for the terminal
	out := FormatForCLI(err)

	// Then: message, hint and code are present
	assert.Contains(t, out, "Error: vector index not found")
	assert.Contains(t, out, "Hint: run 'wikigraph setup' first")
	assert.Contains(t, out, "Code: ERR_401_INDEX_NOT_FOUND")
}

func TestFormatForCLI_PlainError(t *testing.T) {
	out := FormatForCLI(errors.New("boom"))

	assert.Contains(t, out, "Error: boom")
	assert.Contains(t, out, ErrCodeInternal)
	assert.Empty(t, FormatForCLI(nil))
}

func TestFormatJSON(t *testing.T) {
	err := New(ErrCodeQueryEmpty, "query is empty", errors.New("blank")).WithDetail("limit", "5")

	data, jerr := FormatJSON(err)
	require.NoError(t, jerr)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ErrCodeQueryEmpty, decoded["code"])
	assert.Equal(t, "QUERY", decoded["category"])
	assert.Equal(t, "blank", decoded["cause"])
}

func TestFormatForLog_SortedDetails(t *testing.T) {
	err := New(ErrCodeSchemaMismatch, "missing", nil).
		WithDetail("z", "1").
		WithDetail("a", "2")

	attrs := FormatForLog(err)

	require.Len(t, attrs, 6)
	assert.Equal(t, "detail_a", attrs[4].Key)
	assert.Equal(t, "detail_z", attrs[5].Key)
}
