package ollamachat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hilyin/ollama-anthropic-shim/internal/anthropicadapter/types"
)

func TestFromTools(t *testing.T) {
	schema := json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}},"x-custom":true}`)
	out := fromTools([]types.Tool{
		{Name: "get_weather", Description: "Looks up the weather", InputSchema: schema},
		{Name: "get_time"},
	})

	require.Len(t, out, 2)

	assert.Equal(t, "function", out[0].Type)
	assert.Equal(t, "get_weather", out[0].Function.Name)
	assert.Equal(t, "Looks up the weather", out[0].Function.Description)
	// Schema is opaque passthrough, vendor extensions included.
	assert.JSONEq(t, string(schema), string(out[0].Function.Parameters))

	assert.Equal(t, "function", out[1].Type)
	assert.Equal(t, "get_time", out[1].Function.Name)
	assert.Empty(t, out[1].Function.Description)
	assert.JSONEq(t, `{}`, string(out[1].Function.Parameters))
}

func TestFromToolsEmptyYieldsNil(t *testing.T) {
	assert.Nil(t, fromTools(nil))
	assert.Nil(t, fromTools([]types.Tool{}))
}

func TestFromToolsOmittedFromRequestJSON(t *testing.T) {
	body, err := json.Marshal(ChatRequest{
		Model:    "m",
		Messages: []ChatMessage{{Role: types.RoleUser, Content: "Hi"}},
		Tools:    fromTools(nil),
	})
	require.NoError(t, err)
	assert.NotContains(t, string(body), `"tools"`)
}
