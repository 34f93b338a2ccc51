package ollamachat

import "github.com/hilyin/ollama-anthropic-shim/internal/anthropicadapter/types"

// fromTools translates inbound tool definitions to the upstream's function
// tool format. This is a pure field renaming — the input schema passes
// through as opaque JSON. Order is preserved; an empty list yields nil so the
// request omits the tools field entirely.
func fromTools(tools []types.Tool) []ToolDefinition {
	if len(tools) == 0 {
		return nil
	}

	out := make([]ToolDefinition, 0, len(tools))
	for _, tool := range tools {
		out = append(out, ToolDefinition{
			Type: "function",
			Function: FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  orEmptyObject(tool.InputSchema),
			},
		})
	}

	return out
}
