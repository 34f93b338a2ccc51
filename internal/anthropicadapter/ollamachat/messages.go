package ollamachat

import (
	"encoding/json"
	"strings"

	"github.com/hilyin/ollama-anthropic-shim/internal/anthropicadapter/types"
)

// fromMessages translates the inbound conversation into the upstream's flat
// message list. The upstream has no multi-part messages and no tool_result
// blocks — only flat text turns, assistant tool_calls, and a dedicated "tool"
// role — so every inbound shape collapses into that model.
func fromMessages(messages []types.MessageParam) []ChatMessage {
	out := make([]ChatMessage, 0, len(messages))

	for _, msg := range messages {
		switch msg.Content.Kind() {
		case types.ContentKindText:
			if msg.Content.Text != "" {
				out = append(out, ChatMessage{Role: msg.Role, Content: msg.Content.Text})
			}
		case types.ContentKindBlocks:
			out = append(out, fromBlocks(msg.Role, msg.Content.Blocks)...)
		case types.ContentKindOpaque:
			// Content that is neither a string nor a block array has no
			// upstream representation; the message contributes nothing.
		}
	}

	return out
}

// fromBlocks collapses one block-content message. Blocks are classified in
// original relative order: text parts newline-join into a single turn,
// tool_use blocks on an assistant message become tool_calls on that turn, and
// every tool_result block becomes its own {role: tool} message appended after
// the turn regardless of the inbound message's role.
func fromBlocks(role string, blocks []types.ContentBlockParam) []ChatMessage {
	var (
		textParts   []string
		toolCalls   []ToolCall
		toolResults []ChatMessage
	)

	for _, block := range blocks {
		switch block.Type {
		case types.BlockTypeText:
			textParts = append(textParts, block.Text)

		case types.BlockTypeToolUse:
			toolCalls = append(toolCalls, ToolCall{
				Function: ToolCallFunction{
					Name:      block.Name,
					Arguments: orEmptyObject(block.Input),
				},
			})

		case types.BlockTypeToolResult:
			toolResults = append(toolResults, ChatMessage{
				Role:    types.RoleTool,
				Content: stringifyToolResult(block.Content),
			})
		}
	}

	var out []ChatMessage
	switch {
	case len(toolCalls) > 0 && role == types.RoleAssistant:
		turn := ChatMessage{Role: types.RoleAssistant, ToolCalls: toolCalls}
		if len(textParts) > 0 {
			turn.Content = strings.Join(textParts, "\n")
		}
		out = append(out, turn)
	case len(textParts) > 0:
		out = append(out, ChatMessage{Role: role, Content: strings.Join(textParts, "\n")})
	}

	return append(out, toolResults...)
}

// orEmptyObject substitutes an empty JSON object for absent opaque values.
func orEmptyObject(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`{}`)
	}
	return raw
}
