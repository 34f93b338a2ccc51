package ollamachat

import (
	"encoding/hex"

	"github.com/google/uuid"

	"github.com/hilyin/ollama-anthropic-shim/internal/anthropicadapter/types"
)

// toMessage builds a complete inbound-format response from one finished
// upstream reply (non-streaming path).
func toMessage(reply *ChatResponse, model string) *types.Message {
	text := reply.Message.Content
	if text == "" && reply.Message.Thinking != "" {
		// Some reasoning models leave content empty and put their output in
		// the thinking field. Fallback, not a merge.
		text = reply.Message.Thinking
	}

	blocks := []types.ContentBlock{}
	if text != "" {
		blocks = append(blocks, types.ContentBlock{
			Type: types.BlockTypeText,
			Text: text,
		})
	}

	for _, call := range reply.Message.ToolCalls {
		blocks = append(blocks, types.ContentBlock{
			Type:  types.BlockTypeToolUse,
			ID:    newToolUseID(),
			Name:  call.Function.Name,
			Input: orEmptyObject(call.Function.Arguments),
		})
	}

	stopReason := types.StopReasonEndTurn
	if len(reply.Message.ToolCalls) > 0 {
		stopReason = types.StopReasonToolUse
	}

	return &types.Message{
		ID:         newMessageID(),
		Type:       "message",
		Role:       types.RoleAssistant,
		Content:    blocks,
		Model:      model,
		StopReason: &stopReason,
		// Upstream reports no token counts; both fields stay zero.
		Usage: types.Usage{},
	}
}

// newMessageID generates a message identifier (msg_<24 hex chars>). Unique
// enough to avoid client-side confusion within a session; not required to be
// globally unique across restarts.
func newMessageID() string {
	return "msg_" + randomHex24()
}

// newToolUseID generates a tool_use block identifier (toolu_<24 hex chars>).
func newToolUseID() string {
	return "toolu_" + randomHex24()
}

func randomHex24() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])[:24]
}
