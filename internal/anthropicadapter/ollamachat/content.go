package ollamachat

import (
	"strings"

	"github.com/hilyin/ollama-anthropic-shim/internal/anthropicadapter/types"
)

// extractText flattens message content into plain text. String content passes
// through unchanged; block content yields the newline-join of its text blocks
// in original order. Non-text blocks and unrecognized shapes contribute
// nothing — extraction has no error cases.
func extractText(content types.MessageContent) string {
	switch content.Kind() {
	case types.ContentKindText:
		return content.Text
	case types.ContentKindBlocks:
		var parts []string
		for _, block := range content.Blocks {
			if block.Type == types.BlockTypeText {
				parts = append(parts, block.Text)
			}
		}
		return strings.Join(parts, "\n")
	case types.ContentKindOpaque:
		return ""
	}
	return ""
}

// stringifyToolResult renders a tool_result block's content for the upstream's
// plain-text tool role. Opaque JSON values (numbers, bare objects) keep their
// literal form.
func stringifyToolResult(content *types.MessageContent) string {
	if content == nil {
		return ""
	}
	if content.Kind() == types.ContentKindOpaque {
		return content.Raw()
	}
	return extractText(*content)
}
