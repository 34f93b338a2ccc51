package types

import "encoding/json"

// Message roles accepted on the inbound surface.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// Content block type discriminators.
const (
	BlockTypeText       = "text"
	BlockTypeToolUse    = "tool_use"
	BlockTypeToolResult = "tool_result"
)

// CreateMessageRequest is the inbound Messages API request body.
// Only the fields the shim consumes are modeled; unknown fields are ignored
// by the decoder, matching the best-effort posture of the translation layer.
type CreateMessageRequest struct {
	Model       string         `json:"model,omitempty"`
	Messages    []MessageParam `json:"messages"`
	MaxTokens   *int           `json:"max_tokens,omitempty"`
	Temperature *float64       `json:"temperature,omitempty"`
	TopP        *float64       `json:"top_p,omitempty"`
	Tools       []Tool         `json:"tools,omitempty"`
	Stream      *bool          `json:"stream,omitempty"`
}

// MessageParam is one inbound conversation turn.
type MessageParam struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

// Tool is an inbound tool definition. InputSchema is an opaque JSON-schema
// value that must pass through to the upstream unmodified.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// ContentKind discriminates the MessageContent union. Every consumer must
// switch over all three kinds.
type ContentKind int

const (
	// ContentKindText is plain string content.
	ContentKindText ContentKind = iota
	// ContentKindBlocks is an ordered array of typed content blocks.
	ContentKindBlocks
	// ContentKindOpaque is any other JSON value (number, bare object, ...).
	// Consumers stringify or ignore it; it is never an error.
	ContentKindOpaque
)

// MessageContent is the Messages API content union: either a plain string or
// an ordered sequence of typed blocks. Values that are neither keep their raw
// JSON so tool_result stringification can fall back to the literal form.
type MessageContent struct {
	Text   string
	Blocks []ContentBlockParam

	isBlocks bool
	raw      json.RawMessage
}

// TextContent wraps a plain string as message content.
func TextContent(text string) MessageContent {
	return MessageContent{Text: text}
}

// BlocksContent wraps an ordered block sequence as message content.
func BlocksContent(blocks ...ContentBlockParam) MessageContent {
	return MessageContent{Blocks: blocks, isBlocks: true}
}

// Kind reports which variant of the union this content holds.
func (c MessageContent) Kind() ContentKind {
	switch {
	case c.isBlocks:
		return ContentKindBlocks
	case c.raw != nil:
		return ContentKindOpaque
	default:
		return ContentKindText
	}
}

// Raw returns the literal JSON of opaque content, or "" for the other kinds.
func (c MessageContent) Raw() string {
	return string(c.raw)
}

// UnmarshalJSON decodes string content, block-array content, or keeps the raw
// bytes for anything else. It never fails: malformed inbound shapes degrade to
// empty/neutral values rather than rejecting the request.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	*c = MessageContent{}

	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		c.Text = text
		return nil
	}

	var blocks []ContentBlockParam
	if err := json.Unmarshal(data, &blocks); err == nil {
		c.Blocks = blocks
		c.isBlocks = true
		return nil
	}

	c.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON re-encodes the variant that was decoded.
func (c MessageContent) MarshalJSON() ([]byte, error) {
	switch c.Kind() {
	case ContentKindBlocks:
		return json.Marshal(c.Blocks)
	case ContentKindOpaque:
		return c.raw, nil
	default:
		return json.Marshal(c.Text)
	}
}

// ContentBlockParam is one inbound content block. Type selects which field
// group is meaningful; unrecognized types are carried but contribute nothing.
type ContentBlockParam struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   *MessageContent `json:"content,omitempty"`
}
