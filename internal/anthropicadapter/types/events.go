package types

import "encoding/json"

// SSE event type names, also used as the "type" field inside each payload.
const (
	EventTypeMessageStart      = "message_start"
	EventTypeContentBlockStart = "content_block_start"
	EventTypeContentBlockDelta = "content_block_delta"
	EventTypeContentBlockStop  = "content_block_stop"
	EventTypeMessageDelta      = "message_delta"
	EventTypeMessageStop       = "message_stop"
	EventTypeError             = "error"
)

// Delta type discriminators inside content_block_delta events.
const (
	DeltaTypeText      = "text_delta"
	DeltaTypeInputJSON = "input_json_delta"
)

// StreamEvent is one Messages API streaming event. StreamEventType returns
// the SSE event name, which always equals the payload's "type" field.
type StreamEvent interface {
	StreamEventType() string
}

// MessageStartEvent opens a stream with an empty message shell.
type MessageStartEvent struct {
	Type    string  `json:"type"`
	Message Message `json:"message"`
}

func (MessageStartEvent) StreamEventType() string { return EventTypeMessageStart }

// TextContentBlock is the content_block payload for an opened text block.
// Text is serialized even when empty, which it always is at block start.
type TextContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ToolUseContentBlock is the content_block payload for an opened tool_use
// block. Input starts as an empty object; the arguments follow as one
// input_json_delta.
type ToolUseContentBlock struct {
	Type  string          `json:"type"`
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ContentBlockStartEvent opens the content block at Index.
type ContentBlockStartEvent struct {
	Type         string `json:"type"`
	Index        int    `json:"index"`
	ContentBlock any    `json:"content_block"`
}

func (ContentBlockStartEvent) StreamEventType() string { return EventTypeContentBlockStart }

// Delta is the increment inside a content_block_delta event. Text is set for
// text_delta, PartialJSON for input_json_delta.
type Delta struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
}

// ContentBlockDeltaEvent appends an increment to the open block at Index.
type ContentBlockDeltaEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	Delta Delta  `json:"delta"`
}

func (ContentBlockDeltaEvent) StreamEventType() string { return EventTypeContentBlockDelta }

// ContentBlockStopEvent closes the content block at Index.
type ContentBlockStopEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

func (ContentBlockStopEvent) StreamEventType() string { return EventTypeContentBlockStop }

// MessageDelta carries the terminal stop reason.
type MessageDelta struct {
	StopReason StopReason `json:"stop_reason"`
}

// MessageDeltaUsage reports the (placeholder) output token count.
type MessageDeltaUsage struct {
	OutputTokens int `json:"output_tokens"`
}

// MessageDeltaEvent announces the stop reason before message_stop.
type MessageDeltaEvent struct {
	Type  string            `json:"type"`
	Delta MessageDelta      `json:"delta"`
	Usage MessageDeltaUsage `json:"usage"`
}

func (MessageDeltaEvent) StreamEventType() string { return EventTypeMessageDelta }

// MessageStopEvent terminates the stream.
type MessageStopEvent struct {
	Type string `json:"type"`
}

func (MessageStopEvent) StreamEventType() string { return EventTypeMessageStop }

// ErrorEvent is the sole event emitted when the upstream fails before any
// fragment is delivered.
type ErrorEvent struct {
	Type  string `json:"type"`
	Error Error  `json:"error"`
}

func (ErrorEvent) StreamEventType() string { return EventTypeError }
