package ollamachat

import (
	"encoding/json"
	"strings"

	"github.com/hilyin/ollama-anthropic-shim/internal/anthropicadapter/types"
)

// streamState is the per-session accumulator that turns incrementally
// delivered upstream fragments into the strictly ordered inbound event
// sequence. It is owned by exactly one streaming session.
//
// The event grammar it enforces: message_start, then an optional text block
// (start, deltas, stop), then zero or more tool_use blocks (start, one
// input_json_delta, stop) emitted sequentially, then message_delta and
// message_stop. Block indices are contiguous from 0 and every opened block is
// closed before the next one opens.
type streamState struct {
	model     string
	messageID string

	fullText     strings.Builder
	fullThinking strings.Builder
	latestCalls  []ToolCall

	blockIndex    int
	textBlockOpen bool
	started       bool
	done          bool
}

func newStreamState(model string) *streamState {
	return &streamState{model: model, messageID: newMessageID()}
}

// step consumes one upstream fragment and returns the events it produces, in
// emission order. It is a pure translation step apart from the mutation of s:
// no I/O, no knowledge of how fragments are delivered. After the done
// fragment it returns nil forever.
func (s *streamState) step(fragment ChatResponse) []types.StreamEvent {
	if s.done {
		return nil
	}

	var events []types.StreamEvent
	if !s.started {
		s.started = true
		events = append(events, s.messageStart())
	}

	msg := fragment.Message

	// A fragment's tool_calls is a full snapshot of all calls known so far.
	// Later snapshots replace earlier ones; they never merge.
	if len(msg.ToolCalls) > 0 {
		s.latestCalls = msg.ToolCalls
	}

	if (msg.Content != "" || msg.Thinking != "") && !s.textBlockOpen {
		events = append(events, s.openTextBlock())
	}

	if msg.Content != "" {
		s.fullText.WriteString(msg.Content)
		events = append(events, s.textDelta(msg.Content))
	}

	if msg.Thinking != "" {
		// Thinking is held back; it only surfaces at stream end, and only if
		// content stayed empty.
		s.fullThinking.WriteString(msg.Thinking)
	}

	if fragment.Done {
		events = append(events, s.finish()...)
	}

	return events
}

// finish runs the termination sequence once the done fragment arrives.
func (s *streamState) finish() []types.StreamEvent {
	s.done = true

	var events []types.StreamEvent

	if s.fullText.Len() == 0 && s.fullThinking.Len() > 0 {
		if !s.textBlockOpen {
			events = append(events, s.openTextBlock())
		}
		// The whole accumulated thinking value goes out as a single delta.
		events = append(events, s.textDelta(s.fullThinking.String()))
	}

	if s.textBlockOpen {
		events = append(events, types.ContentBlockStopEvent{
			Type:  types.EventTypeContentBlockStop,
			Index: s.blockIndex,
		})
		s.textBlockOpen = false
		s.blockIndex++
	}

	for _, call := range s.latestCalls {
		events = append(events,
			types.ContentBlockStartEvent{
				Type:  types.EventTypeContentBlockStart,
				Index: s.blockIndex,
				ContentBlock: types.ToolUseContentBlock{
					Type:  types.BlockTypeToolUse,
					ID:    newToolUseID(),
					Name:  call.Function.Name,
					Input: json.RawMessage(`{}`),
				},
			},
			types.ContentBlockDeltaEvent{
				Type:  types.EventTypeContentBlockDelta,
				Index: s.blockIndex,
				Delta: types.Delta{
					Type:        types.DeltaTypeInputJSON,
					PartialJSON: partialJSON(call.Function.Arguments),
				},
			},
			types.ContentBlockStopEvent{
				Type:  types.EventTypeContentBlockStop,
				Index: s.blockIndex,
			},
		)
		s.blockIndex++
	}

	stopReason := types.StopReasonEndTurn
	if len(s.latestCalls) > 0 {
		stopReason = types.StopReasonToolUse
	}

	return append(events,
		types.MessageDeltaEvent{
			Type:  types.EventTypeMessageDelta,
			Delta: types.MessageDelta{StopReason: stopReason},
			Usage: types.MessageDeltaUsage{OutputTokens: 0},
		},
		types.MessageStopEvent{Type: types.EventTypeMessageStop},
	)
}

func (s *streamState) messageStart() types.StreamEvent {
	return types.MessageStartEvent{
		Type: types.EventTypeMessageStart,
		Message: types.Message{
			ID:      s.messageID,
			Type:    "message",
			Role:    types.RoleAssistant,
			Content: []types.ContentBlock{},
			Model:   s.model,
			Usage:   types.Usage{},
		},
	}
}

func (s *streamState) openTextBlock() types.StreamEvent {
	s.textBlockOpen = true
	return types.ContentBlockStartEvent{
		Type:  types.EventTypeContentBlockStart,
		Index: s.blockIndex,
		ContentBlock: types.TextContentBlock{
			Type: types.BlockTypeText,
			Text: "",
		},
	}
}

func (s *streamState) textDelta(text string) types.StreamEvent {
	return types.ContentBlockDeltaEvent{
		Type:  types.EventTypeContentBlockDelta,
		Index: s.blockIndex,
		Delta: types.Delta{Type: types.DeltaTypeText, Text: text},
	}
}

// partialJSON renders tool-call arguments as the single input_json_delta
// payload: the JSON-encoded arguments object, or the literal string form when
// the arguments are not an object.
func partialJSON(args json.RawMessage) string {
	trimmed := strings.TrimSpace(string(args))
	if trimmed == "" {
		return "{}"
	}
	if strings.HasPrefix(trimmed, "{") {
		return trimmed
	}
	var literal string
	if err := json.Unmarshal(args, &literal); err == nil {
		return literal
	}
	return trimmed
}
