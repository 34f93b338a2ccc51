package ollamachat

import "encoding/json"

// ChatRequest is the body sent to POST {base_url}/api/chat.
type ChatRequest struct {
	Model    string           `json:"model"`
	Messages []ChatMessage    `json:"messages"`
	Options  ChatOptions      `json:"options"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
	Stream   bool             `json:"stream"`
}

// ChatOptions carries the sampling parameters the upstream understands.
type ChatOptions struct {
	NumPredict  int      `json:"num_predict"`
	Temperature float64  `json:"temperature"`
	TopP        *float64 `json:"top_p,omitempty"`
}

// ChatMessage is one turn in the upstream's flat message list. On replies,
// reasoning models may leave Content empty and put their output in Thinking.
type ChatMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content,omitempty"`
	Thinking  string     `json:"thinking,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall is a model-issued function invocation.
type ToolCall struct {
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction names the function and carries its arguments as opaque JSON.
type ToolCallFunction struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolDefinition is the upstream's tool schema: a "function" wrapper around
// name, description, and a JSON-schema parameters value passed through as-is.
type ToolDefinition struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes one callable function.
type FunctionDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ChatResponse is one upstream reply. On the streaming path it is one
// newline-delimited fragment; the last fragment carries Done=true. A
// fragment's ToolCalls, when present, is a full snapshot of all calls known
// so far, not a delta.
type ChatResponse struct {
	Message ChatMessage `json:"message"`
	Done    bool        `json:"done"`
}
