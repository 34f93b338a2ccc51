// Package ollamachat adapts Anthropic Messages API requests to the Ollama
// chat API, enabling Anthropic SDK clients to talk to a local inference
// server without code changes.
//
// The adapter handles:
//
//   - Message transformation: polymorphic content (string or typed blocks)
//     collapses into the upstream's flat message list. Assistant tool_use
//     blocks become tool_calls; every tool_result block becomes a separate
//     {role: tool} message regardless of the inbound message's role.
//
//   - Tool calling: tool definitions are renamed field-for-field into the
//     upstream's function wrapper with the input schema passed through as
//     opaque JSON. Upstream tool calls come back as tool_use content blocks
//     with freshly generated toolu_ identifiers.
//
//   - Thinking fallback: reasoning models may reply with empty content and
//     their output in a thinking field; when content stays empty the
//     accumulated thinking is surfaced as the message text instead.
//
//   - Streaming: the upstream delivers newline-delimited JSON fragments whose
//     granularity does not align with the Messages API event grammar. A
//     per-session state machine (stream.go) reassembles them into a strictly
//     ordered event sequence with contiguous block indices. Fragments carry
//     tool_calls as full snapshots; the latest snapshot wins.
//
// # Adapters
//
// Adapter: Anthropic CreateMessage → Ollama /api/chat
package ollamachat
