package anthropicadapter

import (
	"context"
	"iter"
	"net/http"

	"github.com/hilyin/ollama-anthropic-shim/internal/anthropicadapter/types"
)

// Adapter defines the contract for transforming client requests to provider API calls.
//
// Type parameters allow the interface to express transformation contracts for different
// request/response shapes while maintaining compile-time type safety.
//
// Type parameters:
//   - TRequest:  Client-specific request structure
//   - TResponse: Client-specific response structure
//   - TEvent:    Client-specific streaming event protocol
type Adapter[TRequest, TResponse, TEvent any] interface {
	// ProcessRequest transforms the client request, calls the provider API, and returns
	// the transformed response. Implementations should remain stateless.
	ProcessRequest(ctx context.Context, clientReq TRequest, transport http.RoundTripper) (*TResponse, error)

	// ProcessStreamingRequest transforms the client request, calls the provider streaming API,
	// and returns an iterator of transformed events. Implementations should remain stateless
	// across requests; per-stream state lives inside the returned iterator.
	ProcessStreamingRequest(ctx context.Context, clientReq TRequest, transport http.RoundTripper) (iter.Seq2[TEvent, error], error)
}

// Type aliases for the Messages API operation (see types package).
// CreateMessageAdapter is the concrete adapter interface for this operation.
type (
	CreateMessageRequest = types.CreateMessageRequest
	MessageResponse      = types.Message
	StreamEvent          = types.StreamEvent

	CreateMessageAdapter = Adapter[
		CreateMessageRequest,
		MessageResponse,
		StreamEvent,
	]
)

// Type aliases for the uniform error envelope (see types package).
type (
	Error         = types.Error
	ErrorResponse = types.ErrorResponse
	ErrorEvent    = types.ErrorEvent
)
