package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hilyin/ollama-anthropic-shim/internal/anthropicadapter"
	"github.com/hilyin/ollama-anthropic-shim/internal/anthropicadapter/types"
)

// CreateMessageHandler handles Anthropic-compatible message creation requests.
type CreateMessageHandler struct {
	Adapter   anthropicadapter.CreateMessageAdapter
	Transport http.RoundTripper
}

// Compile-time check to ensure CreateMessageHandler implements http.Handler
var _ http.Handler = (*CreateMessageHandler)(nil)

// ServeHTTP implements http.Handler interface for streaming or non-streaming requests.
func (h *CreateMessageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req anthropicadapter.CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			slog.WarnContext(ctx, "request exceeds size limit", "limit_bytes", maxBytesErr.Limit)
			writeJSONMessagesError(ctx, w, &anthropicadapter.ErrorResponse{
				Err: anthropicadapter.Error{
					Type:    types.ErrorTypeInvalidRequest,
					Message: http.StatusText(http.StatusRequestEntityTooLarge),
				},
			})
			return
		}
		slog.ErrorContext(ctx, "failed to decode request", "error", err)
		writeJSONMessagesError(ctx, w, &anthropicadapter.ErrorResponse{
			Err: anthropicadapter.Error{
				Type:    types.ErrorTypeInvalidRequest,
				Message: http.StatusText(http.StatusBadRequest),
			},
		})
		return
	}

	if req.Stream != nil && *req.Stream {
		h.streamResponse(ctx, w, req)
	} else {
		h.writeResponse(ctx, w, req)
	}
}

// writeResponse handles non-streaming message requests.
func (h *CreateMessageHandler) writeResponse(
	ctx context.Context,
	w http.ResponseWriter,
	req anthropicadapter.CreateMessageRequest,
) {
	if ctx.Err() != nil {
		return
	}
	response, err := h.Adapter.ProcessRequest(ctx, req, h.Transport)
	if err != nil {
		slog.ErrorContext(ctx, "request failed", "error", err)
		writeJSONMessagesError(ctx, w, asErrorResponse(err))
		return
	}

	writeJSON(ctx, w, response, http.StatusOK)
}

// streamResponse streams translated events using SSE.
func (h *CreateMessageHandler) streamResponse(
	ctx context.Context,
	w http.ResponseWriter,
	req anthropicadapter.CreateMessageRequest,
) {
	if ctx.Err() != nil {
		return
	}
	stream, err := h.Adapter.ProcessStreamingRequest(ctx, req, h.Transport)
	if err != nil {
		// Upstream failed before any fragment: the stream surface still owns
		// the error, as a single error event with no message_start.
		slog.ErrorContext(ctx, "streaming request failed", "error", err)
		h.writeStreamError(ctx, w, asErrorResponse(err))
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		slog.ErrorContext(ctx, "SSE not supported", "error", err)
		writeJSONMessagesError(ctx, w, internalErrorResponse())
		return
	}

	for event, err := range stream {
		// Check for client disconnect before processing the event
		if ctx.Err() != nil {
			slog.DebugContext(ctx, "client disconnected during stream")
			return
		}

		if err != nil {
			slog.ErrorContext(ctx, "stream error", "error", err)
			writeSSEError(ctx, sse, asErrorResponse(err))
			return
		}

		if writeErr := sse.WriteEvent(event.StreamEventType()); writeErr != nil {
			slog.ErrorContext(ctx, "failed to write event type", "error", writeErr)
			return
		}
		if writeErr := sse.WriteData(event); writeErr != nil {
			slog.ErrorContext(ctx, "failed to write event payload", "error", writeErr)
			return
		}
	}
}

// writeStreamError commits to the event-stream response and emits a single
// error event.
func (h *CreateMessageHandler) writeStreamError(
	ctx context.Context,
	w http.ResponseWriter,
	errResp *anthropicadapter.ErrorResponse,
) {
	sse, err := NewSSEWriter(w)
	if err != nil {
		slog.ErrorContext(ctx, "SSE not supported", "error", err)
		writeJSONMessagesError(ctx, w, errResp)
		return
	}
	writeSSEError(ctx, sse, errResp)
}

// writeSSEError frames an error envelope as the SSE error event.
func writeSSEError(ctx context.Context, sse *SSEWriter, errResp *anthropicadapter.ErrorResponse) {
	event := anthropicadapter.ErrorEvent{
		Type:  types.EventTypeError,
		Error: errResp.Err,
	}
	if err := sse.WriteEvent(event.StreamEventType()); err != nil {
		slog.ErrorContext(ctx, "failed to write error event type", "error", err)
		return
	}
	if err := sse.WriteData(event); err != nil {
		slog.ErrorContext(ctx, "failed to write error event", "error", err)
	}
}

// asErrorResponse recovers the wire envelope from an adapter error, wrapping
// anything unexpected as a generic internal_error with no detail leaked.
func asErrorResponse(err error) *anthropicadapter.ErrorResponse {
	var errResp *anthropicadapter.ErrorResponse
	if errors.As(err, &errResp) {
		return errResp
	}
	return internalErrorResponse()
}

func internalErrorResponse() *anthropicadapter.ErrorResponse {
	return &anthropicadapter.ErrorResponse{
		Err: anthropicadapter.Error{
			Type:    types.ErrorTypeInternal,
			Message: http.StatusText(http.StatusInternalServerError),
		},
	}
}
