package proxy

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hilyin/ollama-anthropic-shim/internal/anthropicadapter"
	"github.com/hilyin/ollama-anthropic-shim/internal/anthropicadapter/types"
)

// writeJSON writes a JSON response with the given status code.
// Logs encoding failures internally using the provided context.
func writeJSON(ctx context.Context, w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	// Headers and status are written before encoding to avoid buffering.
	// If encoding fails, the client may receive a partial response.
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.ErrorContext(ctx, "failed to encode JSON response", "error", err)
	}
}

// writeJSONMessagesError writes the uniform error envelope with the
// appropriate HTTP status code. An explicit StatusCode on the envelope (the
// upstream's own status) wins; otherwise the status derives from the error
// type.
func writeJSONMessagesError(ctx context.Context, w http.ResponseWriter, errResp *anthropicadapter.ErrorResponse) {
	status := errResp.StatusCode
	if status == 0 {
		switch errResp.Err.Type {
		case types.ErrorTypeInvalidRequest:
			status = http.StatusBadRequest
		case types.ErrorTypeUpstream:
			status = http.StatusBadGateway
		case types.ErrorTypeInternal:
			status = http.StatusInternalServerError
		default:
			status = http.StatusInternalServerError
		}
	}

	writeJSON(ctx, w, errResp, status)
}
