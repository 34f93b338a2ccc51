package ollamachat

import (
	"fmt"
	"io"
	"net/http"

	"github.com/hilyin/ollama-anthropic-shim/internal/anthropicadapter"
	"github.com/hilyin/ollama-anthropic-shim/internal/anthropicadapter/types"
)

// maxErrorBodyBytes caps how much of an upstream error body is surfaced.
const maxErrorBodyBytes = 64 * 1024

// upstreamStatusError wraps a non-success upstream reply in the error
// envelope, carrying the raw upstream body and its status code.
func upstreamStatusError(resp *http.Response) *anthropicadapter.ErrorResponse {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	return &anthropicadapter.ErrorResponse{
		Err: anthropicadapter.Error{
			Type:    types.ErrorTypeUpstream,
			Message: string(body),
		},
		StatusCode: resp.StatusCode,
	}
}

// upstreamError wraps transport failures (unreachable host, timeout) as a 502
// upstream_error.
func upstreamError(err error) *anthropicadapter.ErrorResponse {
	return &anthropicadapter.ErrorResponse{
		Err: anthropicadapter.Error{
			Type:    types.ErrorTypeUpstream,
			Message: fmt.Sprintf("failed to reach upstream: %v", err),
		},
		StatusCode: http.StatusBadGateway,
	}
}
