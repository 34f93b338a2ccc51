package ollamachat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// upstreamTimeout bounds the whole upstream call, including streaming body
// reads. Exceeding it surfaces as an upstream failure, never a partial
// response.
const upstreamTimeout = 2 * time.Minute

// doChat posts one chat request to {base_url}/api/chat and returns the raw
// HTTP response. The caller owns the body and must close it on every path.
func (a *Adapter) doChat(ctx context.Context, chatReq ChatRequest, transport http.RoundTripper) (*http.Response, error) {
	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create chat request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	if transport == nil {
		transport = http.DefaultTransport
	}
	client := &http.Client{
		Transport: transport,
		Timeout:   upstreamTimeout,
	}

	return client.Do(req)
}
