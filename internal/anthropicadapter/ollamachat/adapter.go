package ollamachat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"iter"
	"log/slog"
	"net/http"

	"github.com/hilyin/ollama-anthropic-shim/internal/anthropicadapter"
	"github.com/hilyin/ollama-anthropic-shim/internal/anthropicadapter/types"
)

// Default sampling values applied when the inbound request omits them.
const (
	defaultMaxTokens   = 4096
	defaultTemperature = 0.2
)

// maxFragmentBytes bounds a single newline-delimited upstream fragment.
const maxFragmentBytes = 1 << 20

// Adapter translates Messages API requests into Ollama chat calls and the
// replies back. The configured model always wins over the inbound request's
// model field.
type Adapter struct {
	baseURL string
	model   string
	apiKey  string
}

// Compile-time check that Adapter satisfies the operation contract.
var _ anthropicadapter.CreateMessageAdapter = (*Adapter)(nil)

// NewAdapter creates an adapter for the upstream at baseURL. apiKey may be
// empty, in which case no Authorization header is sent.
func NewAdapter(baseURL, model, apiKey string) *Adapter {
	return &Adapter{baseURL: baseURL, model: model, apiKey: apiKey}
}

// buildChatRequest translates the inbound request into the upstream format.
func (a *Adapter) buildChatRequest(clientReq anthropicadapter.CreateMessageRequest, stream bool) ChatRequest {
	options := ChatOptions{
		NumPredict:  defaultMaxTokens,
		Temperature: defaultTemperature,
		TopP:        clientReq.TopP,
	}
	if clientReq.MaxTokens != nil && *clientReq.MaxTokens > 0 {
		options.NumPredict = *clientReq.MaxTokens
	}
	if clientReq.Temperature != nil {
		options.Temperature = *clientReq.Temperature
	}

	return ChatRequest{
		Model:    a.model,
		Messages: fromMessages(clientReq.Messages),
		Options:  options,
		Tools:    fromTools(clientReq.Tools),
		Stream:   stream,
	}
}

// ProcessRequest handles the non-streaming path: translate, forward, and
// build one complete response from the upstream's single reply.
func (a *Adapter) ProcessRequest(
	ctx context.Context,
	clientReq anthropicadapter.CreateMessageRequest,
	transport http.RoundTripper,
) (*types.Message, error) {
	resp, err := a.doChat(ctx, a.buildChatRequest(clientReq, false), transport)
	if err != nil {
		return nil, upstreamError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, upstreamStatusError(resp)
	}

	var reply ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, upstreamError(err)
	}

	return toMessage(&reply, a.model), nil
}

// ProcessStreamingRequest handles the streaming path. The upstream call is
// made eagerly so a pre-stream failure (non-success status, unreachable host)
// is returned as an error before any event exists; the handler then emits it
// as the sole error event. On success the returned iterator owns the
// response body and closes it on every exit path, including early breaks.
func (a *Adapter) ProcessStreamingRequest(
	ctx context.Context,
	clientReq anthropicadapter.CreateMessageRequest,
	transport http.RoundTripper,
) (iter.Seq2[types.StreamEvent, error], error) {
	resp, err := a.doChat(ctx, a.buildChatRequest(clientReq, true), transport)
	if err != nil {
		return nil, upstreamError(err)
	}

	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		return nil, upstreamStatusError(resp)
	}

	state := newStreamState(a.model)

	return func(yield func(types.StreamEvent, error) bool) {
		defer func() { _ = resp.Body.Close() }()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), maxFragmentBytes)

		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}

			var fragment ChatResponse
			if err := json.Unmarshal(line, &fragment); err != nil {
				// Transport-level chunking can split fragments; skip the
				// unparseable line rather than aborting the stream.
				slog.DebugContext(ctx, "skipping malformed upstream fragment", "error", err)
				continue
			}

			for _, event := range state.step(fragment) {
				if !yield(event, nil) {
					return
				}
			}

			if state.done {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield(nil, upstreamError(err))
		}
	}, nil
}
