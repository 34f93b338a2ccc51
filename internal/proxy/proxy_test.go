package proxy

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hilyin/ollama-anthropic-shim/internal/anthropicadapter/ollamachat"
	"github.com/hilyin/ollama-anthropic-shim/internal/anthropicadapter/types"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

// roundTripFunc lets tests stand in for the upstream.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

type staticReady bool

func (s staticReady) IsReady() bool { return bool(s) }

func upstreamResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// newTestServer builds a proxy around a mock upstream and returns the server
// plus a pointer to the last request body the upstream received.
func newTestServer(t *testing.T, ready bool, transport roundTripFunc) *httptest.Server {
	t.Helper()

	adapter := ollamachat.NewAdapter("http://upstream.test", "test-model", "")
	p, err := New(adapter, staticReady(ready), WithTransport(transport))
	require.NoError(t, err)

	server := httptest.NewServer(p)
	t.Cleanup(server.Close)
	return server
}

func postMessages(t *testing.T, server *httptest.Server, body string) *http.Response {
	t.Helper()

	resp, err := http.Post(server.URL+"/v1/messages", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// sseEvent is one parsed frame of a text/event-stream response.
type sseEvent struct {
	Name string
	Data json.RawMessage
}

func parseSSE(t *testing.T, body io.Reader) []sseEvent {
	t.Helper()

	raw, err := io.ReadAll(body)
	require.NoError(t, err)

	var events []sseEvent
	for _, frame := range strings.Split(strings.TrimSpace(string(raw)), "\n\n") {
		var ev sseEvent
		for _, line := range strings.Split(frame, "\n") {
			switch {
			case strings.HasPrefix(line, "event: "):
				ev.Name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				ev.Data = json.RawMessage(strings.TrimPrefix(line, "data: "))
			}
		}
		events = append(events, ev)
	}
	return events
}

func TestCreateMessageBuffered(t *testing.T) {
	var captured []byte
	server := newTestServer(t, true, func(r *http.Request) (*http.Response, error) {
		var err error
		captured, err = io.ReadAll(r.Body)
		require.NoError(t, err)

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "http://upstream.test/api/chat", r.URL.String())
		assert.Empty(t, r.Header.Get("Authorization"))

		return upstreamResponse(http.StatusOK,
			`{"message":{"role":"assistant","content":"Hello there"},"done":true}`), nil
	})

	resp := postMessages(t, server, `{
		"model": "claude-sonnet",
		"messages": [{"role": "user", "content": "Hi"}],
		"max_tokens": 100
	}`)

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var msg types.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msg))
	assert.True(t, strings.HasPrefix(msg.ID, "msg_"))
	assert.Equal(t, "message", msg.Type)
	assert.Equal(t, types.RoleAssistant, msg.Role)
	// The configured model wins over the inbound request's model.
	assert.Equal(t, "test-model", msg.Model)
	require.Len(t, msg.Content, 1)
	assert.Equal(t, "Hello there", msg.Content[0].Text)
	require.NotNil(t, msg.StopReason)
	assert.Equal(t, types.StopReasonEndTurn, *msg.StopReason)
	assert.Equal(t, types.Usage{}, msg.Usage)

	var outbound ollamachat.ChatRequest
	require.NoError(t, json.Unmarshal(captured, &outbound))
	assert.Equal(t, "test-model", outbound.Model)
	assert.False(t, outbound.Stream)
	assert.Equal(t, 100, outbound.Options.NumPredict)
	assert.InDelta(t, 0.2, outbound.Options.Temperature, 1e-9)
	assert.Nil(t, outbound.Options.TopP)
	require.Len(t, outbound.Messages, 1)
	assert.Equal(t, ollamachat.ChatMessage{Role: types.RoleUser, Content: "Hi"}, outbound.Messages[0])
	assert.NotContains(t, string(captured), `"tools"`)
}

func TestCreateMessageToolResultTranslation(t *testing.T) {
	var captured []byte
	server := newTestServer(t, true, func(r *http.Request) (*http.Response, error) {
		var err error
		captured, err = io.ReadAll(r.Body)
		require.NoError(t, err)
		return upstreamResponse(http.StatusOK,
			`{"message":{"role":"assistant","content":"It is sunny"},"done":true}`), nil
	})

	postMessages(t, server, `{
		"messages": [
			{"role": "user", "content": "Weather in Berlin?"},
			{"role": "assistant", "content": [
				{"type": "text", "text": "Checking"},
				{"type": "tool_use", "id": "toolu_1", "name": "get_weather", "input": {"city": "Berlin"}}
			]},
			{"role": "user", "content": [
				{"type": "tool_result", "tool_use_id": "toolu_1", "content": "sunny, 22C"}
			]}
		]
	}`)

	var outbound ollamachat.ChatRequest
	require.NoError(t, json.Unmarshal(captured, &outbound))
	require.Len(t, outbound.Messages, 3)

	assert.Equal(t, types.RoleUser, outbound.Messages[0].Role)

	assistant := outbound.Messages[1]
	assert.Equal(t, types.RoleAssistant, assistant.Role)
	assert.Equal(t, "Checking", assistant.Content)
	require.Len(t, assistant.ToolCalls, 1)
	assert.Equal(t, "get_weather", assistant.ToolCalls[0].Function.Name)
	assert.JSONEq(t, `{"city":"Berlin"}`, string(assistant.ToolCalls[0].Function.Arguments))

	result := outbound.Messages[2]
	assert.Equal(t, types.RoleTool, result.Role)
	assert.Equal(t, "sunny, 22C", result.Content)
}

func TestCreateMessageToolDefinitionsForwarded(t *testing.T) {
	var captured []byte
	server := newTestServer(t, true, func(r *http.Request) (*http.Response, error) {
		var err error
		captured, err = io.ReadAll(r.Body)
		require.NoError(t, err)
		return upstreamResponse(http.StatusOK,
			`{"message":{"role":"assistant","content":"ok"},"done":true}`), nil
	})

	postMessages(t, server, `{
		"messages": [{"role": "user", "content": "Hi"}],
		"tools": [{"name": "get_weather", "description": "d", "input_schema": {"type": "object"}}]
	}`)

	var outbound ollamachat.ChatRequest
	require.NoError(t, json.Unmarshal(captured, &outbound))
	require.Len(t, outbound.Tools, 1)
	assert.Equal(t, "function", outbound.Tools[0].Type)
	assert.Equal(t, "get_weather", outbound.Tools[0].Function.Name)
	assert.JSONEq(t, `{"type":"object"}`, string(outbound.Tools[0].Function.Parameters))
}

func TestCreateMessageStreaming(t *testing.T) {
	server := newTestServer(t, true, func(r *http.Request) (*http.Response, error) {
		var outbound ollamachat.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&outbound))
		assert.True(t, outbound.Stream)

		fragments := strings.Join([]string{
			`{"message":{"role":"assistant","content":"Hel"},"done":false}`,
			`{"message":{"role":"assistant","content":"lo"},"done":false}`,
			`{"message":{"role":"assistant","content":""},"done":true}`,
		}, "\n")
		return upstreamResponse(http.StatusOK, fragments), nil
	})

	resp := postMessages(t, server, `{
		"messages": [{"role": "user", "content": "Hi"}],
		"stream": true
	}`)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := parseSSE(t, resp.Body)
	require.Len(t, events, 7)

	names := make([]string, 0, len(events))
	for _, ev := range events {
		names = append(names, ev.Name)
	}
	assert.Equal(t, []string{
		"message_start",
		"content_block_start",
		"content_block_delta",
		"content_block_delta",
		"content_block_stop",
		"message_delta",
		"message_stop",
	}, names)

	// Every payload carries its own type field matching the frame name.
	for _, ev := range events {
		var payload struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(ev.Data, &payload))
		assert.Equal(t, ev.Name, payload.Type)
	}

	var blockStart struct {
		Index        int `json:"index"`
		ContentBlock struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content_block"`
	}
	require.NoError(t, json.Unmarshal(events[1].Data, &blockStart))
	assert.Equal(t, 0, blockStart.Index)
	assert.Equal(t, "text", blockStart.ContentBlock.Type)
	assert.Contains(t, string(events[1].Data), `"text":""`)

	var delta struct {
		Delta struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"delta"`
	}
	require.NoError(t, json.Unmarshal(events[2].Data, &delta))
	assert.Equal(t, "text_delta", delta.Delta.Type)
	assert.Equal(t, "Hel", delta.Delta.Text)

	var messageDelta struct {
		Delta struct {
			StopReason string `json:"stop_reason"`
		} `json:"delta"`
		Usage struct {
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	require.NoError(t, json.Unmarshal(events[5].Data, &messageDelta))
	assert.Equal(t, "end_turn", messageDelta.Delta.StopReason)
	assert.Equal(t, 0, messageDelta.Usage.OutputTokens)
}

func TestCreateMessageStreamingUpstreamFailure(t *testing.T) {
	server := newTestServer(t, true, func(*http.Request) (*http.Response, error) {
		return upstreamResponse(http.StatusInternalServerError, `model not found`), nil
	})

	resp := postMessages(t, server, `{
		"messages": [{"role": "user", "content": "Hi"}],
		"stream": true
	}`)

	// The stream surface owns the failure: HTTP 200, one error event, nothing
	// else — in particular no message_start.
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := parseSSE(t, resp.Body)
	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0].Name)

	var payload struct {
		Type  string `json:"type"`
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(events[0].Data, &payload))
	assert.Equal(t, "error", payload.Type)
	assert.Equal(t, "upstream_error", payload.Error.Type)
	assert.Contains(t, payload.Error.Message, "model not found")
}

func TestCreateMessageBufferedUpstreamStatusPassthrough(t *testing.T) {
	server := newTestServer(t, true, func(*http.Request) (*http.Response, error) {
		return upstreamResponse(http.StatusNotFound, `no such model`), nil
	})

	resp := postMessages(t, server, `{"messages": [{"role": "user", "content": "Hi"}]}`)

	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var envelope struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "upstream_error", envelope.Error.Type)
	assert.Contains(t, envelope.Error.Message, "no such model")
}

func TestCreateMessageUpstreamUnreachable(t *testing.T) {
	server := newTestServer(t, true, func(*http.Request) (*http.Response, error) {
		return nil, io.ErrUnexpectedEOF
	})

	resp := postMessages(t, server, `{"messages": [{"role": "user", "content": "Hi"}]}`)

	require.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var envelope struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "upstream_error", envelope.Error.Type)
}

func TestCreateMessageMalformedBody(t *testing.T) {
	server := newTestServer(t, true, func(*http.Request) (*http.Response, error) {
		t.Error("upstream must not be called")
		return nil, io.ErrUnexpectedEOF
	})

	resp := postMessages(t, server, `{not json`)

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var envelope struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "invalid_request_error", envelope.Error.Type)
}

func TestCreateMessageAuthorizationHeader(t *testing.T) {
	adapter := ollamachat.NewAdapter("http://upstream.test", "m", "secret-key")
	var gotAuth string
	p, err := New(adapter, staticReady(true), WithTransport(roundTripFunc(func(r *http.Request) (*http.Response, error) {
		gotAuth = r.Header.Get("Authorization")
		return upstreamResponse(http.StatusOK,
			`{"message":{"role":"assistant","content":"ok"},"done":true}`), nil
	})))
	require.NoError(t, err)

	server := httptest.NewServer(p)
	t.Cleanup(server.Close)

	resp := postMessages(t, server, `{"messages": [{"role": "user", "content": "Hi"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Bearer secret-key", gotAuth)
}

func TestHealth(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		server := newTestServer(t, true, func(*http.Request) (*http.Response, error) {
			return nil, io.ErrUnexpectedEOF
		})

		resp, err := http.Get(server.URL + "/health")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"ok":true}`, string(body))
	})

	t.Run("not ready", func(t *testing.T) {
		server := newTestServer(t, false, func(*http.Request) (*http.Response, error) {
			return nil, io.ErrUnexpectedEOF
		})

		resp, err := http.Get(server.URL + "/health")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, staticReady(true))
	assert.Error(t, err)

	adapter := ollamachat.NewAdapter("http://upstream.test", "m", "")
	_, err = New(adapter, nil)
	assert.Error(t, err)
}

func BenchmarkCreateMessageBuffered(b *testing.B) {
	upstream := `{"message":{"role":"assistant","content":"Hello there"},"done":true}`
	adapter := ollamachat.NewAdapter("http://upstream.test", "m", "")
	p, err := New(adapter, staticReady(true), WithTransport(roundTripFunc(func(*http.Request) (*http.Response, error) {
		return upstreamResponse(http.StatusOK, upstream), nil
	})))
	if err != nil {
		b.Fatal(err)
	}

	body := []byte(`{"messages": [{"role": "user", "content": "Hi"}]}`)

	b.ReportAllocs()
	for b.Loop() {
		req := httptest.NewRequest(http.MethodPost, "/v1/messages", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		p.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			b.Fatalf("unexpected status %d", rec.Code)
		}
	}
}
