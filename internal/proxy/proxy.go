package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/hilyin/ollama-anthropic-shim/internal/anthropicadapter"
	"github.com/hilyin/ollama-anthropic-shim/internal/observability/middleware"
)

// maxRequestBytes bounds inbound request bodies.
const maxRequestBytes = 10 << 20

// ReadinessChecker reports whether the application is ready to serve traffic.
type ReadinessChecker interface {
	IsReady() bool
}

// Option configures a Proxy.
type Option func(*Proxy)

// WithTransport sets the transport used for upstream calls. Defaults to
// http.DefaultTransport; tests substitute a mock RoundTripper.
func WithTransport(transport http.RoundTripper) Option {
	return func(p *Proxy) {
		p.transport = transport
	}
}

// Proxy is the HTTP surface of the shim: the translation endpoint, the health
// endpoint, and the middleware stack around them.
type Proxy struct {
	handler   http.Handler
	transport http.RoundTripper
	server    *http.Server
}

// Compile-time check that Proxy can be served directly (used by tests).
var _ http.Handler = (*Proxy)(nil)

// New creates a Proxy around the given adapter.
func New(adapter anthropicadapter.CreateMessageAdapter, health ReadinessChecker, opts ...Option) (*Proxy, error) {
	if adapter == nil {
		return nil, errors.New("adapter cannot be nil")
	}
	if health == nil {
		return nil, errors.New("readiness checker cannot be nil")
	}

	p := &Proxy{
		transport: http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(p)
	}

	mux := http.NewServeMux()
	mux.Handle("POST /v1/messages", applyMiddlewares(
		&CreateMessageHandler{Adapter: adapter, Transport: p.transport},
		RequestSizeLimit(maxRequestBytes),
	))
	mux.Handle("GET /health", healthHandler(health))

	p.handler = applyMiddlewares(mux,
		middleware.RequestIDGeneration,
		middleware.TraceContextExtraction,
		middleware.Logging(slog.Default()),
		middleware.RequestIDPropagation,
		Recovery,
	)

	return p, nil
}

// ServeHTTP implements http.Handler, dispatching through the middleware stack.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.handler.ServeHTTP(w, r)
}

// Start begins serving on addr and returns a channel that reports a runtime
// serve failure. The returned channel is closed when the server stops.
func (p *Proxy) Start(ctx context.Context, addr string) (<-chan error, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	p.server = &http.Server{
		Handler: p.handler,
		// WriteTimeout stays zero: SSE responses are bounded by the upstream
		// call timeout, not by a per-response write deadline.
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := p.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	return errCh, nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests up to
// the context deadline.
func (p *Proxy) Shutdown(ctx context.Context) error {
	if p.server == nil {
		return nil
	}
	return p.server.Shutdown(ctx)
}
