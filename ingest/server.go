// Package ingest exposes the webhook ingestion boundary: an HTTP server
// that authenticates, rate limits, validates, and deduplicates inbound
// provider events before handing them to extraction and dispatch.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/solgate-dev/solgate"
	"github.com/solgate-dev/solgate/dispatch"
	"github.com/solgate-dev/solgate/signal"
)

// Server is the webhook ingestion HTTP server.
type Server struct {
	cfg        solgate.WebhookConfig
	router     chi.Router
	limiter    *Limiter
	dedup      *Dedup
	extractor  *signal.Extractor
	dispatcher *dispatch.Dispatcher
	metrics    *solgate.MetricsCollector
	meter      solgate.Meter
	gateway    *solgate.Gateway
	now        func() time.Time
}

// Option configures the server.
type Option func(*Server)

// WithMeter sets the meter receiving ingest events.
func WithMeter(m solgate.Meter) Option {
	return func(s *Server) { s.meter = m }
}

// WithGateway exposes the routed RPC surface at POST /rpc.
func WithGateway(gw *solgate.Gateway) Option {
	return func(s *Server) { s.gateway = gw }
}

// WithClock overrides the time source used for event timestamps, the
// rate limiter, and the dedup window.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
		s.limiter.WithClock(now)
		s.dedup.WithClock(now)
	}
}

// NewServer wires the ingestion pipeline behind a chi router.
func NewServer(cfg solgate.WebhookConfig, ex *signal.Extractor, d *dispatch.Dispatcher, mc *solgate.MetricsCollector, opts ...Option) *Server {
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 100
	}
	if cfg.RateWindow == 0 {
		cfg.RateWindow = time.Minute
	}
	if cfg.DedupWindow == 0 {
		cfg.DedupWindow = 5 * time.Minute
	}
	if cfg.DispatchTimeout == 0 {
		cfg.DispatchTimeout = 15 * time.Second
	}

	s := &Server{
		cfg:        cfg,
		limiter:    NewLimiter(cfg.RateLimit, cfg.RateWindow),
		dedup:      NewDedup(cfg.DedupWindow),
		extractor:  ex,
		dispatcher: d,
		metrics:    mc,
		meter:      solgate.NoopMeter{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Post("/webhooks/{provider}", s.handleWebhook)
	r.Get("/webhooks/metrics", s.handleMetrics)
	r.Get("/health", s.handleHealth)
	if s.gateway != nil {
		r.Post("/rpc", s.handleRPC)
	}

	s.router = r
	return s
}

// Handler returns the underlying http.Handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully. Limiter and dedup maps are pruned on a background ticker
// for the server's lifetime.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("ingest: listen on %s: %w", s.cfg.ListenAddr, err)
	}

	go s.pruneLoop(ctx)

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ingest: shutdown: %w", err)
	}
	return <-errCh
}

func (s *Server) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.DedupWindow)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.limiter.Prune()
			s.dedup.Prune()
		case <-ctx.Done():
			return
		}
	}
}
