package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Sounak-star/ai-agent-honeypot/internal/intel"
	"github.com/Sounak-star/ai-agent-honeypot/internal/metrics"
	"github.com/Sounak-star/ai-agent-honeypot/internal/processor"
	"github.com/Sounak-star/ai-agent-honeypot/internal/session"
	"github.com/Sounak-star/ai-agent-honeypot/internal/signal"
)

const (
	ServiceName    = "AI Agentic Honeypot"
	ServiceVersion = "2.0.0"

	maxBodyBytes    = 1 << 20
	pingTimeout     = 2 * time.Second
	shutdownTimeout = 15 * time.Second
)

// Engine is the message pipeline behind the chat endpoints.
type Engine interface {
	HandleMessage(ctx context.Context, req processor.Request) (*processor.Result, error)
	Session(ctx context.Context, id string) (*session.Session, error)
}

type Options struct {
	Port   int
	APIKey string

	Engine    Engine
	Scorer    *signal.Scorer
	Extractor *intel.Extractor

	// Store is only used for health reporting. PingTimeout bounds the health
	// check's ping and defaults to two seconds.
	Store       session.Store
	StoreName   string
	PingTimeout time.Duration

	ReplyModel string

	RateLimitRPS   float64
	RateLimitBurst int

	Metrics *metrics.Metrics
	Logger  *slog.Logger
	Now     func() time.Time
}

type Server struct {
	router  *chi.Mux
	port    int
	apiKey  string
	engine  Engine
	scorer  *signal.Scorer
	extract *intel.Extractor

	store       session.Store
	storeName   string
	pingTimeout time.Duration
	replyModel  string

	limiter *clientLimiter
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = pingTimeout
	}
	if opts.Scorer == nil {
		opts.Scorer = signal.NewDefaultScorer(0)
	}
	if opts.Extractor == nil {
		opts.Extractor = intel.NewDefaultExtractor()
	}

	s := &Server{
		router:      chi.NewRouter(),
		port:        opts.Port,
		apiKey:      opts.APIKey,
		engine:      opts.Engine,
		scorer:      opts.Scorer,
		extract:     opts.Extractor,
		store:       opts.Store,
		storeName:   opts.StoreName,
		pingTimeout: opts.PingTimeout,
		replyModel:  opts.ReplyModel,
		limiter:     newClientLimiter(opts.RateLimitRPS, opts.RateLimitBurst, opts.Now),
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		now:         opts.Now,
	}

	r := s.router
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  func(*http.Request, string) bool { return true },
		AllowedMethods:   []string{"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/", s.health)
	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Use(s.requireAPIKey)

		r.Post("/chat", s.chat)
		r.Post("/api/v1/honeypot/chat", s.chat)
		r.Get("/session/{sessionID}", s.getSession)
		r.Post("/analyze", s.analyze)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	return s
}

// Handler exposes the router, mainly for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	return nil
}
