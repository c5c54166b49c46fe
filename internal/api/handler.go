package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"trade-clicker/internal/engine"
	"trade-clicker/internal/events"
	"trade-clicker/internal/monitor"
	"trade-clicker/internal/state"
	"trade-clicker/pkg/db"
)

// SignalService is the dispatcher as seen by HTTP handlers.
type SignalService interface {
	Submit(ctx context.Context, req engine.Request) (engine.Result, error)
	Position(ctx context.Context) (state.Position, error)
}

// JournalReader lists recent signals.
type JournalReader interface {
	ListJournal(ctx context.Context, limit int) ([]db.JournalEntry, error)
}

// Server wires HTTP endpoints around the signal dispatcher.
type Server struct {
	Router  *gin.Engine
	Signals SignalService
	Bus     *events.Bus
	Journal JournalReader
	Metrics *monitor.SystemMetrics
	Meta    SystemMeta

	log     zerolog.Logger
	limiter *ipLimiters
	http    *http.Server
}

// SystemMeta describes runtime status exposed by /health.
type SystemMeta struct {
	DryRun  bool
	Store   string
	Version string
}

// Options configures optional collaborators and middleware.
type Options struct {
	Bus           *events.Bus
	Journal       JournalReader
	Metrics       *monitor.SystemMetrics
	Meta          SystemMeta
	WebhookSecret string
	CORSOrigins   []string
	Timeout       time.Duration // per request, default 30s
	Logger        zerolog.Logger
}

func NewServer(signals SignalService, opts Options) *Server {
	r := gin.New()
	log := opts.Logger.With().Str("component", "api").Logger()
	limiter := newIPLimiters(20, 50)
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// Middleware stack (order matters!)
	r.Use(gin.CustomRecovery(recoveryHandler(log))) // Panic recovery (first)
	r.Use(RequestIDMiddleware())                    // Request ID tracking
	r.Use(RequestLogger(log))                       // Request logging (after ID is set)
	r.Use(RateLimitMiddleware(limiter, log))        // Rate limiting
	r.Use(TimeoutMiddleware(timeout))               // Request deadline
	r.Use(CORSMiddleware(opts.CORSOrigins))         // CORS (last before routes)

	s := &Server{
		Router:  r,
		Signals: signals,
		Bus:     opts.Bus,
		Journal: opts.Journal,
		Metrics: opts.Metrics,
		Meta:    opts.Meta,
		log:     log,
		limiter: limiter,
	}
	s.routes(opts.WebhookSecret)
	return s
}

func (s *Server) routes(webhookSecret string) {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)

	api := s.Router.Group("/api")
	{
		api.GET("/position", s.getPosition)
		api.GET("/signals", s.getSignals)
		api.GET("/metrics", s.getMetrics)

		// Signal intake, signed when a webhook secret is configured.
		intake := api.Group("")
		if webhookSecret != "" {
			intake.Use(SignatureMiddleware(webhookSecret))
		}
		intake.POST("/signal", s.postSignal)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"dry_run": s.Meta.DryRun,
		"store":   s.Meta.Store,
		"version": s.Meta.Version,
	})
}

// Start serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go s.limiter.cleanup(ctx, 5*time.Minute)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}
