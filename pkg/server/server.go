package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/bedrockhome/agent/pkg/conversation"
	"github.com/bedrockhome/agent/pkg/metrics"
	"github.com/bedrockhome/agent/pkg/prompt"
	"github.com/bedrockhome/agent/pkg/resilience"
)

// Turner runs one conversation turn. agent.Loop satisfies it.
type Turner interface {
	Run(ctx context.Context, history *conversation.History) (string, error)
}

// SnapshotSource yields the exposed device set for prompt rendering.
type SnapshotSource interface {
	Snapshot(ctx context.Context) ([]prompt.Device, error)
}

type Config struct {
	Port     int
	Language string
	// Template is the raw system prompt template; empty selects the
	// built-in default.
	Template string
	// RefreshPromptPerTurn re-renders the system prompt with a fresh
	// device snapshot on every turn.
	RefreshPromptPerTurn bool
	RememberConversation bool
	RememberInteractions int
	RetryAttempts        int
	RetryBackoff         time.Duration
}

// Server exposes the conversation agent over the Home Assistant
// conversation API shape.
type Server struct {
	cfg      Config
	app      *fiber.App
	turner   Turner
	store    *conversation.Store
	composer *prompt.Composer
	devices  SnapshotSource
	retry    resilience.RetryPolicy
	breaker  *resilience.CircuitBreaker
	observer metrics.Observer
	logger   *slog.Logger
}

type Option func(*Server)

func WithObserver(obs metrics.Observer) Option {
	return func(s *Server) { s.observer = obs }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

func New(cfg Config, turner Turner, store *conversation.Store, composer *prompt.Composer, devices SnapshotSource, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		turner:   turner,
		store:    store,
		composer: composer,
		devices:  devices,
		retry:    resilience.NewRetryPolicy(cfg.RetryAttempts, cfg.RetryBackoff),
		breaker:  resilience.NewCircuitBreaker(3, 30*time.Second),
		observer: metrics.NoopObserver{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           2 * time.Minute,
	})
	app.Use(fiberrecover.New())
	app.Post("/api/conversation/process", s.handleProcess)
	app.Get("/health", s.handleHealth)
	s.app = app
	return s
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.logger.Info("server_listening", "addr", addr)
	return s.app.Listen(addr)
}

// Drain shuts the listener down gracefully, letting in-flight turns
// finish.
func (s *Server) Drain() error {
	return s.app.ShutdownWithTimeout(30 * time.Second)
}
