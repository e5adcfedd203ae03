// Package engine selects and wires a store backend into a workflow
// Provider. It is the only package that knows how to construct every
// backend, so the application layer depends on configuration alone.
//
// Construct one Engine at process start and pass its Provider to whatever
// layer needs it. The Engine is dependency-injected state, not a global:
// holding it for the process lifetime is safe because the Provider keeps no
// per-call mutable state beyond what each store protects internally.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	orchestrate "github.com/ssdeanx/ai-sdk-DM-sub007"
	"github.com/ssdeanx/ai-sdk-DM-sub007/store"
	"github.com/ssdeanx/ai-sdk-DM-sub007/store/memory"
	redisstore "github.com/ssdeanx/ai-sdk-DM-sub007/store/redis"
	sqlitestore "github.com/ssdeanx/ai-sdk-DM-sub007/store/sqlite"
	"github.com/ssdeanx/ai-sdk-DM-sub007/workflow"
)

// Compile-time checks: every backend satisfies the composite interface.
var (
	_ store.Store = (*memory.Store)(nil)
	_ store.Store = (*redisstore.Store)(nil)
	_ store.Store = (*sqlitestore.Store)(nil)
)

// probeTimeout bounds backend connectivity checks during construction.
const probeTimeout = 5 * time.Second

// Deps carries the external capabilities the Provider consumes. Both are
// required.
type Deps struct {
	// Agents turns (agentID, input) into a textual result.
	Agents workflow.AgentInvoker
	// Threads provides the conversation log for step audit.
	Threads workflow.ThreadService
}

// Engine holds the selected store and the Provider bound to it.
type Engine struct {
	provider *workflow.Provider
	store    store.Store
	backend  orchestrate.Backend
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used by the engine, the selected store, and
// the provider.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New constructs the configured backend and binds a Provider to it. When
// the configured backend fails to initialize — unreachable server, bad
// path, unknown backend name — the failure is logged and the engine falls
// back to the in-process store rather than propagating the error: the
// orchestrator stays usable with degraded persistence guarantees.
func New(ctx context.Context, cfg orchestrate.Config, deps Deps, opts ...Option) (*Engine, error) {
	if deps.Agents == nil {
		return nil, fmt.Errorf("orchestrate/engine: nil agent invoker")
	}
	if deps.Threads == nil {
		return nil, fmt.Errorf("orchestrate/engine: nil thread service")
	}

	e := &Engine{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}

	s, backend, err := e.buildStore(ctx, cfg)
	if err != nil {
		// Deliberate degraded-mode decision: the only swallowed error
		// in the system, and it is always logged.
		e.logger.Warn("store backend unavailable, falling back to in-process store",
			slog.String("backend", string(cfg.Backend)),
			slog.String("error", err.Error()),
		)
		s = memory.New()
		backend = orchestrate.BackendMemory
	}

	e.store = s
	e.backend = backend
	e.provider = workflow.NewProvider(s, deps.Agents, deps.Threads,
		workflow.WithLogger(e.logger))

	e.logger.Info("workflow engine ready", slog.String("backend", string(backend)))
	return e, nil
}

// Provider returns the process-wide workflow provider.
func (e *Engine) Provider() *workflow.Provider { return e.provider }

// Store returns the selected store.
func (e *Engine) Store() store.Store { return e.store }

// Backend returns the backend actually in use, which differs from the
// configured one after a fallback.
func (e *Engine) Backend() orchestrate.Backend { return e.backend }

// Close closes the selected store.
func (e *Engine) Close() error { return e.store.Close() }

// buildStore constructs and probes the configured backend.
func (e *Engine) buildStore(ctx context.Context, cfg orchestrate.Config) (store.Store, orchestrate.Backend, error) {
	switch cfg.Backend {
	case orchestrate.BackendMemory, "":
		return memory.New(), orchestrate.BackendMemory, nil

	case orchestrate.BackendSQLite:
		db, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			return nil, "", err
		}
		s := sqlitestore.New(db, sqlitestore.WithLogger(e.logger))
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close() //nolint:errcheck // already failing
			return nil, "", err
		}
		return s, orchestrate.BackendSQLite, nil

	case orchestrate.BackendRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		s := redisstore.New(client, redisstore.WithLogger(e.logger))

		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()
		if err := s.Ping(probeCtx); err != nil {
			_ = client.Close() //nolint:errcheck // already failing
			return nil, "", err
		}
		return s, orchestrate.BackendRedis, nil

	default:
		return nil, "", fmt.Errorf("orchestrate/engine: unknown backend %q", cfg.Backend)
	}
}
