package engine_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	orchestrate "github.com/ssdeanx/ai-sdk-DM-sub007"
	"github.com/ssdeanx/ai-sdk-DM-sub007/engine"
	"github.com/ssdeanx/ai-sdk-DM-sub007/id"
	"github.com/ssdeanx/ai-sdk-DM-sub007/workflow"
)

type fakeThreads struct {
	mu sync.Mutex
}

func (f *fakeThreads) CreateThread(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return id.NewThreadID().String(), nil
}

func (f *fakeThreads) AppendMessage(_ context.Context, _, _, _ string) error { return nil }

func testDeps() engine.Deps {
	return engine.Deps{
		Agents: workflow.AgentInvokerFunc(func(_ context.Context, agentID, input string) (string, error) {
			return fmt.Sprintf("%s:%s", agentID, input), nil
		}),
		Threads: &fakeThreads{},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewMemoryBackend(t *testing.T) {
	cfg := orchestrate.DefaultConfig()

	e, err := engine.New(context.Background(), cfg, testDeps(), engine.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	if e.Backend() != orchestrate.BackendMemory {
		t.Errorf("backend = %q, want memory", e.Backend())
	}
	if e.Provider() == nil {
		t.Fatal("nil provider")
	}
}

func TestNewSQLiteBackend(t *testing.T) {
	cfg := orchestrate.DefaultConfig()
	cfg.Backend = orchestrate.BackendSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "engine_test.db")

	e, err := engine.New(context.Background(), cfg, testDeps(), engine.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	if e.Backend() != orchestrate.BackendSQLite {
		t.Errorf("backend = %q, want sqlite", e.Backend())
	}

	// The selected store actually serves the provider.
	wf, err := e.Provider().Create(context.Background(), workflow.CreateParams{Name: "wired"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := e.Provider().Get(context.Background(), wf.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "wired" {
		t.Errorf("name = %q, want wired", got.Name)
	}
}

func TestNewRedisFallsBackToMemory(t *testing.T) {
	cfg := orchestrate.DefaultConfig()
	cfg.Backend = orchestrate.BackendRedis
	// Reserved TEST-NET address: connection refused/timeout, never a server.
	cfg.RedisAddr = "192.0.2.1:1"

	e, err := engine.New(context.Background(), cfg, testDeps(), engine.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	if e.Backend() != orchestrate.BackendMemory {
		t.Errorf("backend = %q, want memory fallback", e.Backend())
	}

	// Degraded mode still orchestrates.
	wf, err := e.Provider().Create(context.Background(), workflow.CreateParams{
		Name:  "degraded",
		Steps: []workflow.StepParams{{AgentID: "a", Input: "x"}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	done, err := e.Provider().Execute(context.Background(), wf.ID)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if done.Status != workflow.StatusCompleted {
		t.Errorf("status = %q, want completed", done.Status)
	}
}

func TestNewUnknownBackendFallsBack(t *testing.T) {
	cfg := orchestrate.DefaultConfig()
	cfg.Backend = orchestrate.Backend("etcd")

	e, err := engine.New(context.Background(), cfg, testDeps(), engine.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	if e.Backend() != orchestrate.BackendMemory {
		t.Errorf("backend = %q, want memory fallback", e.Backend())
	}
}

func TestNewRejectsNilDeps(t *testing.T) {
	cfg := orchestrate.DefaultConfig()

	if _, err := engine.New(context.Background(), cfg, engine.Deps{Threads: &fakeThreads{}}); err == nil {
		t.Error("expected error for nil agent invoker")
	}
	if _, err := engine.New(context.Background(), cfg, engine.Deps{
		Agents: workflow.AgentInvokerFunc(func(_ context.Context, _, _ string) (string, error) {
			return "", nil
		}),
	}); err == nil {
		t.Error("expected error for nil thread service")
	}
}
