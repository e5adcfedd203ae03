package workflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	orchestrate "github.com/ssdeanx/ai-sdk-DM-sub007"
	"github.com/ssdeanx/ai-sdk-DM-sub007/id"
	"github.com/ssdeanx/ai-sdk-DM-sub007/store/memory"
	"github.com/ssdeanx/ai-sdk-DM-sub007/workflow"
)

// recordingStore wraps the in-memory store and captures the cursor value of
// every workflow write, so tests can assert the cursor only ever moves
// forward and at most one step is running at a time.
type recordingStore struct {
	*memory.Store
	mu      sync.Mutex
	cursors []int
	maxBusy int
}

func newRecordingStore() *recordingStore {
	return &recordingStore{Store: memory.New()}
}

func (r *recordingStore) PutWorkflow(ctx context.Context, wf *workflow.Workflow) error {
	r.mu.Lock()
	r.cursors = append(r.cursors, wf.CurrentStepIndex)
	busy := 0
	for _, step := range wf.Steps {
		if step.Status == workflow.StepStatusRunning {
			busy++
		}
	}
	if busy > r.maxBusy {
		r.maxBusy = busy
	}
	r.mu.Unlock()
	return r.Store.PutWorkflow(ctx, wf)
}

func TestPauseBetweenSteps(t *testing.T) {
	p, _, invoker, _ := newTestProvider()
	ctx := context.Background()

	wf, err := p.Create(ctx, workflow.CreateParams{
		Name: "long-haul",
		Steps: []workflow.StepParams{
			{AgentID: "A", Input: "1"},
			{AgentID: "B", Input: "2"},
			{AgentID: "C", Input: "3"},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Request the pause from inside the first step: it must land at the
	// boundary, after A finishes but before B starts.
	var once sync.Once
	invoker.after = func(string) {
		once.Do(func() {
			if _, err := p.Pause(ctx, wf.ID); err != nil {
				t.Errorf("Pause: %v", err)
			}
		})
	}

	paused, err := p.Execute(ctx, wf.ID)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if paused.Status != workflow.StatusPaused {
		t.Fatalf("status = %q, want paused", paused.Status)
	}
	if paused.CurrentStepIndex > 1 {
		t.Errorf("cursor = %d after pausing during step 0", paused.CurrentStepIndex)
	}
	if got := paused.Steps[0].Status; got != workflow.StepStatusCompleted {
		t.Errorf("step 0 status = %q, want completed (in-flight step finishes)", got)
	}
	for i := 1; i < 3; i++ {
		if got := paused.Steps[i].Status; got != workflow.StepStatusPending {
			t.Errorf("step %d status = %q, want pending", i, got)
		}
	}
	if invoker.callCount("B") != 0 || invoker.callCount("C") != 0 {
		t.Errorf("later steps ran while paused: B=%d C=%d",
			invoker.callCount("B"), invoker.callCount("C"))
	}

	invoker.after = nil
	resumed, err := p.Resume(ctx, wf.ID)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if resumed.Status != workflow.StatusCompleted {
		t.Errorf("status = %q, want completed", resumed.Status)
	}
	for _, agent := range []string{"A", "B", "C"} {
		if got := invoker.callCount(agent); got != 1 {
			t.Errorf("agent %s invoked %d times, want 1", agent, got)
		}
	}
}

func TestResumeSkipsCompletedSteps(t *testing.T) {
	p, _, invoker, _ := newTestProvider()
	ctx := context.Background()

	wf, err := p.Create(ctx, workflow.CreateParams{
		Name: "four-stage",
		Steps: []workflow.StepParams{
			{AgentID: "s1", Input: "a"},
			{AgentID: "s2", Input: "b"},
			{AgentID: "s3", Input: "c"},
			{AgentID: "s4", Input: "d"},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var total int
	var mu sync.Mutex
	invoker.after = func(string) {
		mu.Lock()
		total++
		pauseNow := total == 2
		mu.Unlock()
		if pauseNow {
			if _, err := p.Pause(ctx, wf.ID); err != nil {
				t.Errorf("Pause: %v", err)
			}
		}
	}

	paused, err := p.Execute(ctx, wf.ID)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if paused.Status != workflow.StatusPaused {
		t.Fatalf("status = %q, want paused", paused.Status)
	}

	invoker.after = nil
	resumed, err := p.Resume(ctx, wf.ID)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if resumed.Status != workflow.StatusCompleted {
		t.Fatalf("status = %q, want completed", resumed.Status)
	}
	if resumed.CurrentStepIndex != 3 {
		t.Errorf("cursor = %d, want 3", resumed.CurrentStepIndex)
	}
	for _, agent := range []string{"s1", "s2", "s3", "s4"} {
		if got := invoker.callCount(agent); got != 1 {
			t.Errorf("agent %s invoked %d times, want 1", agent, got)
		}
	}

	// A finished workflow cannot be resumed again.
	if _, err := p.Resume(ctx, wf.ID); !errors.Is(err, orchestrate.ErrInvalidState) {
		t.Fatalf("got %v, want ErrInvalidState", err)
	}
}

func TestPauseResumeInvalidStates(t *testing.T) {
	p, _, _, _ := newTestProvider()
	ctx := context.Background()

	pending, err := p.Create(ctx, workflow.CreateParams{
		Name:  "idle",
		Steps: []workflow.StepParams{{AgentID: "A"}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	completed, err := p.Create(ctx, workflow.CreateParams{Name: "instant"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := p.Execute(ctx, completed.ID); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	tests := []struct {
		name    string
		op      func() error
		wantErr error
	}{
		{
			name:    "pause pending",
			op:      func() error { _, err := p.Pause(ctx, pending.ID); return err },
			wantErr: orchestrate.ErrInvalidState,
		},
		{
			name:    "resume pending",
			op:      func() error { _, err := p.Resume(ctx, pending.ID); return err },
			wantErr: orchestrate.ErrInvalidState,
		},
		{
			name:    "pause completed",
			op:      func() error { _, err := p.Pause(ctx, completed.ID); return err },
			wantErr: orchestrate.ErrInvalidState,
		},
		{
			name:    "pause missing",
			op:      func() error { _, err := p.Pause(ctx, id.NewWorkflowID()); return err },
			wantErr: orchestrate.ErrWorkflowNotFound,
		},
		{
			name:    "resume missing",
			op:      func() error { _, err := p.Resume(ctx, id.NewWorkflowID()); return err },
			wantErr: orchestrate.ErrWorkflowNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.op(); !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCursorMovesForwardOnly(t *testing.T) {
	s := newRecordingStore()
	invoker := newFakeInvoker()
	p := workflow.NewProvider(s, invoker, newFakeThreads(), workflow.WithLogger(testLogger()))
	ctx := context.Background()

	wf, err := p.Create(ctx, workflow.CreateParams{
		Name: "ratchet",
		Steps: []workflow.StepParams{
			{AgentID: "A", Input: "1"},
			{AgentID: "B", Input: "2"},
			{AgentID: "C", Input: "3"},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := p.Execute(ctx, wf.ID); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	prev := 0
	for i, cursor := range s.cursors {
		if cursor < prev {
			t.Fatalf("cursor regressed at write %d: %v", i, s.cursors)
		}
		prev = cursor
	}
	if s.maxBusy > 1 {
		t.Errorf("observed %d steps running at once", s.maxBusy)
	}
}
