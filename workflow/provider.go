package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	orchestrate "github.com/ssdeanx/ai-sdk-DM-sub007"
	"github.com/ssdeanx/ai-sdk-DM-sub007/id"
)

// tracerName is the instrumentation scope name for step tracing.
const tracerName = "github.com/ssdeanx/ai-sdk-DM-sub007"

// StepError reports that a step failed during execution. The workflow and
// the failing step are durably marked failed before this error is returned,
// so the failure is never silent. Unwraps to the underlying cause.
type StepError struct {
	WorkflowID id.WorkflowID
	StepID     id.StepID
	Index      int
	Err        error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("orchestrate/workflow: step %d (%s) failed: %v", e.Index, e.StepID, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StepError) Unwrap() error { return e.Err }

// CreateParams describes a workflow to create. Steps may pre-populate the
// workflow; each entry is materialized into a full Step in pending state.
type CreateParams struct {
	Name        string
	Description string
	Steps       []StepParams
	Metadata    map[string]any
}

// StepParams describes a step to append. ThreadID is optional; a thread is
// created lazily when empty.
type StepParams struct {
	AgentID  string
	Input    string
	ThreadID string
	Metadata map[string]any
}

// Provider drives the workflow state machine. It enforces status
// transitions, coordinates the agent and thread capabilities, and delegates
// all persistence to a Store. One Provider is bound to exactly one backend.
//
// Provider is safe for concurrent use. Execute calls on the same workflow
// id serialize through a per-id lock so at most one step is running per
// workflow at any instant; different workflows execute independently.
type Provider struct {
	store   Store
	agents  AgentInvoker
	threads ThreadService
	logger  *slog.Logger
	tracer  trace.Tracer

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the logger for the provider.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) { p.logger = logger }
}

// WithTracer sets the tracer used for per-step spans. When unset, the
// globally registered TracerProvider is used; without one installed the
// spans are noops.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Provider) { p.tracer = tracer }
}

// NewProvider creates a Provider bound to the given store and capabilities.
func NewProvider(store Store, agents AgentInvoker, threads ThreadService, opts ...Option) *Provider {
	p := &Provider{
		store:   store,
		agents:  agents,
		threads: threads,
		logger:  slog.Default(),
		tracer:  otel.Tracer(tracerName),
		locks:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Create persists a new workflow in pending state with the cursor at zero.
// Supplied steps are materialized in pending state; any step lacking a
// thread id gets a freshly created conversation thread.
func (p *Provider) Create(ctx context.Context, params CreateParams) (*Workflow, error) {
	wf := &Workflow{
		Entity:      orchestrate.NewEntity(),
		ID:          id.NewWorkflowID(),
		Name:        params.Name,
		Description: params.Description,
		Status:      StatusPending,
		Metadata:    params.Metadata,
	}

	for i, sp := range params.Steps {
		step, err := p.materializeStep(ctx, wf, sp, i)
		if err != nil {
			return nil, err
		}
		wf.Steps = append(wf.Steps, step)
	}

	if err := p.store.PutWorkflow(ctx, wf); err != nil {
		return nil, fmt.Errorf("orchestrate/workflow: create %q: %w", params.Name, err)
	}

	p.logger.Info("workflow created",
		slog.String("workflow_id", wf.ID.String()),
		slog.String("name", wf.Name),
		slog.Int("steps", len(wf.Steps)),
	)
	return wf, nil
}

// Get retrieves a workflow by id. A missing workflow surfaces as
// orchestrate.ErrWorkflowNotFound, distinguishable from store I/O failures
// via errors.Is.
func (p *Provider) Get(ctx context.Context, workflowID id.WorkflowID) (*Workflow, error) {
	return p.store.GetWorkflow(ctx, workflowID)
}

// List returns workflows ordered most-recently-updated first.
func (p *Provider) List(ctx context.Context, opts ListOpts) ([]*Workflow, error) {
	return p.store.ListWorkflows(ctx, opts)
}

// Delete removes a workflow and all of its steps. The bool reports whether
// the record existed. Delete does not interrupt an in-flight Execute on the
// same id; the run loop observes the disappearance at its next step
// boundary and stops.
func (p *Provider) Delete(ctx context.Context, workflowID id.WorkflowID) (bool, error) {
	existed, err := p.store.DeleteWorkflow(ctx, workflowID)
	if err != nil {
		return false, err
	}
	if existed {
		p.forgetLock(workflowID)
	}
	return existed, nil
}

// AddStep appends one pending step to the end of the workflow's step list,
// creating a conversation thread when none is supplied. It never changes
// the workflow's status or cursor: appending to a completed workflow leaves
// it completed and the trailing step unexecuted (Execute still rejects
// terminal workflows).
func (p *Provider) AddStep(ctx context.Context, workflowID id.WorkflowID, params StepParams) (*Workflow, error) {
	wf, err := p.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	step, err := p.materializeStep(ctx, wf, params, len(wf.Steps))
	if err != nil {
		return nil, err
	}
	wf.Steps = append(wf.Steps, step)
	wf.Touch()

	if err := p.store.PutWorkflow(ctx, wf); err != nil {
		return nil, fmt.Errorf("orchestrate/workflow: add step to %s: %w", workflowID, err)
	}
	return wf, nil
}

// Execute runs the step loop from the current cursor until all steps
// complete, a step fails, or a pause is observed. It fails with
// orchestrate.ErrAlreadyTerminal on completed or failed workflows.
//
// Re-invoking Execute on a workflow left in running state by a crash
// re-enters the loop at the cursor and re-runs the step that was in
// flight: at-least-once, not exactly-once.
func (p *Provider) Execute(ctx context.Context, workflowID id.WorkflowID) (*Workflow, error) {
	lock := p.execLock(workflowID)
	lock.Lock()
	defer lock.Unlock()

	wf, err := p.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if wf.Status.Terminal() {
		return nil, fmt.Errorf("orchestrate/workflow: execute %s in state %q: %w",
			workflowID, wf.Status, orchestrate.ErrAlreadyTerminal)
	}

	wf.Status = StatusRunning
	wf.Touch()
	if err := p.store.PutWorkflow(ctx, wf); err != nil {
		return nil, fmt.Errorf("orchestrate/workflow: mark %s running: %w", workflowID, err)
	}

	return p.runLoop(ctx, wf)
}

// Pause suspends a running workflow at the next step boundary. It fails
// with orchestrate.ErrInvalidState unless the workflow is running. The
// pause is cooperative: a step already in flight completes, and only the
// next step is prevented from starting.
func (p *Provider) Pause(ctx context.Context, workflowID id.WorkflowID) (*Workflow, error) {
	wf, err := p.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if wf.Status != StatusRunning {
		return nil, fmt.Errorf("orchestrate/workflow: pause %s in state %q: %w",
			workflowID, wf.Status, orchestrate.ErrInvalidState)
	}

	wf.Status = StatusPaused
	wf.Touch()
	if err := p.store.PutWorkflow(ctx, wf); err != nil {
		return nil, fmt.Errorf("orchestrate/workflow: mark %s paused: %w", workflowID, err)
	}

	p.logger.Info("workflow paused",
		slog.String("workflow_id", wf.ID.String()),
		slog.Int("current_step", wf.CurrentStepIndex),
	)
	return wf, nil
}

// Resume continues a paused workflow from its cursor. It fails with
// orchestrate.ErrInvalidState unless the workflow is paused. Steps that
// already completed are not re-executed.
func (p *Provider) Resume(ctx context.Context, workflowID id.WorkflowID) (*Workflow, error) {
	wf, err := p.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if wf.Status != StatusPaused {
		return nil, fmt.Errorf("orchestrate/workflow: resume %s in state %q: %w",
			workflowID, wf.Status, orchestrate.ErrInvalidState)
	}

	return p.Execute(ctx, workflowID)
}

// runLoop executes steps sequentially from the workflow's cursor. The
// caller holds the per-id execution lock. The record is reloaded before
// each step so a concurrent Pause or Delete takes effect at the boundary.
func (p *Provider) runLoop(ctx context.Context, wf *Workflow) (*Workflow, error) {
	for i := wf.CurrentStepIndex; i < len(wf.Steps); i++ {
		fresh, err := p.store.GetWorkflow(ctx, wf.ID)
		if err != nil {
			return nil, fmt.Errorf("orchestrate/workflow: reload %s: %w", wf.ID, err)
		}
		if fresh.Status == StatusPaused {
			return fresh, nil
		}
		wf = fresh

		wf.CurrentStepIndex = i
		wf.Touch()
		if err := p.store.PutWorkflow(ctx, wf); err != nil {
			return nil, fmt.Errorf("orchestrate/workflow: advance cursor on %s: %w", wf.ID, err)
		}

		step := wf.Steps[i]
		if step.Status == StepStatusCompleted {
			// Already ran to completion; re-entering the loop after a
			// pause or crash must not redo finished work.
			continue
		}

		step.Status = StepStatusRunning
		step.Touch()
		if err := p.store.PutStep(ctx, step); err != nil {
			return nil, fmt.Errorf("orchestrate/workflow: mark step %s running: %w", step.ID, err)
		}

		if err := p.runStep(ctx, wf, step, i); err != nil {
			p.failStep(ctx, wf, step, err)
			return nil, &StepError{WorkflowID: wf.ID, StepID: step.ID, Index: i, Err: err}
		}

		step.Status = StepStatusCompleted
		step.Touch()
		if err := p.store.PutStep(ctx, step); err != nil {
			return nil, fmt.Errorf("orchestrate/workflow: mark step %s completed: %w", step.ID, err)
		}
	}

	wf.Status = StatusCompleted
	wf.Touch()
	if err := p.store.PutWorkflow(ctx, wf); err != nil {
		return nil, fmt.Errorf("orchestrate/workflow: mark %s completed: %w", wf.ID, err)
	}

	p.logger.Info("workflow completed",
		slog.String("workflow_id", wf.ID.String()),
		slog.Int("steps", len(wf.Steps)),
	)
	return wf, nil
}

// runStep wraps one step execution in a span. Span status mirrors the
// outcome; without a registered TracerProvider this is a pass-through.
func (p *Provider) runStep(ctx context.Context, wf *Workflow, step *Step, index int) error {
	ctx, span := p.tracer.Start(ctx, "orchestrate.workflow.step",
		trace.WithAttributes(
			attribute.String("orchestrate.workflow.id", wf.ID.String()),
			attribute.String("orchestrate.workflow.name", wf.Name),
			attribute.String("orchestrate.step.id", step.ID.String()),
			attribute.String("orchestrate.step.agent_id", step.AgentID),
			attribute.Int("orchestrate.step.index", index),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	defer span.End()

	err := p.invokeStep(ctx, wf, step, index)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return err
}

// invokeStep performs the external calls for one step: lazy thread
// creation, input logging, agent invocation, result logging. On success
// the step's Result is set; persistence is the caller's responsibility.
func (p *Provider) invokeStep(ctx context.Context, wf *Workflow, step *Step, index int) error {
	if step.ThreadID == "" {
		threadID, err := p.threads.CreateThread(ctx, threadLabel(wf.Name, index))
		if err != nil {
			return fmt.Errorf("create thread: %w", err)
		}
		step.ThreadID = threadID
		step.Touch()
		if err := p.store.PutStep(ctx, step); err != nil {
			return fmt.Errorf("persist thread id: %w", err)
		}
	}

	if step.Input != "" {
		if err := p.threads.AppendMessage(ctx, step.ThreadID, RoleUser, step.Input); err != nil {
			return fmt.Errorf("append input to thread %s: %w", step.ThreadID, err)
		}
	}

	result, err := p.agents.Invoke(ctx, step.AgentID, step.Input)
	if err != nil {
		return fmt.Errorf("invoke agent %q: %w", step.AgentID, err)
	}

	if err := p.threads.AppendMessage(ctx, step.ThreadID, RoleAssistant, result); err != nil {
		return fmt.Errorf("append result to thread %s: %w", step.ThreadID, err)
	}

	step.Result = result
	return nil
}

// failStep durably marks the step and workflow failed. Persistence errors
// here are logged, not returned: the step failure is already the error the
// caller needs to see.
func (p *Provider) failStep(ctx context.Context, wf *Workflow, step *Step, cause error) {
	step.Status = StepStatusFailed
	step.Error = cause.Error()
	step.Result = ""
	step.Touch()
	if err := p.store.PutStep(ctx, step); err != nil {
		p.logger.Error("failed to persist failed step",
			slog.String("workflow_id", wf.ID.String()),
			slog.String("step_id", step.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	wf.Status = StatusFailed
	wf.Touch()
	if err := p.store.PutWorkflow(ctx, wf); err != nil {
		p.logger.Error("failed to persist failed workflow",
			slog.String("workflow_id", wf.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	p.logger.Warn("workflow failed",
		slog.String("workflow_id", wf.ID.String()),
		slog.String("step_id", step.ID.String()),
		slog.String("agent_id", step.AgentID),
		slog.String("error", cause.Error()),
	)
}

// materializeStep builds a full pending Step from params, creating a
// conversation thread when none is supplied.
func (p *Provider) materializeStep(ctx context.Context, wf *Workflow, params StepParams, index int) (*Step, error) {
	threadID := params.ThreadID
	if threadID == "" {
		created, err := p.threads.CreateThread(ctx, threadLabel(wf.Name, index))
		if err != nil {
			return nil, fmt.Errorf("orchestrate/workflow: create thread for step %d of %q: %w",
				index, wf.Name, err)
		}
		threadID = created
	}

	return &Step{
		Entity:     orchestrate.NewEntity(),
		ID:         id.NewStepID(),
		WorkflowID: wf.ID,
		AgentID:    params.AgentID,
		Input:      params.Input,
		ThreadID:   threadID,
		Status:     StepStatusPending,
		Metadata:   params.Metadata,
	}, nil
}

// threadLabel names the lazily created thread from the workflow and the
// step's 1-based position.
func threadLabel(workflowName string, index int) string {
	return fmt.Sprintf("%s - step %d", workflowName, index+1)
}

// execLock returns the per-workflow execution lock, creating it on first
// use. Serializing Execute per id preserves the "exactly one running step"
// invariant under concurrent callers.
func (p *Provider) execLock(workflowID id.WorkflowID) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := workflowID.String()
	lock, ok := p.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[key] = lock
	}
	return lock
}

func (p *Provider) forgetLock(workflowID id.WorkflowID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.locks, workflowID.String())
}
