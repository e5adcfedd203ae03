// Package memory implements store.Store as an in-process map. Safe for
// concurrent access. Intended for unit testing, development, and as the
// degraded-mode fallback when a configured backend cannot be reached.
package memory

import (
	"context"
	"sort"
	"sync"

	orchestrate "github.com/ssdeanx/ai-sdk-DM-sub007"
	"github.com/ssdeanx/ai-sdk-DM-sub007/id"
	"github.com/ssdeanx/ai-sdk-DM-sub007/workflow"
)

// Ensure Store implements the workflow contract at compile time.
var _ workflow.Store = (*Store)(nil)

// Store is a fully in-memory implementation of store.Store. All reads and
// writes go through deep copies so callers never share mutable state with
// the store.
type Store struct {
	mu sync.RWMutex

	workflows map[string]*workflow.Workflow
	// stepIndex maps step id -> owning workflow id for GetStep/PutStep.
	stepIndex map[string]string
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		workflows: make(map[string]*workflow.Workflow),
		stepIndex: make(map[string]string),
	}
}

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// PutWorkflow upserts a workflow record together with its step list.
func (m *Store) PutWorkflow(_ context.Context, wf *workflow.Workflow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := wf.ID.String()
	if prev, ok := m.workflows[key]; ok {
		for _, s := range prev.Steps {
			delete(m.stepIndex, s.ID.String())
		}
	}

	cp := wf.Clone()
	m.workflows[key] = cp
	for _, s := range cp.Steps {
		m.stepIndex[s.ID.String()] = key
	}
	return nil
}

// GetWorkflow retrieves a workflow by ID with all owned steps.
func (m *Store) GetWorkflow(_ context.Context, workflowID id.WorkflowID) (*workflow.Workflow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wf, ok := m.workflows[workflowID.String()]
	if !ok {
		return nil, orchestrate.ErrWorkflowNotFound
	}
	return wf.Clone(), nil
}

// ListWorkflows returns workflows ordered most-recently-updated first.
// The memory store has no secondary index; it sorts on every call.
func (m *Store) ListWorkflows(_ context.Context, opts workflow.ListOpts) ([]*workflow.Workflow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*workflow.Workflow, 0, len(m.workflows))
	for _, wf := range m.workflows {
		if opts.Status != "" && wf.Status != opts.Status {
			continue
		}
		result = append(result, wf.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return nil, nil
		}
		result = result[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(result) {
		result = result[:opts.Limit]
	}
	return result, nil
}

// DeleteWorkflow removes a workflow and all of its steps.
func (m *Store) DeleteWorkflow(_ context.Context, workflowID id.WorkflowID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := workflowID.String()
	wf, ok := m.workflows[key]
	if !ok {
		return false, nil
	}

	for _, s := range wf.Steps {
		delete(m.stepIndex, s.ID.String())
	}
	delete(m.workflows, key)
	return true, nil
}

// PutStep upserts a single step record in place within its owning workflow.
func (m *Store) PutStep(_ context.Context, step *workflow.Step) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wf, ok := m.workflows[step.WorkflowID.String()]
	if !ok {
		return orchestrate.ErrWorkflowNotFound
	}

	key := step.ID.String()
	for i, s := range wf.Steps {
		if s.ID.String() == key {
			wf.Steps[i] = step.Clone()
			m.stepIndex[key] = step.WorkflowID.String()
			return nil
		}
	}

	// New step appended outside PutWorkflow.
	wf.Steps = append(wf.Steps, step.Clone())
	m.stepIndex[key] = step.WorkflowID.String()
	return nil
}

// GetStep retrieves a step by ID.
func (m *Store) GetStep(_ context.Context, stepID id.StepID) (*workflow.Step, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wfKey, ok := m.stepIndex[stepID.String()]
	if !ok {
		return nil, orchestrate.ErrStepNotFound
	}

	wf, ok := m.workflows[wfKey]
	if !ok {
		return nil, orchestrate.ErrStepNotFound
	}

	key := stepID.String()
	for _, s := range wf.Steps {
		if s.ID.String() == key {
			return s.Clone(), nil
		}
	}
	return nil, orchestrate.ErrStepNotFound
}
