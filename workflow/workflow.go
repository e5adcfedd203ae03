package workflow

import (
	orchestrate "github.com/ssdeanx/ai-sdk-DM-sub007"
	"github.com/ssdeanx/ai-sdk-DM-sub007/id"
)

// Status represents the lifecycle state of a workflow.
type Status string

const (
	// StatusPending means the workflow was created but never executed.
	StatusPending Status = "pending"
	// StatusRunning means the workflow is currently executing.
	StatusRunning Status = "running"
	// StatusCompleted means all steps finished successfully.
	StatusCompleted Status = "completed"
	// StatusFailed means a step failed terminally.
	StatusFailed Status = "failed"
	// StatusPaused means execution was suspended at a step boundary.
	StatusPaused Status = "paused"
)

// Terminal reports whether the status accepts no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// StepStatus represents the lifecycle state of a single step.
type StepStatus string

const (
	// StepStatusPending means the step has not started.
	StepStatusPending StepStatus = "pending"
	// StepStatusRunning means the step's agent invocation is in flight.
	StepStatusRunning StepStatus = "running"
	// StepStatusCompleted means the agent produced a result.
	StepStatusCompleted StepStatus = "completed"
	// StepStatusFailed means the agent or thread capability failed.
	StepStatusFailed StepStatus = "failed"
)

// Workflow is a named, ordered sequence of steps with an overall lifecycle
// status. Steps is append-only; insertion order is execution order.
type Workflow struct {
	orchestrate.Entity

	ID          id.WorkflowID `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Steps       []*Step       `json:"steps"`

	// CurrentStepIndex is the cursor into Steps. It only advances,
	// never rewinds. Invariant: 0 <= CurrentStepIndex <= len(Steps).
	CurrentStepIndex int `json:"current_step_index"`

	Status   Status         `json:"status"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Step is one unit of work within a workflow: an agent invocation over an
// input, producing a result or an error. Result and Error are mutually
// exclusive.
type Step struct {
	orchestrate.Entity

	ID         id.StepID     `json:"id"`
	WorkflowID id.WorkflowID `json:"workflow_id"`
	AgentID    string        `json:"agent_id"`
	Input      string        `json:"input,omitempty"`

	// ThreadID is the conversation thread logging this step's input and
	// output. Created lazily if not supplied.
	ThreadID string `json:"thread_id,omitempty"`

	Status   StepStatus     `json:"status"`
	Result   string         `json:"result,omitempty"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Clone returns a deep copy of the workflow, including steps and metadata.
// Stores return clones so callers can mutate without racing the store.
func (w *Workflow) Clone() *Workflow {
	cp := *w
	cp.Metadata = cloneMetadata(w.Metadata)
	if w.Steps != nil {
		cp.Steps = make([]*Step, len(w.Steps))
		for i, s := range w.Steps {
			cp.Steps[i] = s.Clone()
		}
	}
	return &cp
}

// Clone returns a deep copy of the step.
func (s *Step) Clone() *Step {
	cp := *s
	cp.Metadata = cloneMetadata(s.Metadata)
	return &cp
}

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
