package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	orchestrate "github.com/ssdeanx/ai-sdk-DM-sub007"
	"github.com/ssdeanx/ai-sdk-DM-sub007/id"
	"github.com/ssdeanx/ai-sdk-DM-sub007/workflow"
)

// ── Workflow model ────────────────────────────────────────────────

type workflowModel struct {
	bun.BaseModel `bun:"table:orchestrate_workflows"`

	ID               string    `bun:"id,pk"`
	Name             string    `bun:"name,notnull"`
	Description      string    `bun:"description"`
	CurrentStepIndex int       `bun:"current_step_index,notnull,default:0"`
	Status           string    `bun:"status,notnull,default:'pending'"`
	Metadata         string    `bun:"metadata"`
	CreatedAt        time.Time `bun:"created_at,notnull"`
	UpdatedAt        time.Time `bun:"updated_at,notnull"`
}

func toWorkflowModel(wf *workflow.Workflow) *workflowModel {
	return &workflowModel{
		ID:               wf.ID.String(),
		Name:             wf.Name,
		Description:      wf.Description,
		CurrentStepIndex: wf.CurrentStepIndex,
		Status:           string(wf.Status),
		Metadata:         encodeMetadata(wf.Metadata),
		CreatedAt:        wf.CreatedAt,
		UpdatedAt:        wf.UpdatedAt,
	}
}

func fromWorkflowModel(m *workflowModel) (*workflow.Workflow, error) {
	parsedID, err := id.ParseWorkflowID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("orchestrate/sqlite: parse workflow id %q: %w", m.ID, err)
	}

	return &workflow.Workflow{
		Entity: orchestrate.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:               parsedID,
		Name:             m.Name,
		Description:      m.Description,
		CurrentStepIndex: m.CurrentStepIndex,
		Status:           workflow.Status(m.Status),
		Metadata:         decodeMetadata(m.Metadata),
	}, nil
}

// ── Step model ────────────────────────────────────────────────────

type stepModel struct {
	bun.BaseModel `bun:"table:orchestrate_steps"`

	ID         string    `bun:"id,pk"`
	WorkflowID string    `bun:"workflow_id,notnull"`
	Position   int       `bun:"position,notnull"`
	AgentID    string    `bun:"agent_id,notnull"`
	Input      string    `bun:"input"`
	ThreadID   string    `bun:"thread_id"`
	Status     string    `bun:"status,notnull,default:'pending'"`
	Result     string    `bun:"result"`
	Error      string    `bun:"error"`
	Metadata   string    `bun:"metadata"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
	UpdatedAt  time.Time `bun:"updated_at,notnull"`
}

func toStepModel(step *workflow.Step, position int) *stepModel {
	return &stepModel{
		ID:         step.ID.String(),
		WorkflowID: step.WorkflowID.String(),
		Position:   position,
		AgentID:    step.AgentID,
		Input:      step.Input,
		ThreadID:   step.ThreadID,
		Status:     string(step.Status),
		Result:     step.Result,
		Error:      step.Error,
		Metadata:   encodeMetadata(step.Metadata),
		CreatedAt:  step.CreatedAt,
		UpdatedAt:  step.UpdatedAt,
	}
}

func fromStepModel(m *stepModel) (*workflow.Step, error) {
	parsedID, err := id.ParseStepID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("orchestrate/sqlite: parse step id %q: %w", m.ID, err)
	}
	parsedWorkflowID, err := id.ParseWorkflowID(m.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("orchestrate/sqlite: parse step workflow id %q: %w", m.WorkflowID, err)
	}

	return &workflow.Step{
		Entity: orchestrate.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:         parsedID,
		WorkflowID: parsedWorkflowID,
		AgentID:    m.AgentID,
		Input:      m.Input,
		ThreadID:   m.ThreadID,
		Status:     workflow.StepStatus(m.Status),
		Result:     m.Result,
		Error:      m.Error,
		Metadata:   decodeMetadata(m.Metadata),
	}, nil
}

// ── Metadata codec ────────────────────────────────────────────────

// encodeMetadata serializes an open metadata map to JSON for the TEXT
// column. A nil map encodes to the empty string.
func encodeMetadata(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	data, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(data)
}

// decodeMetadata deserializes stored metadata. A malformed encoding
// degrades to an empty map, never an error.
func decodeMetadata(s string) map[string]any {
	if s == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return map[string]any{}
	}
	return m
}
