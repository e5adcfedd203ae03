package redis

import (
	"testing"

	orchestrate "github.com/ssdeanx/ai-sdk-DM-sub007"
	"github.com/ssdeanx/ai-sdk-DM-sub007/id"
	"github.com/ssdeanx/ai-sdk-DM-sub007/workflow"
)

func TestWorkflowMapRoundTrip(t *testing.T) {
	wf := &workflow.Workflow{
		Entity:           orchestrate.NewEntity(),
		ID:               id.NewWorkflowID(),
		Name:             "demo",
		Description:      "round trip",
		CurrentStepIndex: 2,
		Status:           workflow.StatusPaused,
		Metadata:         map[string]any{"owner": "ops", "retries": float64(3)},
	}

	got, err := mapToWorkflow(asStringMap(workflowToMap(wf)))
	if err != nil {
		t.Fatalf("mapToWorkflow: %v", err)
	}

	if got.ID.String() != wf.ID.String() {
		t.Errorf("id = %q, want %q", got.ID, wf.ID)
	}
	if got.Name != wf.Name || got.Description != wf.Description {
		t.Errorf("name/description not preserved: %+v", got)
	}
	if got.CurrentStepIndex != 2 {
		t.Errorf("current_step_index = %d, want 2", got.CurrentStepIndex)
	}
	if got.Status != workflow.StatusPaused {
		t.Errorf("status = %q, want paused", got.Status)
	}
	if got.Metadata["owner"] != "ops" || got.Metadata["retries"] != float64(3) {
		t.Errorf("metadata = %v", got.Metadata)
	}
	if !got.CreatedAt.Equal(wf.CreatedAt) || !got.UpdatedAt.Equal(wf.UpdatedAt) {
		t.Errorf("timestamps not preserved: %v / %v", got.CreatedAt, got.UpdatedAt)
	}
}

func TestStepMapRoundTrip(t *testing.T) {
	step := &workflow.Step{
		Entity:     orchestrate.NewEntity(),
		ID:         id.NewStepID(),
		WorkflowID: id.NewWorkflowID(),
		AgentID:    "agent-b",
		Input:      "analyze this",
		ThreadID:   id.NewThreadID().String(),
		Status:     workflow.StepStatusFailed,
		Error:      "agent unavailable",
		Metadata:   map[string]any{"attempt": float64(1)},
	}

	got, err := mapToStep(asStringMap(stepToMap(step)))
	if err != nil {
		t.Fatalf("mapToStep: %v", err)
	}

	if got.ID.String() != step.ID.String() || got.WorkflowID.String() != step.WorkflowID.String() {
		t.Errorf("ids not preserved: %+v", got)
	}
	if got.AgentID != step.AgentID || got.Input != step.Input || got.ThreadID != step.ThreadID {
		t.Errorf("fields not preserved: %+v", got)
	}
	if got.Status != workflow.StepStatusFailed || got.Error != "agent unavailable" || got.Result != "" {
		t.Errorf("failure state not preserved: %+v", got)
	}
	if got.Metadata["attempt"] != float64(1) {
		t.Errorf("metadata = %v", got.Metadata)
	}
}

func TestMapToWorkflowBadID(t *testing.T) {
	if _, err := mapToWorkflow(map[string]string{"id": "not-a-typeid"}); err == nil {
		t.Fatal("expected error for malformed id")
	}
}

func TestDecodeMetadataDegrades(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		empty bool
	}{
		{"empty string", "", true},
		{"malformed json", "{not json", true},
		{"wrong shape", `["a","b"]`, true},
		{"valid map", `{"k":"v"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeMetadata(tt.in)
			if tt.empty && len(got) != 0 {
				t.Errorf("decodeMetadata(%q) = %v, want empty", tt.in, got)
			}
			if !tt.empty && got["k"] != "v" {
				t.Errorf("decodeMetadata(%q) = %v, want map with k", tt.in, got)
			}
		})
	}
}

// asStringMap mirrors what HGetAll hands back for a stored hash.
func asStringMap(m map[string]interface{}) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v.(string)
	}
	return out
}
