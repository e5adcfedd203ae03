package workflow

import (
	"context"

	"github.com/ssdeanx/ai-sdk-DM-sub007/id"
)

// ListOpts controls pagination for workflow list queries.
type ListOpts struct {
	// Limit is the maximum number of workflows to return. Zero means no
	// limit.
	Limit int
	// Offset is the number of workflows to skip.
	Offset int
	// Status filters by workflow status. Empty means all statuses.
	Status Status
}

// Store defines the persistence contract for workflows. One implementation
// exists per backend. Stores hold no business logic: state transitions are
// decided by the Provider and written through this interface.
//
// Metadata maps are serialized at this boundary only. A malformed stored
// encoding decodes to an empty map rather than failing the read.
type Store interface {
	// PutWorkflow upserts a workflow record together with its step list
	// and refreshes the index used for time-ordered listing.
	PutWorkflow(ctx context.Context, wf *Workflow) error

	// GetWorkflow retrieves a workflow by ID, fully materialized with all
	// owned steps in insertion order. Returns orchestrate.ErrWorkflowNotFound
	// if no record exists.
	GetWorkflow(ctx context.Context, workflowID id.WorkflowID) (*Workflow, error)

	// ListWorkflows returns workflows matching the given options, ordered
	// most-recently-updated first.
	ListWorkflows(ctx context.Context, opts ListOpts) ([]*Workflow, error)

	// DeleteWorkflow removes a workflow and all of its steps. The bool
	// reports whether the record existed.
	DeleteWorkflow(ctx context.Context, workflowID id.WorkflowID) (bool, error)

	// PutStep upserts a single step record. The step's WorkflowID must
	// reference an existing workflow.
	PutStep(ctx context.Context, step *Step) error

	// GetStep retrieves a step by ID. Returns orchestrate.ErrStepNotFound
	// if no record exists.
	GetStep(ctx context.Context, stepID id.StepID) (*Step, error)
}
