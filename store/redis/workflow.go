package redis

import (
	"context"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	orchestrate "github.com/ssdeanx/ai-sdk-DM-sub007"
	"github.com/ssdeanx/ai-sdk-DM-sub007/id"
	"github.com/ssdeanx/ai-sdk-DM-sub007/workflow"
)

// PutWorkflow upserts a workflow record, its step list, and the update-time
// index, in a single transactional pipeline.
func (s *Store) PutWorkflow(ctx context.Context, wf *workflow.Workflow) error {
	wfID := wf.ID.String()

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, workflowKey(wfID), workflowToMap(wf))
	pipe.ZAdd(ctx, workflowIndexKey, goredis.Z{
		Score:  float64(wf.UpdatedAt.UnixNano()),
		Member: wfID,
	})
	for i, step := range wf.Steps {
		pipe.HSet(ctx, stepKey(step.ID.String()), stepToMap(step))
		pipe.ZAdd(ctx, workflowStepsKey(wfID), goredis.Z{
			Score:  float64(i),
			Member: step.ID.String(),
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("orchestrate/redis: put workflow: %w", err)
	}
	return nil
}

// GetWorkflow retrieves a workflow with all owned steps in insertion order.
func (s *Store) GetWorkflow(ctx context.Context, workflowID id.WorkflowID) (*workflow.Workflow, error) {
	wfID := workflowID.String()

	vals, err := s.client.HGetAll(ctx, workflowKey(wfID)).Result()
	if err != nil {
		return nil, fmt.Errorf("orchestrate/redis: get workflow: %w", err)
	}
	if len(vals) == 0 {
		return nil, orchestrate.ErrWorkflowNotFound
	}

	wf, err := mapToWorkflow(vals)
	if err != nil {
		return nil, err
	}

	stepIDs, err := s.client.ZRange(ctx, workflowStepsKey(wfID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("orchestrate/redis: get workflow steps: %w", err)
	}
	for _, sID := range stepIDs {
		stepVals, getErr := s.client.HGetAll(ctx, stepKey(sID)).Result()
		if getErr != nil {
			return nil, fmt.Errorf("orchestrate/redis: get step %s: %w", sID, getErr)
		}
		if len(stepVals) == 0 {
			continue
		}
		step, convErr := mapToStep(stepVals)
		if convErr != nil {
			return nil, convErr
		}
		wf.Steps = append(wf.Steps, step)
	}
	return wf, nil
}

// ListWorkflows returns workflows ordered most-recently-updated first.
// Without a status filter, pages come straight off the update-time sorted
// set and are exact. With one, candidates are filtered before paging.
func (s *Store) ListWorkflows(ctx context.Context, opts workflow.ListOpts) ([]*workflow.Workflow, error) {
	var (
		ids []string
		err error
	)

	if opts.Status == "" {
		start := int64(opts.Offset)
		stop := int64(-1)
		if opts.Limit > 0 {
			stop = start + int64(opts.Limit) - 1
		}
		ids, err = s.client.ZRevRange(ctx, workflowIndexKey, start, stop).Result()
	} else {
		ids, err = s.client.ZRevRange(ctx, workflowIndexKey, 0, -1).Result()
	}
	if err != nil {
		return nil, fmt.Errorf("orchestrate/redis: list workflows: %w", err)
	}

	var workflows []*workflow.Workflow
	for _, wfID := range ids {
		wf, getErr := s.GetWorkflow(ctx, id.MustParse(wfID))
		if getErr != nil {
			// Index entries can outlive a concurrently deleted record.
			continue
		}
		if opts.Status != "" && wf.Status != opts.Status {
			continue
		}
		workflows = append(workflows, wf)
	}

	if opts.Status != "" {
		if opts.Offset > 0 {
			if opts.Offset >= len(workflows) {
				return nil, nil
			}
			workflows = workflows[opts.Offset:]
		}
		if opts.Limit > 0 && opts.Limit < len(workflows) {
			workflows = workflows[:opts.Limit]
		}
	}
	return workflows, nil
}

// DeleteWorkflow removes the workflow, its steps, the per-workflow step
// order set, and the index entry.
func (s *Store) DeleteWorkflow(ctx context.Context, workflowID id.WorkflowID) (bool, error) {
	wfID := workflowID.String()

	exists, err := s.client.Exists(ctx, workflowKey(wfID)).Result()
	if err != nil {
		return false, fmt.Errorf("orchestrate/redis: delete workflow exists: %w", err)
	}
	if exists == 0 {
		return false, nil
	}

	stepIDs, err := s.client.ZRange(ctx, workflowStepsKey(wfID), 0, -1).Result()
	if err != nil {
		return false, fmt.Errorf("orchestrate/redis: delete workflow steps: %w", err)
	}

	pipe := s.client.TxPipeline()
	for _, sID := range stepIDs {
		pipe.Del(ctx, stepKey(sID))
	}
	pipe.Del(ctx, workflowStepsKey(wfID))
	pipe.Del(ctx, workflowKey(wfID))
	pipe.ZRem(ctx, workflowIndexKey, wfID)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("orchestrate/redis: delete workflow: %w", err)
	}
	return true, nil
}

// PutStep upserts a single step record. A step not yet in the order set is
// appended at the end.
func (s *Store) PutStep(ctx context.Context, step *workflow.Step) error {
	wfID := step.WorkflowID.String()

	exists, err := s.client.Exists(ctx, workflowKey(wfID)).Result()
	if err != nil {
		return fmt.Errorf("orchestrate/redis: put step exists: %w", err)
	}
	if exists == 0 {
		return orchestrate.ErrWorkflowNotFound
	}

	sID := step.ID.String()
	score, err := s.client.ZScore(ctx, workflowStepsKey(wfID), sID).Result()
	if err != nil {
		if err != goredis.Nil {
			return fmt.Errorf("orchestrate/redis: put step score: %w", err)
		}
		card, cardErr := s.client.ZCard(ctx, workflowStepsKey(wfID)).Result()
		if cardErr != nil {
			return fmt.Errorf("orchestrate/redis: put step card: %w", cardErr)
		}
		score = float64(card)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, stepKey(sID), stepToMap(step))
	pipe.ZAdd(ctx, workflowStepsKey(wfID), goredis.Z{Score: score, Member: sID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("orchestrate/redis: put step: %w", err)
	}
	return nil
}

// GetStep retrieves a step by ID.
func (s *Store) GetStep(ctx context.Context, stepID id.StepID) (*workflow.Step, error) {
	vals, err := s.client.HGetAll(ctx, stepKey(stepID.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("orchestrate/redis: get step: %w", err)
	}
	if len(vals) == 0 {
		return nil, orchestrate.ErrStepNotFound
	}
	return mapToStep(vals)
}

// ── helpers ──

func workflowToMap(wf *workflow.Workflow) map[string]interface{} {
	return map[string]interface{}{
		"id":                 wf.ID.String(),
		"name":               wf.Name,
		"description":        wf.Description,
		"current_step_index": strconv.Itoa(wf.CurrentStepIndex),
		"status":             string(wf.Status),
		"metadata":           encodeMetadata(wf.Metadata),
		"created_at":         formatTime(wf.CreatedAt),
		"updated_at":         formatTime(wf.UpdatedAt),
	}
}

func mapToWorkflow(m map[string]string) (*workflow.Workflow, error) {
	wfID, err := id.ParseWorkflowID(m["id"])
	if err != nil {
		return nil, fmt.Errorf("orchestrate/redis: parse workflow id: %w", err)
	}

	idx, _ := strconv.Atoi(m["current_step_index"])

	return &workflow.Workflow{
		Entity: orchestrate.Entity{
			CreatedAt: parseTime(m["created_at"]),
			UpdatedAt: parseTime(m["updated_at"]),
		},
		ID:               wfID,
		Name:             m["name"],
		Description:      m["description"],
		CurrentStepIndex: idx,
		Status:           workflow.Status(m["status"]),
		Metadata:         decodeMetadata(m["metadata"]),
	}, nil
}

func stepToMap(step *workflow.Step) map[string]interface{} {
	return map[string]interface{}{
		"id":          step.ID.String(),
		"workflow_id": step.WorkflowID.String(),
		"agent_id":    step.AgentID,
		"input":       step.Input,
		"thread_id":   step.ThreadID,
		"status":      string(step.Status),
		"result":      step.Result,
		"error":       step.Error,
		"metadata":    encodeMetadata(step.Metadata),
		"created_at":  formatTime(step.CreatedAt),
		"updated_at":  formatTime(step.UpdatedAt),
	}
}

func mapToStep(m map[string]string) (*workflow.Step, error) {
	stepID, err := id.ParseStepID(m["id"])
	if err != nil {
		return nil, fmt.Errorf("orchestrate/redis: parse step id: %w", err)
	}
	wfID, err := id.ParseWorkflowID(m["workflow_id"])
	if err != nil {
		return nil, fmt.Errorf("orchestrate/redis: parse step workflow id: %w", err)
	}

	return &workflow.Step{
		Entity: orchestrate.Entity{
			CreatedAt: parseTime(m["created_at"]),
			UpdatedAt: parseTime(m["updated_at"]),
		},
		ID:         stepID,
		WorkflowID: wfID,
		AgentID:    m["agent_id"],
		Input:      m["input"],
		ThreadID:   m["thread_id"],
		Status:     workflow.StepStatus(m["status"]),
		Result:     m["result"],
		Error:      m["error"],
		Metadata:   decodeMetadata(m["metadata"]),
	}, nil
}
