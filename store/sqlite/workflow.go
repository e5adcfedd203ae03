package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	orchestrate "github.com/ssdeanx/ai-sdk-DM-sub007"
	"github.com/ssdeanx/ai-sdk-DM-sub007/id"
	"github.com/ssdeanx/ai-sdk-DM-sub007/workflow"
)

// PutWorkflow upserts the workflow row and every step row in one
// transaction. Step rows keep their slice position so insertion order is
// the read order.
func (s *Store) PutWorkflow(ctx context.Context, wf *workflow.Workflow) error {
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		m := toWorkflowModel(wf)
		_, err := tx.NewInsert().Model(m).
			On("CONFLICT (id) DO UPDATE").
			Set("name = EXCLUDED.name").
			Set("description = EXCLUDED.description").
			Set("current_step_index = EXCLUDED.current_step_index").
			Set("status = EXCLUDED.status").
			Set("metadata = EXCLUDED.metadata").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("upsert workflow: %w", err)
		}

		for i, step := range wf.Steps {
			if upsertErr := upsertStep(ctx, tx, step, i); upsertErr != nil {
				return upsertErr
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("orchestrate/sqlite: put workflow: %w", err)
	}
	return nil
}

func upsertStep(ctx context.Context, tx bun.Tx, step *workflow.Step, position int) error {
	m := toStepModel(step, position)
	_, err := tx.NewInsert().Model(m).
		On("CONFLICT (id) DO UPDATE").
		Set("position = EXCLUDED.position").
		Set("agent_id = EXCLUDED.agent_id").
		Set("input = EXCLUDED.input").
		Set("thread_id = EXCLUDED.thread_id").
		Set("status = EXCLUDED.status").
		Set("result = EXCLUDED.result").
		Set("error = EXCLUDED.error").
		Set("metadata = EXCLUDED.metadata").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert step %s: %w", step.ID, err)
	}
	return nil
}

// GetWorkflow retrieves a workflow with all owned steps in position order.
func (s *Store) GetWorkflow(ctx context.Context, workflowID id.WorkflowID) (*workflow.Workflow, error) {
	m := new(workflowModel)
	err := s.db.NewSelect().Model(m).
		Where("id = ?", workflowID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, orchestrate.ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("orchestrate/sqlite: get workflow: %w", err)
	}

	wf, err := fromWorkflowModel(m)
	if err != nil {
		return nil, err
	}

	steps, err := s.loadSteps(ctx, workflowID.String())
	if err != nil {
		return nil, err
	}
	wf.Steps = steps
	return wf, nil
}

// ListWorkflows returns workflows ordered most-recently-updated first.
// The updated_at index makes pages exact.
func (s *Store) ListWorkflows(ctx context.Context, opts workflow.ListOpts) ([]*workflow.Workflow, error) {
	var models []workflowModel
	q := s.db.NewSelect().Model(&models).
		Order("updated_at DESC")
	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("orchestrate/sqlite: list workflows: %w", err)
	}

	workflows := make([]*workflow.Workflow, 0, len(models))
	for i := range models {
		wf, convErr := fromWorkflowModel(&models[i])
		if convErr != nil {
			return nil, convErr
		}
		steps, loadErr := s.loadSteps(ctx, wf.ID.String())
		if loadErr != nil {
			return nil, loadErr
		}
		wf.Steps = steps
		workflows = append(workflows, wf)
	}
	return workflows, nil
}

// DeleteWorkflow removes the workflow row and all of its step rows.
func (s *Store) DeleteWorkflow(ctx context.Context, workflowID id.WorkflowID) (bool, error) {
	var existed bool
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*stepModel)(nil)).
			Where("workflow_id = ?", workflowID.String()).
			Exec(ctx); err != nil {
			return fmt.Errorf("delete steps: %w", err)
		}

		res, err := tx.NewDelete().
			Model((*workflowModel)(nil)).
			Where("id = ?", workflowID.String()).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete workflow: %w", err)
		}
		rows, _ := res.RowsAffected()
		existed = rows > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("orchestrate/sqlite: delete workflow: %w", err)
	}
	return existed, nil
}

// PutStep upserts a single step row. A step not yet present is appended
// after the workflow's existing steps.
func (s *Store) PutStep(ctx context.Context, step *workflow.Step) error {
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*workflowModel)(nil)).
			Where("id = ?", step.WorkflowID.String()).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("check workflow: %w", err)
		}
		if !exists {
			return orchestrate.ErrWorkflowNotFound
		}

		var position int
		err = tx.NewSelect().
			Model((*stepModel)(nil)).
			Column("position").
			Where("id = ?", step.ID.String()).
			Scan(ctx, &position)
		if err != nil {
			if !isNoRows(err) {
				return fmt.Errorf("step position: %w", err)
			}
			count, countErr := tx.NewSelect().
				Model((*stepModel)(nil)).
				Where("workflow_id = ?", step.WorkflowID.String()).
				Count(ctx)
			if countErr != nil {
				return fmt.Errorf("count steps: %w", countErr)
			}
			position = count
		}

		return upsertStep(ctx, tx, step, position)
	})
	if err != nil {
		if errors.Is(err, orchestrate.ErrWorkflowNotFound) {
			return orchestrate.ErrWorkflowNotFound
		}
		return fmt.Errorf("orchestrate/sqlite: put step: %w", err)
	}
	return nil
}

// GetStep retrieves a step by ID.
func (s *Store) GetStep(ctx context.Context, stepID id.StepID) (*workflow.Step, error) {
	m := new(stepModel)
	err := s.db.NewSelect().Model(m).
		Where("id = ?", stepID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, orchestrate.ErrStepNotFound
		}
		return nil, fmt.Errorf("orchestrate/sqlite: get step: %w", err)
	}
	return fromStepModel(m)
}

// loadSteps returns a workflow's steps ordered by position.
func (s *Store) loadSteps(ctx context.Context, workflowID string) ([]*workflow.Step, error) {
	var models []stepModel
	err := s.db.NewSelect().Model(&models).
		Where("workflow_id = ?", workflowID).
		Order("position ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("orchestrate/sqlite: load steps: %w", err)
	}

	steps := make([]*workflow.Step, 0, len(models))
	for i := range models {
		step, convErr := fromStepModel(&models[i])
		if convErr != nil {
			return nil, convErr
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// isNoRows reports whether err is the driver's no-rows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
