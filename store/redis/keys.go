package redis

// Redis key naming conventions for orchestrate data.
// All keys are prefixed with "orchestrate:" to avoid collisions.

const keyPrefix = "orchestrate:"

// workflowKey returns the Hash key for a workflow: orchestrate:workflow:{id}
func workflowKey(id string) string { return keyPrefix + "workflow:" + id }

// stepKey returns the Hash key for a step: orchestrate:step:{id}
func stepKey(id string) string { return keyPrefix + "step:" + id }

// workflowStepsKey returns the Sorted Set key holding a workflow's step ids
// scored by insertion position: orchestrate:workflow_steps:{workflowID}
func workflowStepsKey(workflowID string) string {
	return keyPrefix + "workflow_steps:" + workflowID
}

// workflowIndexKey is the Sorted Set tracking all workflow ids scored by
// last update time. Serves time-ordered list pages.
const workflowIndexKey = keyPrefix + "workflows_by_update"
