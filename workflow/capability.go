package workflow

import "context"

// Message roles appended to conversation threads during step execution.
const (
	// RoleUser tags a step's input message.
	RoleUser = "user"
	// RoleAssistant tags a step's result message.
	RoleAssistant = "assistant"
)

// AgentInvoker turns (agentID, input) into a textual result. The
// surrounding application supplies the implementation.
//
// Invoke must be safe to call repeatedly with the same arguments: execution
// is at-least-once, and re-entering Execute on a workflow that crashed
// mid-step re-runs the step that was in flight.
type AgentInvoker interface {
	Invoke(ctx context.Context, agentID, input string) (string, error)
}

// ThreadService provides append-only, role-tagged message logs keyed by
// thread id. Used purely for audit of step input and output; a failure here
// fails the step.
type ThreadService interface {
	// CreateThread creates a thread with a human-readable label and
	// returns its id.
	CreateThread(ctx context.Context, label string) (string, error)

	// AppendMessage appends a role-tagged message to an existing thread.
	AppendMessage(ctx context.Context, threadID, role, content string) error
}

// AgentInvokerFunc adapts a function to the AgentInvoker interface.
type AgentInvokerFunc func(ctx context.Context, agentID, input string) (string, error)

// Invoke calls f.
func (f AgentInvokerFunc) Invoke(ctx context.Context, agentID, input string) (string, error) {
	return f(ctx, agentID, input)
}
