package llm

import "context"

// Tool is an abstract capability the model may invoke.
type Tool struct {
	Name        string
	Description string
	Schema      map[string]any
}

// ToolCall is a structured request emitted by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

const (
	ToolStatusSuccess = "success"
	ToolStatusError   = "error"
)

// ToolResult answers a ToolCall. Execution failures are carried as data
// (status "error") so the model can self-correct.
type ToolResult struct {
	ToolCallID string
	Status     string
	Payload    map[string]any
}

// ErrorResult builds an error ToolResult for a call.
func ErrorResult(callID string, err error) ToolResult {
	return ToolResult{
		ToolCallID: callID,
		Status:     ToolStatusError,
		Payload:    map[string]any{"message": err.Error()},
	}
}

// ToolRegistry exposes the host's tool set and its execution entry point.
type ToolRegistry interface {
	Tools() []Tool
	HandleTool(ctx context.Context, name string, args map[string]any) (map[string]any, error)
}
