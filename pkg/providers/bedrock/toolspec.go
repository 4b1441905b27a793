package bedrock

import (
	"github.com/bedrockhome/agent/pkg/llm"
	"github.com/google/uuid"
)

// toolSpec is the Anthropic Messages API tool declaration shape.
type toolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

func mapToolSpecs(tools []llm.Tool) []toolSpec {
	out := make([]toolSpec, 0, len(tools))
	for _, t := range tools {
		schema := t.Schema
		if schema == nil {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		out = append(out, toolSpec{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		})
	}
	return out
}

// toolCallFromBlock converts a tool_use content block back into an
// abstract ToolCall. Unknown tool names pass through untouched;
// validating them is the tool executor's concern. A missing id gets a
// generated one so results can still be correlated.
func toolCallFromBlock(block ContentBlock) llm.ToolCall {
	id := block.ID
	if id == "" {
		id = "tool_" + uuid.NewString()
	}
	args := block.Input
	if args == nil {
		args = map[string]any{}
	}
	return llm.ToolCall{ID: id, Name: block.Name, Arguments: args}
}
