package llm

import "context"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem     Role = "system"
	RoleUser       Role = "user"
	RoleAssistant  Role = "assistant"
	RoleToolResult Role = "tool_result"
)

// Message is one entry of a conversation history. Exactly one shape is
// populated per role: Text for system/user, Text plus ToolCalls for
// assistant, Result for tool_result.
type Message struct {
	Role      Role
	Text      string
	ToolCalls []ToolCall
	Result    *ToolResult
}

func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Text: text}
}

func UserMessage(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

func AssistantMessage(text string, calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Text: text, ToolCalls: calls}
}

func ToolResultMessage(result ToolResult) Message {
	r := result
	return Message{Role: RoleToolResult, Result: &r}
}

// Params are the sampling parameters forwarded to the model. TopK is
// honored only by model families that support it.
type Params struct {
	Temperature float64
	MaxTokens   int
	TopP        float64
	TopK        int
}

// Context is the full input of one model invocation.
type Context struct {
	Messages []Message
	Tools    []Tool
	Params   Params
}

// StopReason classifies why generation ended.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopMaxTokens StopReason = "max_tokens"
	StopOther     StopReason = "other"
)

// ParseStopReason normalizes a provider stop reason string.
func ParseStopReason(raw string) StopReason {
	switch raw {
	case "end_turn", "stop", "stop_sequence":
		return StopEndTurn
	case "tool_use":
		return StopToolUse
	case "max_tokens", "length":
		return StopMaxTokens
	default:
		return StopOther
	}
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is the parsed output of one model invocation.
type Response struct {
	Text       string
	ToolCalls  []ToolCall
	StopReason StopReason
	Usage      Usage
}

// ModelAdapter abstracts a remote foundation model endpoint. Generate
// performs exactly one network call; retries are the caller's business.
// Implementations must be stateless and safe for concurrent use.
type ModelAdapter interface {
	Generate(ctx context.Context, input Context) (Response, error)
	MapTools(tools []Tool) (any, error)
	ToProviderFormat(input Context) (any, error)
	FromProviderFormat(raw []byte) (Response, error)
	Name() string
}
