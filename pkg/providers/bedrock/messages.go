package bedrock

import (
	"encoding/json"
	"fmt"

	"github.com/bedrockhome/agent/pkg/llm"
)

// ContentBlock is a union over the block types of the Anthropic Messages
// API as served by Bedrock: text, tool_use and tool_result.
type ContentBlock struct {
	Type      string         `json:"type"`
	Text      string         `json:"text,omitempty"`
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Input     map[string]any `json:"input,omitempty"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Content   []ContentBlock `json:"content,omitempty"`
}

// WireMessage is one conversational turn on the wire.
type WireMessage struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// TranslateHistory converts an ordered history into the wire shape: the
// first system entry is carried separately, user entries become user
// text blocks, assistant entries become a text block (when non-empty)
// followed by one tool_use block per call, and tool results ride in
// user messages, merging into an immediately preceding user message.
// System entries beyond the first are sent as ordinary user text.
func TranslateHistory(messages []llm.Message) (string, []WireMessage, error) {
	system := ""
	systemSeen := false
	out := make([]WireMessage, 0, len(messages))

	appendUserBlock := func(block ContentBlock) {
		if n := len(out); n > 0 && out[n-1].Role == "user" {
			out[n-1].Content = append(out[n-1].Content, block)
			return
		}
		out = append(out, WireMessage{Role: "user", Content: []ContentBlock{block}})
	}

	for _, m := range messages {
		switch m.Role {
		case llm.RoleSystem:
			if !systemSeen {
				system = m.Text
				systemSeen = true
				continue
			}
			out = append(out, WireMessage{
				Role:    "user",
				Content: []ContentBlock{{Type: "text", Text: m.Text}},
			})
		case llm.RoleUser:
			out = append(out, WireMessage{
				Role:    "user",
				Content: []ContentBlock{{Type: "text", Text: m.Text}},
			})
		case llm.RoleAssistant:
			var blocks []ContentBlock
			if m.Text != "" {
				blocks = append(blocks, ContentBlock{Type: "text", Text: m.Text})
			}
			for _, call := range m.ToolCalls {
				blocks = append(blocks, ContentBlock{
					Type:  "tool_use",
					ID:    call.ID,
					Name:  call.Name,
					Input: call.Arguments,
				})
			}
			if len(blocks) > 0 {
				out = append(out, WireMessage{Role: "assistant", Content: blocks})
			}
		case llm.RoleToolResult:
			if m.Result == nil {
				return "", nil, fmt.Errorf("tool result entry without result")
			}
			payload, err := json.Marshal(m.Result.Payload)
			if err != nil {
				return "", nil, fmt.Errorf("marshal tool result: %w", err)
			}
			appendUserBlock(ContentBlock{
				Type:      "tool_result",
				ToolUseID: m.Result.ToolCallID,
				Content:   []ContentBlock{{Type: "text", Text: string(payload)}},
			})
		default:
			return "", nil, fmt.Errorf("unknown history role %q", m.Role)
		}
	}
	return system, out, nil
}

// HistoryFromWire recovers a history from wire messages. Defined for
// text-only turns; messages carrying tool blocks are rejected.
func HistoryFromWire(system string, messages []WireMessage) ([]llm.Message, error) {
	var out []llm.Message
	if system != "" {
		out = append(out, llm.SystemMessage(system))
	}
	for _, m := range messages {
		if len(m.Content) != 1 || m.Content[0].Type != "text" {
			return nil, fmt.Errorf("wire message is not text-only")
		}
		text := m.Content[0].Text
		switch m.Role {
		case "user":
			out = append(out, llm.UserMessage(text))
		case "assistant":
			out = append(out, llm.AssistantMessage(text, nil))
		default:
			return nil, fmt.Errorf("unknown wire role %q", m.Role)
		}
	}
	return out, nil
}
