package conversation

import "github.com/bedrockhome/agent/pkg/llm"

// History is the ordered message log of one conversation. A History is
// owned by a single conversation turn at a time; it is not safe for
// concurrent mutation.
type History struct {
	messages []llm.Message
}

func NewHistory() *History {
	return &History{}
}

// FromMessages builds a history from an existing ordered message list.
func FromMessages(messages []llm.Message) *History {
	h := &History{messages: make([]llm.Message, len(messages))}
	copy(h.messages, messages)
	return h
}

func (h *History) Append(msg llm.Message) {
	h.messages = append(h.messages, msg)
}

// SetSystem installs the system entry at position zero, replacing an
// existing one or inserting when absent.
func (h *History) SetSystem(text string) {
	sys := llm.SystemMessage(text)
	if len(h.messages) > 0 && h.messages[0].Role == llm.RoleSystem {
		h.messages[0] = sys
		return
	}
	h.messages = append([]llm.Message{sys}, h.messages...)
}

// System returns the text of the leading system entry, if present.
func (h *History) System() (string, bool) {
	if len(h.messages) > 0 && h.messages[0].Role == llm.RoleSystem {
		return h.messages[0].Text, true
	}
	return "", false
}

func (h *History) Len() int {
	return len(h.messages)
}

// Messages returns a copy of the ordered message list.
func (h *History) Messages() []llm.Message {
	out := make([]llm.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Trim bounds the history to the leading system entry plus the last
// 2*interactions non-system entries. The system entry is never dropped.
func (h *History) Trim(interactions int) {
	if interactions <= 0 {
		return
	}
	keep := 2 * interactions
	if len(h.messages) == 0 {
		return
	}
	if h.messages[0].Role == llm.RoleSystem {
		rest := h.messages[1:]
		if len(rest) <= keep {
			return
		}
		kept := dropLeadingToolResults(rest[len(rest)-keep:])
		trimmed := make([]llm.Message, 0, len(kept)+1)
		trimmed = append(trimmed, h.messages[0])
		trimmed = append(trimmed, kept...)
		h.messages = trimmed
		return
	}
	if len(h.messages) <= keep {
		return
	}
	h.messages = append([]llm.Message(nil), dropLeadingToolResults(h.messages[len(h.messages)-keep:])...)
}

// dropLeadingToolResults removes entries whose matching tool call fell
// on the far side of the cut; a leading tool result has no tool_use
// entry to pair with on the wire.
func dropLeadingToolResults(msgs []llm.Message) []llm.Message {
	for len(msgs) > 0 && msgs[0].Role == llm.RoleToolResult {
		msgs = msgs[1:]
	}
	return msgs
}
