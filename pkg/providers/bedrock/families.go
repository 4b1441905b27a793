package bedrock

import (
	"strings"

	"github.com/bedrockhome/agent/pkg/llm"
)

// Family is the foundation model family a Bedrock model id belongs to.
// Request and response bodies are family-specific.
type Family int

const (
	FamilyGeneric Family = iota
	FamilyAnthropic
	FamilyLlama
	FamilyMistral
)

func (f Family) String() string {
	switch f {
	case FamilyAnthropic:
		return "anthropic"
	case FamilyLlama:
		return "llama"
	case FamilyMistral:
		return "mistral"
	default:
		return "generic"
	}
}

const anthropicVersion = "bedrock-2023-05-31"

// DetectFamily classifies a Bedrock model identifier.
func DetectFamily(modelID string) Family {
	id := strings.ToLower(modelID)
	switch {
	case strings.HasPrefix(id, "anthropic."):
		return FamilyAnthropic
	case strings.HasPrefix(id, "meta.llama"):
		return FamilyLlama
	case strings.HasPrefix(id, "mistral."):
		return FamilyMistral
	default:
		return FamilyGeneric
	}
}

// BuildRequestBody assembles the family-specific invoke body. Pure; all
// family branching lives here rather than in the client.
//
// The Anthropic family carries anthropic_version and top_k and omits
// top_p (mutually exclusive with temperature on Claude models). The
// other families take a flattened prompt transcript and ignore tools.
func BuildRequestBody(family Family, input llm.Context) (map[string]any, error) {
	switch family {
	case FamilyAnthropic:
		system, messages, err := TranslateHistory(input.Messages)
		if err != nil {
			return nil, err
		}
		body := map[string]any{
			"anthropic_version": anthropicVersion,
			"max_tokens":        input.Params.MaxTokens,
			"temperature":       input.Params.Temperature,
			"top_k":             input.Params.TopK,
			"messages":          messages,
		}
		if system != "" {
			body["system"] = system
		}
		if len(input.Tools) > 0 {
			body["tools"] = mapToolSpecs(input.Tools)
		}
		return body, nil
	case FamilyLlama:
		return map[string]any{
			"prompt":      flattenTranscript(input.Messages),
			"max_gen_len": input.Params.MaxTokens,
			"temperature": input.Params.Temperature,
			"top_p":       input.Params.TopP,
		}, nil
	case FamilyMistral:
		return map[string]any{
			"prompt":      flattenTranscript(input.Messages),
			"max_tokens":  input.Params.MaxTokens,
			"temperature": input.Params.Temperature,
			"top_p":       input.Params.TopP,
			"top_k":       input.Params.TopK,
		}, nil
	default:
		return map[string]any{
			"prompt":      flattenTranscript(input.Messages),
			"max_tokens":  input.Params.MaxTokens,
			"temperature": input.Params.Temperature,
		}, nil
	}
}

// flattenTranscript renders the history as plain text for prompt-style
// model families.
func flattenTranscript(messages []llm.Message) string {
	var sb strings.Builder
	for _, m := range messages {
		switch m.Role {
		case llm.RoleSystem:
			sb.WriteString(m.Text)
			sb.WriteString("\n\n")
		case llm.RoleUser:
			sb.WriteString("User: ")
			sb.WriteString(m.Text)
			sb.WriteString("\n")
		case llm.RoleAssistant:
			if m.Text != "" {
				sb.WriteString("Assistant: ")
				sb.WriteString(m.Text)
				sb.WriteString("\n")
			}
		}
	}
	sb.WriteString("Assistant:")
	return sb.String()
}
