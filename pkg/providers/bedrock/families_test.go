package bedrock

import (
	"strings"
	"testing"

	"github.com/bedrockhome/agent/pkg/llm"
)

func TestDetectFamily(t *testing.T) {
	cases := []struct {
		modelID string
		want    Family
	}{
		{"anthropic.claude-3-5-sonnet-20240620-v1:0", FamilyAnthropic},
		{"anthropic.claude-v2:1", FamilyAnthropic},
		{"meta.llama3-70b-instruct-v1:0", FamilyLlama},
		{"mistral.mistral-large-2402-v1:0", FamilyMistral},
		{"amazon.titan-text-express-v1", FamilyGeneric},
		{"", FamilyGeneric},
	}
	for _, tc := range cases {
		if got := DetectFamily(tc.modelID); got != tc.want {
			t.Errorf("DetectFamily(%q) = %v, want %v", tc.modelID, got, tc.want)
		}
	}
}

func testParams() llm.Params {
	return llm.Params{Temperature: 1.0, MaxTokens: 4096, TopP: 0.999, TopK: 250}
}

func TestBuildRequestBodyAnthropic(t *testing.T) {
	input := llm.Context{
		Messages: []llm.Message{
			llm.SystemMessage("You are a helpful assistant."),
			llm.UserMessage("turn on the light"),
		},
		Tools:  []llm.Tool{{Name: "call_service", Description: "calls a service"}},
		Params: testParams(),
	}
	body, err := BuildRequestBody(FamilyAnthropic, input)
	if err != nil {
		t.Fatalf("BuildRequestBody: %v", err)
	}
	if body["anthropic_version"] != anthropicVersion {
		t.Errorf("anthropic_version = %v", body["anthropic_version"])
	}
	if body["system"] != "You are a helpful assistant." {
		t.Errorf("system = %v", body["system"])
	}
	if body["max_tokens"] != 4096 || body["top_k"] != 250 {
		t.Errorf("params not carried: %v", body)
	}
	if _, ok := body["top_p"]; ok {
		t.Error("anthropic body must not carry top_p")
	}
	if _, ok := body["tools"]; !ok {
		t.Error("tools not carried")
	}
	messages, ok := body["messages"].([]WireMessage)
	if !ok || len(messages) != 1 {
		t.Fatalf("messages = %v", body["messages"])
	}
	if messages[0].Role != "user" || messages[0].Content[0].Text != "turn on the light" {
		t.Errorf("unexpected message: %+v", messages[0])
	}
}

func TestBuildRequestBodyAnthropicNoSystemNoTools(t *testing.T) {
	input := llm.Context{
		Messages: []llm.Message{llm.UserMessage("hi")},
		Params:   testParams(),
	}
	body, err := BuildRequestBody(FamilyAnthropic, input)
	if err != nil {
		t.Fatalf("BuildRequestBody: %v", err)
	}
	if _, ok := body["system"]; ok {
		t.Error("empty system must be omitted")
	}
	if _, ok := body["tools"]; ok {
		t.Error("empty tools must be omitted")
	}
}

func TestBuildRequestBodyLlama(t *testing.T) {
	input := llm.Context{
		Messages: []llm.Message{
			llm.SystemMessage("Be brief."),
			llm.UserMessage("hello"),
		},
		Params: testParams(),
	}
	body, err := BuildRequestBody(FamilyLlama, input)
	if err != nil {
		t.Fatalf("BuildRequestBody: %v", err)
	}
	if body["max_gen_len"] != 4096 {
		t.Errorf("max_gen_len = %v", body["max_gen_len"])
	}
	if _, ok := body["top_k"]; ok {
		t.Error("llama body must not carry top_k")
	}
	prompt, _ := body["prompt"].(string)
	if !strings.Contains(prompt, "Be brief.") || !strings.Contains(prompt, "User: hello") {
		t.Errorf("prompt = %q", prompt)
	}
	if !strings.HasSuffix(prompt, "Assistant:") {
		t.Errorf("prompt must end with assistant cue, got %q", prompt)
	}
}

func TestBuildRequestBodyMistral(t *testing.T) {
	input := llm.Context{
		Messages: []llm.Message{llm.UserMessage("hello")},
		Params:   testParams(),
	}
	body, err := BuildRequestBody(FamilyMistral, input)
	if err != nil {
		t.Fatalf("BuildRequestBody: %v", err)
	}
	for _, key := range []string{"prompt", "max_tokens", "temperature", "top_p", "top_k"} {
		if _, ok := body[key]; !ok {
			t.Errorf("missing %q", key)
		}
	}
}

func TestBuildRequestBodyGeneric(t *testing.T) {
	input := llm.Context{
		Messages: []llm.Message{llm.UserMessage("hello")},
		Params:   testParams(),
	}
	body, err := BuildRequestBody(FamilyGeneric, input)
	if err != nil {
		t.Fatalf("BuildRequestBody: %v", err)
	}
	if _, ok := body["top_p"]; ok {
		t.Error("generic body carries only prompt, max_tokens and temperature")
	}
	if body["max_tokens"] != 4096 {
		t.Errorf("max_tokens = %v", body["max_tokens"])
	}
}
