package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"

	"github.com/bedrockhome/agent/pkg/errorsx"
	"github.com/bedrockhome/agent/pkg/llm"
)

type fakeInvoker struct {
	body []byte
	err  error

	gotBody []byte
}

func (f *fakeInvoker) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.gotBody = params.Body
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.body}, nil
}

func testAdapter(client invokeClient, family Family) *Adapter {
	return &Adapter{
		client:  client,
		modelID: "anthropic.claude-3-5-sonnet-20240620-v1:0",
		family:  family,
		timeout: 5 * time.Second,
	}
}

func TestGenerateParsesAnthropicResponse(t *testing.T) {
	fake := &fakeInvoker{body: []byte(`{
		"content": [{"type": "text", "text": "the light is on"}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 10, "output_tokens": 5}
	}`)}
	a := testAdapter(fake, FamilyAnthropic)

	resp, err := a.Generate(context.Background(), llm.Context{
		Messages: []llm.Message{llm.UserMessage("is the light on?")},
		Params:   testParams(),
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text != "the light is on" {
		t.Errorf("text = %q", resp.Text)
	}
	if resp.StopReason != llm.StopEndTurn {
		t.Errorf("stop reason = %q", resp.StopReason)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("total tokens = %d", resp.Usage.TotalTokens)
	}

	var sent map[string]any
	if err := json.Unmarshal(fake.gotBody, &sent); err != nil {
		t.Fatalf("sent body is not json: %v", err)
	}
	if sent["anthropic_version"] != anthropicVersion {
		t.Errorf("sent body = %v", sent)
	}
}

func TestGenerateParsesToolUse(t *testing.T) {
	fake := &fakeInvoker{body: []byte(`{
		"content": [
			{"type": "text", "text": "turning it on"},
			{"type": "tool_use", "id": "toolu_01", "name": "call_service",
			 "input": {"domain": "light", "service": "turn_on"}}
		],
		"stop_reason": "tool_use"
	}`)}
	a := testAdapter(fake, FamilyAnthropic)

	resp, err := a.Generate(context.Background(), llm.Context{
		Messages: []llm.Message{llm.UserMessage("turn on the light")},
		Params:   testParams(),
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.StopReason != llm.StopToolUse {
		t.Errorf("stop reason = %q", resp.StopReason)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("tool calls = %+v", resp.ToolCalls)
	}
	call := resp.ToolCalls[0]
	if call.ID != "toolu_01" || call.Name != "call_service" {
		t.Errorf("call = %+v", call)
	}
	if call.Arguments["service"] != "turn_on" {
		t.Errorf("arguments = %v", call.Arguments)
	}
}

func TestGenerateErrorClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want errorsx.ReasonCode
	}{
		{"throttled", &smithy.GenericAPIError{Code: "ThrottlingException"}, errorsx.ReasonThrottled},
		{"quota", &smithy.GenericAPIError{Code: "ServiceQuotaExceededException"}, errorsx.ReasonThrottled},
		{"denied", &smithy.GenericAPIError{Code: "AccessDeniedException"}, errorsx.ReasonAccessDenied},
		{"bad_key", &smithy.GenericAPIError{Code: "UnrecognizedClientException"}, errorsx.ReasonAccessDenied},
		{"validation", &smithy.GenericAPIError{Code: "ValidationException"}, errorsx.ReasonInvalidRequest},
		{"unknown_api", &smithy.GenericAPIError{Code: "InternalServerException"}, errorsx.ReasonTransport},
		{"network", errors.New("dial tcp: connection refused"), errorsx.ReasonTransport},
		{"deadline", context.DeadlineExceeded, errorsx.ReasonTransport},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := testAdapter(&fakeInvoker{err: tc.err}, FamilyAnthropic)
			_, err := a.Generate(context.Background(), llm.Context{
				Messages: []llm.Message{llm.UserMessage("hi")},
				Params:   testParams(),
			})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errorsx.Reason(err); got != tc.want {
				t.Errorf("reason = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestGenerateMalformedResponse(t *testing.T) {
	a := testAdapter(&fakeInvoker{body: []byte("not json at all")}, FamilyAnthropic)
	_, err := a.Generate(context.Background(), llm.Context{
		Messages: []llm.Message{llm.UserMessage("hi")},
		Params:   testParams(),
	})
	if !errorsx.HasReason(err, errorsx.ReasonMalformedResponse) {
		t.Errorf("reason = %q", errorsx.Reason(err))
	}
}

func TestFromProviderFormatLlama(t *testing.T) {
	a := testAdapter(nil, FamilyLlama)
	resp, err := a.FromProviderFormat([]byte(`{
		"generation": "hello there",
		"stop_reason": "stop",
		"prompt_token_count": 8,
		"generation_token_count": 3
	}`))
	if err != nil {
		t.Fatalf("FromProviderFormat: %v", err)
	}
	if resp.Text != "hello there" || resp.StopReason != llm.StopEndTurn {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Usage.TotalTokens != 11 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestFromProviderFormatMistral(t *testing.T) {
	a := testAdapter(nil, FamilyMistral)
	resp, err := a.FromProviderFormat([]byte(`{"outputs": [{"text": "bonjour", "stop_reason": "stop"}]}`))
	if err != nil {
		t.Fatalf("FromProviderFormat: %v", err)
	}
	if resp.Text != "bonjour" {
		t.Errorf("text = %q", resp.Text)
	}

	if _, err := a.FromProviderFormat([]byte(`{"outputs": []}`)); err == nil {
		t.Error("empty outputs must fail")
	}
}

func TestMapToolsNonAnthropic(t *testing.T) {
	a := testAdapter(nil, FamilyLlama)
	mapped, err := a.MapTools([]llm.Tool{{Name: "call_service"}})
	if err != nil {
		t.Fatalf("MapTools: %v", err)
	}
	if mapped != nil {
		t.Errorf("non-anthropic families carry no tools, got %v", mapped)
	}
}

func TestToolCallFromBlockDefaults(t *testing.T) {
	call := toolCallFromBlock(ContentBlock{Type: "tool_use", Name: "call_service"})
	if call.ID == "" {
		t.Error("missing id must be generated")
	}
	if call.Arguments == nil {
		t.Error("nil input must become empty map")
	}
}
