package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"

	"github.com/bedrockhome/agent/pkg/errorsx"
	"github.com/bedrockhome/agent/pkg/llm"
)

// Config carries the AWS identity and model selection for one adapter.
type Config struct {
	Region          string
	ModelID         string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	RequestTimeout  time.Duration
}

// Adapter invokes a Bedrock foundation model. It performs exactly one
// network call per Generate and never retries internally. The adapter
// holds no mutable state and is safe for concurrent use.
type Adapter struct {
	client  invokeClient
	modelID string
	family  Family
	timeout time.Duration
}

// invokeClient is the slice of bedrockruntime.Client the adapter needs.
type invokeClient interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// New builds an adapter and verifies that credentials resolve. A missing
// identity is a configuration problem, not a runtime one.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	if cfg.ModelID == "" {
		return nil, errorsx.NewConfigError("model", "model id is required")
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errorsx.NewConfigError("aws", "load aws config: %v", err)
	}
	if _, err := awsCfg.Credentials.Retrieve(ctx); err != nil {
		return nil, errorsx.NewConfigError("aws", "resolve aws credentials: %v", err)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Adapter{
		client:  bedrockruntime.NewFromConfig(awsCfg),
		modelID: cfg.ModelID,
		family:  DetectFamily(cfg.ModelID),
		timeout: timeout,
	}, nil
}

func (a *Adapter) Name() string { return "bedrock" }

// Family returns the detected model family.
func (a *Adapter) Family() Family { return a.family }

// MapTools renders tool declarations in the provider shape. Only the
// Anthropic family supports tool use on Bedrock's invoke API.
func (a *Adapter) MapTools(tools []llm.Tool) (any, error) {
	if a.family != FamilyAnthropic || len(tools) == 0 {
		return nil, nil
	}
	return mapToolSpecs(tools), nil
}

// ToProviderFormat builds the invoke body for this adapter's family.
func (a *Adapter) ToProviderFormat(input llm.Context) (any, error) {
	return BuildRequestBody(a.family, input)
}

// Generate performs one InvokeModel round trip. Transport, credential
// and validation failures carry machine-readable reasons; retrying the
// retryable ones is the caller's responsibility.
func (a *Adapter) Generate(ctx context.Context, input llm.Context) (llm.Response, error) {
	body, err := a.ToProviderFormat(input)
	if err != nil {
		return llm.Response{}, errorsx.Wrap(err, errorsx.ReasonInvalidRequest)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return llm.Response{}, errorsx.Wrap(err, errorsx.ReasonInvalidRequest)
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	out, err := a.client.InvokeModel(callCtx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(a.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		reason := classifyInvokeError(err)
		slog.Error("bedrock_invoke_error",
			"model_id", a.modelID,
			"reason_code", string(reason),
			"error", err)
		return llm.Response{}, errorsx.Wrap(err, reason)
	}

	resp, err := a.FromProviderFormat(out.Body)
	if err != nil {
		slog.Error("bedrock_response_malformed", "model_id", a.modelID, "error", err)
		return llm.Response{}, errorsx.Wrap(err, errorsx.ReasonMalformedResponse)
	}
	slog.Debug("bedrock_invoke_done",
		"model_id", a.modelID,
		"stop_reason", string(resp.StopReason),
		"tool_calls", len(resp.ToolCalls),
		"duration_ms", time.Since(start).Milliseconds())
	return resp, nil
}

// FromProviderFormat parses a raw response body for this adapter's family.
func (a *Adapter) FromProviderFormat(raw []byte) (llm.Response, error) {
	switch a.family {
	case FamilyAnthropic:
		return parseAnthropicResponse(raw)
	case FamilyLlama:
		return parseLlamaResponse(raw)
	case FamilyMistral:
		return parseMistralResponse(raw)
	default:
		return parseGenericResponse(raw)
	}
}

func parseAnthropicResponse(raw []byte) (llm.Response, error) {
	var body struct {
		Content    []ContentBlock `json:"content"`
		StopReason string         `json:"stop_reason"`
		Usage      struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return llm.Response{}, err
	}
	if body.Content == nil && body.StopReason == "" {
		return llm.Response{}, errors.New("response missing content and stop_reason")
	}
	resp := llm.Response{
		StopReason: llm.ParseStopReason(body.StopReason),
		Usage: llm.Usage{
			PromptTokens:     body.Usage.InputTokens,
			CompletionTokens: body.Usage.OutputTokens,
			TotalTokens:      body.Usage.InputTokens + body.Usage.OutputTokens,
		},
	}
	for _, block := range body.Content {
		switch block.Type {
		case "text":
			resp.Text += block.Text
		case "tool_use":
			resp.ToolCalls = append(resp.ToolCalls, toolCallFromBlock(block))
		}
	}
	return resp, nil
}

func parseLlamaResponse(raw []byte) (llm.Response, error) {
	var body struct {
		Generation           string `json:"generation"`
		StopReason           string `json:"stop_reason"`
		PromptTokenCount     int    `json:"prompt_token_count"`
		GenerationTokenCount int    `json:"generation_token_count"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return llm.Response{}, err
	}
	if body.Generation == "" && body.StopReason == "" {
		return llm.Response{}, errors.New("response missing generation")
	}
	return llm.Response{
		Text:       body.Generation,
		StopReason: llm.ParseStopReason(body.StopReason),
		Usage: llm.Usage{
			PromptTokens:     body.PromptTokenCount,
			CompletionTokens: body.GenerationTokenCount,
			TotalTokens:      body.PromptTokenCount + body.GenerationTokenCount,
		},
	}, nil
}

func parseMistralResponse(raw []byte) (llm.Response, error) {
	var body struct {
		Outputs []struct {
			Text       string `json:"text"`
			StopReason string `json:"stop_reason"`
		} `json:"outputs"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return llm.Response{}, err
	}
	if len(body.Outputs) == 0 {
		return llm.Response{}, errors.New("response missing outputs")
	}
	return llm.Response{
		Text:       body.Outputs[0].Text,
		StopReason: llm.ParseStopReason(body.Outputs[0].StopReason),
	}, nil
}

func parseGenericResponse(raw []byte) (llm.Response, error) {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return llm.Response{}, err
	}
	if text, ok := body["completion"].(string); ok {
		return llm.Response{Text: text, StopReason: llm.StopEndTurn}, nil
	}
	if text, ok := body["text"].(string); ok {
		return llm.Response{Text: text, StopReason: llm.StopEndTurn}, nil
	}
	return llm.Response{}, errors.New("unrecognized response shape")
}

// classifyInvokeError maps invoke failures onto the error taxonomy.
// Anything that is not a recognized API fault counts as transport,
// including context deadline expiry.
func classifyInvokeError(err error) errorsx.ReasonCode {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException", "ServiceQuotaExceededException":
			return errorsx.ReasonThrottled
		case "AccessDeniedException", "UnrecognizedClientException", "ExpiredTokenException", "InvalidSignatureException":
			return errorsx.ReasonAccessDenied
		case "ValidationException", "ResourceNotFoundException", "ModelNotReadyException", "ModelErrorException":
			return errorsx.ReasonInvalidRequest
		}
	}
	return errorsx.ReasonTransport
}

var _ llm.ModelAdapter = (*Adapter)(nil)
