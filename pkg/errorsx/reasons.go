package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	// Remote model failures, mapped from Bedrock responses.
	ReasonThrottled         ReasonCode = "throttled"
	ReasonAccessDenied      ReasonCode = "access_denied"
	ReasonInvalidRequest    ReasonCode = "invalid_request"
	ReasonTransport         ReasonCode = "transport"
	ReasonMalformedResponse ReasonCode = "malformed_response"

	ReasonConfigInvalid ReasonCode = "config_invalid"
	ReasonPromptRender  ReasonCode = "prompt_render"

	ReasonToolExecute ReasonCode = "tool_execute"
	ReasonHostConnect ReasonCode = "host_connect"
	ReasonHostSend    ReasonCode = "host_send"
)

// Retryable reports whether a reason is a candidate for caller-level
// retry with backoff. Credential and validation failures never are.
func Retryable(reason ReasonCode) bool {
	switch reason {
	case ReasonThrottled, ReasonTransport:
		return true
	}
	return false
}
