package errorsx

import (
	"errors"
	"fmt"
)

// ConfigError marks a configuration problem. It is fatal to the setup
// action that produced it and is never retried.
type ConfigError struct {
	Field string
	Msg   string
}

func (e ConfigError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// NewConfigError builds a ConfigError carrying the config_invalid reason.
func NewConfigError(field, format string, args ...any) error {
	return Wrap(ConfigError{Field: field, Msg: fmt.Sprintf(format, args...)}, ReasonConfigInvalid)
}

// IsConfig returns true when the error chain contains a ConfigError.
func IsConfig(err error) bool {
	var ce ConfigError
	return errors.As(err, &ce)
}

// PromptRenderError marks a failed system prompt render. The caller is
// expected to surface it to the end user rather than fall back silently.
type PromptRenderError struct {
	Err error
}

func (e PromptRenderError) Error() string {
	return "prompt render: " + e.Err.Error()
}

func (e PromptRenderError) Unwrap() error { return e.Err }

// NewPromptRenderError wraps a template failure with the prompt_render reason.
func NewPromptRenderError(err error) error {
	if err == nil {
		return nil
	}
	return Wrap(PromptRenderError{Err: err}, ReasonPromptRender)
}

// IsPromptRender returns true when the error chain contains a PromptRenderError.
func IsPromptRender(err error) bool {
	var pe PromptRenderError
	return errors.As(err, &pe)
}
