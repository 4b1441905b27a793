package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/bedrockhome/agent/pkg/conversation"
	"github.com/bedrockhome/agent/pkg/errorsx"
	"github.com/bedrockhome/agent/pkg/llm"
	"github.com/bedrockhome/agent/pkg/metrics"
)

// FallbackAnswer is returned when the iteration cap is reached before
// the model produces a final textual answer.
const FallbackAnswer = "Sorry, I could not complete your request."

// Loop drives one conversation turn: it invokes the model, executes any
// requested tool calls and feeds the results back until the model
// answers in plain text or the iteration cap is hit. The loop itself is
// stateless across turns; per-turn state lives in the history.
type Loop struct {
	adapter       llm.ModelAdapter
	registry      llm.ToolRegistry
	params        llm.Params
	maxIterations int
	observer      metrics.Observer
	logger        *slog.Logger
}

type LoopOption func(*Loop)

func WithObserver(obs metrics.Observer) LoopOption {
	return func(l *Loop) { l.observer = obs }
}

func WithLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) { l.logger = logger }
}

// NewLoop builds a loop. registry may be nil, which behaves like an
// iteration cap of zero.
func NewLoop(adapter llm.ModelAdapter, registry llm.ToolRegistry, params llm.Params, maxIterations int, opts ...LoopOption) *Loop {
	l := &Loop{
		adapter:       adapter,
		registry:      registry,
		params:        params,
		maxIterations: maxIterations,
		observer:      metrics.NoopObserver{},
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run executes one turn against the given history. Assistant entries
// and tool results are appended to the history as the turn progresses.
// It returns the final answer text, or an error when the model call
// fails. Cancellation is honored between iterations only; a started
// batch of tool calls always completes.
func (l *Loop) Run(ctx context.Context, history *conversation.History) (string, error) {
	sm := newStateMachine()
	iterations := 0
	toolsEnabled := l.registry != nil && l.maxIterations > 0

	var tools []llm.Tool
	if toolsEnabled {
		tools = l.registry.Tools()
	}

	start := time.Now()
	for {
		if err := ctx.Err(); err != nil {
			_ = sm.Transition(StateFailed, "canceled")
			return "", errorsx.Wrap(err, errorsx.ReasonTransport)
		}

		input := llm.Context{
			Messages: history.Messages(),
			Tools:    tools,
			Params:   l.params,
		}
		invokeStart := time.Now()
		resp, err := l.adapter.Generate(ctx, input)
		if err != nil {
			_ = sm.Transition(StateFailed, "model error")
			l.logger.Error("llm_generate_error",
				"provider", l.adapter.Name(),
				"reason_code", string(errorsx.Reason(err)),
				"error", err)
			return "", err
		}
		l.observer.RecordEvent(metrics.Timing("model_invoke", time.Since(invokeStart),
			"provider", l.adapter.Name(),
			"stop_reason", string(resp.StopReason)))

		history.Append(llm.AssistantMessage(resp.Text, resp.ToolCalls))

		if resp.StopReason != llm.StopToolUse || len(resp.ToolCalls) == 0 {
			_ = sm.Transition(StateDone, "final answer")
			l.observer.RecordEvent(metrics.Timing("conversation_turn", time.Since(start)))
			return resp.Text, nil
		}

		if !toolsEnabled {
			_ = sm.Transition(StateDone, "tool calling disabled")
			l.logger.Warn("tool_loop_fallback", "reason", "tool calling disabled")
			return FallbackAnswer, nil
		}

		_ = sm.Transition(StateExecutingTools, "model requested tools")
		for _, call := range resp.ToolCalls {
			history.Append(llm.ToolResultMessage(l.execute(ctx, call)))
		}
		iterations++
		if iterations >= l.maxIterations {
			_ = sm.Transition(StateDone, "iteration cap reached")
			l.logger.Warn("tool_loop_fallback",
				"reason", "iteration cap reached",
				"iterations", iterations)
			return FallbackAnswer, nil
		}
		_ = sm.Transition(StateAwaitingModel, "tool results appended")
	}
}

// execute runs one tool call. Failures become error results so the
// model can self-correct; they never abort the turn.
func (l *Loop) execute(ctx context.Context, call llm.ToolCall) llm.ToolResult {
	start := time.Now()
	payload, err := l.registry.HandleTool(ctx, call.Name, call.Arguments)
	status := llm.ToolStatusSuccess
	if err != nil {
		err = errorsx.Wrap(err, errorsx.ReasonToolExecute)
		status = llm.ToolStatusError
		l.logger.Warn("tool_execute_error",
			"tool", call.Name,
			"reason_code", string(errorsx.Reason(err)),
			"error", err)
	}
	l.observer.RecordEvent(metrics.Timing("tool_execute", time.Since(start),
		"tool", call.Name,
		"status", status))
	l.logger.Debug("tool_result", "tool", call.Name, "status", status)
	if err != nil {
		return llm.ErrorResult(call.ID, err)
	}
	return llm.ToolResult{
		ToolCallID: call.ID,
		Status:     llm.ToolStatusSuccess,
		Payload:    payload,
	}
}
