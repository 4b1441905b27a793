package mock

import (
	"context"
	"sync"

	"github.com/bedrockhome/agent/pkg/llm"
)

// LLMAdapter is a scriptable model adapter for tests. Responses are
// served from a queue; once the queue empties the last response repeats.
type LLMAdapter struct {
	cfg LLMConfig

	mu    sync.Mutex
	next  int
	Calls []llm.Context
}

type LLMConfig struct {
	Responses []llm.Response
	Err       error
}

func NewLLMAdapter(cfg LLMConfig) *LLMAdapter {
	if len(cfg.Responses) == 0 {
		cfg.Responses = []llm.Response{{Text: "mock response", StopReason: llm.StopEndTurn}}
	}
	return &LLMAdapter{cfg: cfg}
}

func (a *LLMAdapter) Name() string { return "mock_llm" }

func (a *LLMAdapter) Generate(ctx context.Context, input llm.Context) (llm.Response, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Calls = append(a.Calls, input)
	if a.cfg.Err != nil {
		return llm.Response{}, a.cfg.Err
	}
	resp := a.cfg.Responses[a.next]
	if a.next < len(a.cfg.Responses)-1 {
		a.next++
	}
	return resp, nil
}

// CallCount reports how many Generate calls were made.
func (a *LLMAdapter) CallCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.Calls)
}

func (a *LLMAdapter) MapTools(tools []llm.Tool) (any, error) {
	return nil, nil
}

func (a *LLMAdapter) ToProviderFormat(input llm.Context) (any, error) {
	return nil, nil
}

func (a *LLMAdapter) FromProviderFormat(raw []byte) (llm.Response, error) {
	return a.cfg.Responses[0], nil
}

var _ llm.ModelAdapter = (*LLMAdapter)(nil)
