package llm

import "kbdraft/internal/domain"

// modelPricing is USD per 1M tokens.
type modelPricing struct {
	Input  float64
	Output float64
}

var pricing = map[string]modelPricing{
	"gpt-4o-mini":            {Input: 0.15, Output: 0.60},
	"gpt-4o-mini-2024-07-18": {Input: 0.15, Output: 0.60},
	"gpt-4o":                 {Input: 2.50, Output: 10.00},
	"gpt-3.5-turbo":          {Input: 0.50, Output: 1.50},
}

// EstimateCost returns the estimated request cost in USD, or nil when no
// pricing is known for the model.
func EstimateCost(model string, usage domain.TokenUsage) *float64 {
	p, ok := pricing[model]
	if !ok {
		return nil
	}
	cost := float64(usage.PromptTokens)/1_000_000*p.Input +
		float64(usage.CompletionTokens)/1_000_000*p.Output
	return &cost
}
