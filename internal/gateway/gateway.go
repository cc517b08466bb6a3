// Package gateway talks to the upstream agent that produces interview
// questions and the final assessment.
package gateway

import (
	"context"
	"fmt"

	"github.com/mycare-ai/intake/internal/config"
	"github.com/mycare-ai/intake/internal/interview"
)

// Agent is implemented by every backend.
type Agent interface {
	Send(ctx context.Context, req interview.Request) (interview.Reply, error)
}

// New returns the backend selected by cfg.Backend.
func New(cfg config.AgentConfig) (Agent, error) {
	switch cfg.Backend {
	case config.BackendWebhook:
		if cfg.WebhookURL == "" {
			return nil, fmt.Errorf("webhook backend requires a URL")
		}
		return NewWebhook(cfg.WebhookURL), nil
	case config.BackendLLM:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("llm backend requires an API key")
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = GeminiBaseURL
		}
		client := NewOpenAIClient(cfg.GeminiAPIKey, baseURL)
		return NewLLM(client, cfg.Model, nil, cfg.MaxQuestions), nil
	}
	return nil, fmt.Errorf("unknown agent backend %q", cfg.Backend)
}
