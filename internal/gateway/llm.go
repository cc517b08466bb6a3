package gateway

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mycare-ai/intake/internal/interview"
)

// GeminiBaseURL is Gemini's OpenAI-compatible endpoint.
const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// ChatCompleter is the part of the OpenAI client the LLM backend uses.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLM asks a chat model directly for the next question or the assessment.
type LLM struct {
	client       ChatCompleter
	model        string
	prompt       *PromptSpec
	maxQuestions int
}

// NewLLM creates an LLM backend. A nil prompt uses the embedded default.
func NewLLM(client ChatCompleter, model string, prompt *PromptSpec, maxQuestions int) *LLM {
	if prompt == nil {
		prompt = DefaultPromptSpec()
	}
	if maxQuestions <= 0 {
		maxQuestions = prompt.Style.MaxQuestions
	}
	return &LLM{client: client, model: model, prompt: prompt, maxQuestions: maxQuestions}
}

// NewOpenAIClient builds an OpenAI-compatible client for baseURL.
func NewOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

func (l *LLM) Send(ctx context.Context, req interview.Request) (interview.Reply, error) {
	messages := l.prompt.BuildMessages(req, l.maxQuestions)

	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       l.model,
		Messages:    messages,
		Temperature: l.prompt.Style.Temperature,
		TopP:        l.prompt.Style.TopP,
		MaxTokens:   l.prompt.Style.MaxTokens,
	})
	if err != nil {
		return interview.Reply{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return interview.Reply{}, fmt.Errorf("%w: no choices", ErrMalformedReply)
	}

	content := resp.Choices[0].Message.Content
	reply, err := Decode([]byte(content))
	if err != nil {
		slog.Warn("failed to decode model reply", "session_id", req.SessionID, "error", err, "response", truncate(content, 200))
		return interview.Reply{}, err
	}
	return reply, nil
}
