package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mycare-ai/intake/internal/config"
	"github.com/mycare-ai/intake/internal/interview"
	"github.com/mycare-ai/intake/internal/question"
)

func TestWebhook_Send(t *testing.T) {
	var got webhookRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, "[{\"output\":\"```json\\n{\\\"finalDiagnosis\\\":\\\"Likely tension headache.\\\"}\\n```\"}]")
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL)
	reply, err := wh.Send(context.Background(), interview.Request{SessionID: "s1", Input: "headache - q1: Yes"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.ChatInput != "headache - q1: Yes" || got.SessionID != "s1" {
		t.Errorf("request = %+v", got)
	}
	if reply.Assessment != "Likely tension headache." {
		t.Errorf("reply = %+v", reply)
	}
}

func TestWebhook_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "workflow failed", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewWebhook(srv.URL).Send(context.Background(), interview.Request{Input: "x"})
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("err = %v, want status error", err)
	}
}

func TestWebhook_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"output":"I am not sure"}]`)
	}))
	defer srv.Close()

	_, err := NewWebhook(srv.URL).Send(context.Background(), interview.Request{Input: "x"})
	if !errors.Is(err, ErrMalformedReply) {
		t.Fatalf("err = %v, want ErrMalformedReply", err)
	}
}

type mockCompleter struct {
	req     openai.ChatCompletionRequest
	content string
	err     error
}

func (m *mockCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.req = req
	if m.err != nil {
		return openai.ChatCompletionResponse{}, m.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Role: "assistant", Content: m.content}}},
	}, nil
}

func answered(n int) []interview.AnsweredQuestion {
	out := make([]interview.AnsweredQuestion, n)
	for i := range out {
		out[i] = interview.AnsweredQuestion{QuestionID: "q", Question: "Fever?", Type: question.TypeYesNo, Answer: question.TextAnswer("No")}
	}
	return out
}

func TestLLM_AsksQuestion(t *testing.T) {
	mc := &mockCompleter{content: "```json\n{\"questionId\":\"q2\",\"question\":\"Where?\",\"type\":\"multiple-choice\",\"options\":[\"Front\",\"Back\"]}\n```"}
	llm := NewLLM(mc, "gemini-1.5-pro", nil, 3)

	reply, err := llm.Send(context.Background(), interview.Request{Subject: "headache", Answers: answered(1)})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply.Question == nil || reply.Question.ID != "q2" {
		t.Fatalf("reply = %+v", reply)
	}

	if mc.req.Model != "gemini-1.5-pro" || mc.req.Temperature != 0.7 || mc.req.TopP != 0.95 || mc.req.MaxTokens != 1024 {
		t.Errorf("request params = model %q temp %v top_p %v max %d", mc.req.Model, mc.req.Temperature, mc.req.TopP, mc.req.MaxTokens)
	}
	// system, complaint, then assistant/user per answer
	if len(mc.req.Messages) != 4 {
		t.Fatalf("messages = %d, want 4", len(mc.req.Messages))
	}
	if mc.req.Messages[1].Content != "User's complaint: headache" {
		t.Errorf("complaint message = %q", mc.req.Messages[1].Content)
	}
	if !strings.Contains(mc.req.Messages[0].Content, "Ask at most 3 questions") {
		t.Errorf("system prompt missing question cap: %q", mc.req.Messages[0].Content)
	}
}

func TestLLM_FinalAssessmentAfterCap(t *testing.T) {
	mc := &mockCompleter{content: `{"finalDiagnosis":"Tension headache","recommendations":["Rest"]}`}
	llm := NewLLM(mc, "m", nil, 2)

	reply, err := llm.Send(context.Background(), interview.Request{Subject: "headache", Answers: answered(2)})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply.Assessment != "Tension headache" {
		t.Errorf("reply = %+v", reply)
	}
	if !strings.Contains(mc.req.Messages[0].Content, "preliminary assessment") {
		t.Errorf("system prompt did not request assessment: %q", mc.req.Messages[0].Content)
	}
}

func TestLLM_Errors(t *testing.T) {
	mc := &mockCompleter{err: errors.New("quota exceeded")}
	if _, err := NewLLM(mc, "m", nil, 0).Send(context.Background(), interview.Request{}); err == nil {
		t.Error("expected completion error")
	}

	mc = &mockCompleter{content: "I can't answer that."}
	if _, err := NewLLM(mc, "m", nil, 0).Send(context.Background(), interview.Request{}); !errors.Is(err, ErrMalformedReply) {
		t.Errorf("err = %v, want ErrMalformedReply", err)
	}
}

func TestLLM_OpenAICompatibleEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"questionId\":\"q1\",\"question\":\"Age?\",\"type\":\"number-picker\",\"min\":0,\"max\":120}"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	agent, err := New(config.AgentConfig{Backend: config.BackendLLM, BaseURL: srv.URL + "/v1", Model: "m", GeminiAPIKey: "test-key"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	reply, err := agent.Send(context.Background(), interview.Request{Subject: "fever"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply.Question == nil || reply.Question.Type() != question.TypeNumberPicker {
		t.Errorf("reply = %+v", reply)
	}
}

func TestNew_SelectsBackend(t *testing.T) {
	a, err := New(config.AgentConfig{Backend: config.BackendWebhook, WebhookURL: "http://localhost/hook"})
	if err != nil {
		t.Fatalf("New(webhook): %v", err)
	}
	if _, ok := a.(*Webhook); !ok {
		t.Errorf("New(webhook) = %T", a)
	}
	if _, err := New(config.AgentConfig{Backend: config.BackendLLM}); err == nil {
		t.Error("expected error for llm backend without key")
	}
	if _, err := New(config.AgentConfig{Backend: "x"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestDefaultPromptSpec(t *testing.T) {
	spec := DefaultPromptSpec()
	if spec.Style.MaxQuestions != 8 || spec.Style.MaxTokens != 1024 {
		t.Errorf("style = %+v", spec.Style)
	}
	if len(spec.QuestionTypes) == 0 {
		t.Error("no question types in prompt spec")
	}
	for _, qt := range spec.QuestionTypes {
		if question.ParseType(qt.Name) == question.TypeUnsupported {
			t.Errorf("prompt lists unsupported type %q", qt.Name)
		}
	}
	if _, err := ParsePromptSpec([]byte("style: {}")); err == nil {
		t.Error("expected error for spec without system prompt")
	}
}
