package gateway

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"gopkg.in/yaml.v3"

	"github.com/mycare-ai/intake/internal/interview"
)

//go:embed prompts/interview.yaml
var defaultPromptYAML []byte

// PromptSpec is the interview prompt loaded from YAML.
type PromptSpec struct {
	System         string `yaml:"system"`
	QuestionFormat string `yaml:"question_format"`
	QuestionTypes  []struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
	} `yaml:"question_types"`
	Assessment string `yaml:"assessment"`
	Style      struct {
		Temperature  float32 `yaml:"temperature"`
		TopP         float32 `yaml:"top_p"`
		MaxTokens    int     `yaml:"max_tokens"`
		MaxQuestions int     `yaml:"max_questions"`
	} `yaml:"style"`
}

// ParsePromptSpec parses a YAML prompt spec and fills unset style values.
func ParsePromptSpec(data []byte) (*PromptSpec, error) {
	var spec PromptSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing prompt spec: %w", err)
	}
	if strings.TrimSpace(spec.System) == "" {
		return nil, fmt.Errorf("prompt spec has no system prompt")
	}
	if spec.Style.Temperature <= 0 {
		spec.Style.Temperature = 0.7
	}
	if spec.Style.TopP <= 0 {
		spec.Style.TopP = 0.95
	}
	if spec.Style.MaxTokens <= 0 {
		spec.Style.MaxTokens = 1024
	}
	if spec.Style.MaxQuestions <= 0 {
		spec.Style.MaxQuestions = 8
	}
	return &spec, nil
}

// DefaultPromptSpec returns the embedded interview prompt.
func DefaultPromptSpec() *PromptSpec {
	spec, err := ParsePromptSpec(defaultPromptYAML)
	if err != nil {
		panic(err)
	}
	return spec
}

// BuildMessages renders the chat messages for req. Once maxQuestions
// answers have been collected the model is asked for the final assessment.
func (p *PromptSpec) BuildMessages(req interview.Request, maxQuestions int) []openai.ChatCompletionMessage {
	if maxQuestions <= 0 {
		maxQuestions = p.Style.MaxQuestions
	}
	final := len(req.Answers) >= maxQuestions

	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(p.System))
	if final {
		sb.WriteString("\n\n")
		sb.WriteString(strings.TrimSpace(p.Assessment))
	} else {
		fmt.Fprintf(&sb, "\n\nAsk at most %d questions in total. When you have enough information, or after the last question, reply with the final assessment instead: {\"finalDiagnosis\": \"...\", \"recommendations\": [\"...\"]}.", maxQuestions)
		sb.WriteString("\n\nQuestion types:\n")
		for _, t := range p.QuestionTypes {
			fmt.Fprintf(&sb, "- %s: %s\n", t.Name, t.Description)
		}
		sb.WriteString("\nExample questions:\n")
		sb.WriteString(strings.TrimSpace(p.QuestionFormat))
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: sb.String()},
		{Role: openai.ChatMessageRoleUser, Content: "User's complaint: " + req.Subject},
	}
	for _, aq := range req.Answers {
		q, _ := json.Marshal(map[string]any{
			"questionId": aq.QuestionID,
			"question":   aq.Question,
			"type":       aq.Type,
			"options":    aq.Options,
		})
		messages = append(messages,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: string(q)},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: aq.Answer.String()},
		)
	}
	return messages
}
