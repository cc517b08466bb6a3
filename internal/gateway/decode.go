package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mycare-ai/intake/internal/interview"
	"github.com/mycare-ai/intake/internal/question"
)

var ErrMalformedReply = errors.New("malformed agent reply")

// replyWire is the union of the question and assessment reply shapes.
type replyWire struct {
	question.Wire
	ID              string   `json:"id"`
	FinalDiagnosis  string   `json:"finalDiagnosis"`
	Diagnosis       string   `json:"diagnosis"`
	Recommendations []string `json:"recommendations"`
}

// Decode turns a raw agent payload into a Reply. The payload may be wrapped
// in one array and/or an {"output": ...} envelope, and the JSON itself may be
// surrounded by markdown code fences or prose.
func Decode(raw []byte) (interview.Reply, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return interview.Reply{}, fmt.Errorf("%w: empty body", ErrMalformedReply)
	}
	// Fences may sit around the envelope, inside it, or both.
	text = stripFences(unwrap(stripFences(text)))

	var w replyWire
	if err := json.Unmarshal([]byte(text), &w); err != nil {
		first := strings.Index(text, "{")
		last := strings.LastIndex(text, "}")
		if first < 0 || last <= first {
			return interview.Reply{}, fmt.Errorf("%w: %v", ErrMalformedReply, err)
		}
		w = replyWire{}
		if err2 := json.Unmarshal([]byte(text[first:last+1]), &w); err2 != nil {
			return interview.Reply{}, fmt.Errorf("%w: %v", ErrMalformedReply, err)
		}
	}
	return classify(w)
}

func classify(w replyWire) (interview.Reply, error) {
	diagnosis := strings.TrimSpace(w.FinalDiagnosis)
	if diagnosis == "" {
		diagnosis = strings.TrimSpace(w.Diagnosis)
	}
	if diagnosis != "" {
		return interview.Reply{Assessment: diagnosis, Recommendations: w.Recommendations}, nil
	}

	if w.Type == "" && w.Question == "" && w.Text == "" {
		return interview.Reply{}, fmt.Errorf("%w: neither a question nor a diagnosis", ErrMalformedReply)
	}
	qw := w.Wire
	if qw.QuestionID == "" {
		qw.QuestionID = w.ID
	}
	if qw.QuestionID == "" {
		qw.QuestionID = "q"
	}
	if qw.Type == "" {
		qw.Type = string(question.TypeText)
	}
	d := question.FromWire(qw)
	return interview.Reply{Question: &d}, nil
}

func unwrap(text string) string {
	if strings.HasPrefix(text, "[") {
		var items []json.RawMessage
		if err := json.Unmarshal([]byte(text), &items); err == nil && len(items) > 0 {
			text = strings.TrimSpace(string(items[0]))
			var s string
			if json.Unmarshal(items[0], &s) == nil {
				return strings.TrimSpace(s)
			}
		}
	}
	if strings.HasPrefix(text, "{") {
		var env map[string]json.RawMessage
		if err := json.Unmarshal([]byte(text), &env); err == nil {
			if out, ok := env["output"]; ok {
				var s string
				if json.Unmarshal(out, &s) == nil {
					return strings.TrimSpace(s)
				}
				return strings.TrimSpace(string(out))
			}
		}
	}
	return text
}

func stripFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```JSON", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}
