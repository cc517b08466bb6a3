package widget

import (
	"log/slog"
	"strings"
	"time"

	"github.com/mycare-ai/intake/internal/question"
)

// DatePicker emits the picked date as yyyy-MM-dd.
type DatePicker struct {
	base
	picked time.Time
}

func (d *DatePicker) Pick(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	d.picked = t
	d.send(question.TextAnswer(t.Format(question.DateLayout)))
	return true
}

// Picked returns the chosen date, or the zero time.
func (d *DatePicker) Picked() time.Time { return d.picked }

func (d *DatePicker) CanSubmit() bool { return !d.picked.IsZero() }

func (d *DatePicker) Submit() bool {
	if d.picked.IsZero() {
		return false
	}
	return d.Pick(d.picked)
}

// TextField is a free-text input with explicit submit.
type TextField struct {
	base
	input string
}

func (t *TextField) SetInput(s string) { t.input = s }
func (t *TextField) Input() string     { return t.input }

func (t *TextField) CanSubmit() bool { return strings.TrimSpace(t.input) != "" }

func (t *TextField) Submit() bool {
	if !t.CanSubmit() {
		return false
	}
	t.send(question.TextAnswer(strings.TrimSpace(t.input)))
	return true
}

// SummaryView displays text and never emits.
type SummaryView struct {
	base
	text string
}

func (s *SummaryView) Text() string {
	if s.text == "" {
		return "No summary provided."
	}
	return s.text
}

func (s *SummaryView) Answerable() bool { return false }
func (s *SummaryView) CanSubmit() bool  { return false }
func (s *SummaryView) Submit() bool     { return false }

// Unsupported is the inline placeholder for a type the renderer does not know.
type Unsupported struct {
	base
	tag string
}

func newUnsupported(b base, tag string) *Unsupported {
	slog.Warn("unsupported question type", "question_id", b.desc.ID, "type", tag)
	return &Unsupported{base: b, tag: tag}
}

func (u *Unsupported) Message() string {
	return "Unsupported question type: " + u.tag
}

func (u *Unsupported) Answerable() bool { return false }
func (u *Unsupported) CanSubmit() bool  { return false }
func (u *Unsupported) Submit() bool     { return false }
