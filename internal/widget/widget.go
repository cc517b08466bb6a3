// Package widget holds the headless input controls for interview questions.
// Each control owns its local input state for a single question and emits a
// normalized answer when the user commits.
package widget

import (
	"log/slog"

	"github.com/mycare-ai/intake/internal/question"
)

// EmitFunc receives a committed answer for the question with the given ID.
type EmitFunc func(questionID string, answer question.Answer)

// Widget is the common surface of every control.
type Widget interface {
	Descriptor() question.Descriptor
	// Answerable is false for display-only widgets.
	Answerable() bool
	// CanSubmit reports whether Submit would emit an answer.
	CanSubmit() bool
	// Submit emits the current value if it is valid and reports whether it did.
	Submit() bool
}

// New returns the control for d. Unknown question types yield an
// Unsupported widget rather than an error.
func New(d question.Descriptor, emit EmitFunc) Widget {
	if emit == nil {
		emit = func(string, question.Answer) {}
	}
	b := base{desc: d, emit: emit}

	switch body := d.Body.(type) {
	case question.NumberPicker:
		return &NumberPicker{base: b, bounds: body.Bounds}
	case question.MultipleChoice:
		return &MultipleChoice{base: b, options: body.Options}
	case question.MultiSelect:
		return &MultiSelect{base: b, options: body.Options, selected: make(map[string]bool)}
	case question.Slider:
		return &Slider{base: b, bounds: body.Bounds, value: body.Snap(body.Min)}
	case question.DatePicker:
		return &DatePicker{base: b}
	case question.Text:
		return &TextField{base: b}
	case question.YesNo:
		return &YesNo{base: b}
	case question.Summary:
		return &SummaryView{base: b, text: body.Text}
	case question.Unsupported:
		return newUnsupported(b, body.Tag)
	}
	return newUnsupported(b, string(d.Type()))
}

type base struct {
	desc question.Descriptor
	emit EmitFunc
}

func (b *base) Descriptor() question.Descriptor { return b.desc }
func (b *base) Answerable() bool                { return true }

func (b *base) send(a question.Answer) {
	b.emit(b.desc.ID, a)
}

// Renderer keeps the widget for the current interview turn. A new turn or a
// different question discards the previous widget and its input state.
type Renderer struct {
	emit    EmitFunc
	turn    int
	current Widget
}

func NewRenderer(emit EmitFunc) *Renderer {
	return &Renderer{emit: emit, turn: -1}
}

// Bind returns the widget for d at the given turn. A nil descriptor clears
// the renderer.
func (r *Renderer) Bind(turn int, d *question.Descriptor) Widget {
	if d == nil {
		r.turn, r.current = turn, nil
		return nil
	}
	if r.current != nil && r.turn == turn && r.current.Descriptor().ID == d.ID {
		return r.current
	}
	r.turn = turn
	r.current = New(d.Clone(), r.emit)
	slog.Debug("widget bound", "turn", turn, "question_id", d.ID, "type", d.Type())
	return r.current
}

// Current returns the bound widget, or nil.
func (r *Renderer) Current() Widget {
	return r.current
}
