package question

import (
	"encoding/json"
	"math"
)

// Descriptor is a single interview step as produced by the agent.
// Body holds exactly the constraint fields its type requires.
type Descriptor struct {
	ID     string
	Prompt string
	Title  string
	Body   Body
}

// Body is the type-specific part of a Descriptor. The set of
// implementations is closed to this package.
type Body interface {
	Type() Type
	body()
}

// Bounds constrains numeric answers.
type Bounds struct {
	Min  float64
	Max  float64
	Step float64
}

// Contains reports whether v lies within [Min, Max].
func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Clamp forces v into [Min, Max].
func (b Bounds) Clamp(v float64) float64 {
	return math.Min(math.Max(v, b.Min), b.Max)
}

// Snap clamps v and rounds it to the nearest step above Min.
func (b Bounds) Snap(v float64) float64 {
	v = b.Clamp(v)
	if b.Step <= 0 || math.IsInf(b.Min, 0) {
		return v
	}
	n := math.Round((v - b.Min) / b.Step)
	return b.Clamp(b.Min + n*b.Step)
}

type (
	NumberPicker   struct{ Bounds }
	MultipleChoice struct{ Options []string }
	MultiSelect    struct{ Options []string }
	Slider         struct{ Bounds }
	DatePicker     struct{}
	Text           struct{}
	YesNo          struct{}
	Summary        struct{ Text string }
	Unsupported    struct{ Tag string }
)

func (NumberPicker) Type() Type   { return TypeNumberPicker }
func (MultipleChoice) Type() Type { return TypeMultipleChoice }
func (MultiSelect) Type() Type    { return TypeMultiSelect }
func (Slider) Type() Type         { return TypeSlider }
func (DatePicker) Type() Type     { return TypeDate }
func (Text) Type() Type           { return TypeText }
func (YesNo) Type() Type          { return TypeYesNo }
func (Summary) Type() Type        { return TypeSummary }
func (Unsupported) Type() Type    { return TypeUnsupported }

func (NumberPicker) body()   {}
func (MultipleChoice) body() {}
func (MultiSelect) body()    {}
func (Slider) body()         {}
func (DatePicker) body()     {}
func (Text) body()           {}
func (YesNo) body()          {}
func (Summary) body()        {}
func (Unsupported) body()    {}

// Type returns the descriptor's question type.
func (d Descriptor) Type() Type {
	if d.Body == nil {
		return TypeUnsupported
	}
	return d.Body.Type()
}

// Options returns the choices for choice-based types, nil otherwise.
func (d Descriptor) Options() []string {
	switch b := d.Body.(type) {
	case MultipleChoice:
		return b.Options
	case MultiSelect:
		return b.Options
	}
	return nil
}

// Wire is the JSON shape of a question exchanged with the agent and with
// API clients.
type Wire struct {
	QuestionID string   `json:"questionId"`
	Question   string   `json:"question"`
	Text       string   `json:"text,omitempty"`
	Title      string   `json:"title,omitempty"`
	Type       string   `json:"type"`
	Options    []string `json:"options,omitempty"`
	Min        *float64 `json:"min,omitempty"`
	Max        *float64 `json:"max,omitempty"`
	Step       *float64 `json:"step,omitempty"`
	Summary    string   `json:"summary,omitempty"`
}

// FromWire builds a Descriptor, keeping only the fields its type needs.
func FromWire(w Wire) Descriptor {
	prompt := w.Question
	if prompt == "" {
		prompt = w.Text
	}
	d := Descriptor{ID: w.QuestionID, Prompt: prompt, Title: w.Title}

	switch ParseType(w.Type) {
	case TypeNumberPicker:
		d.Body = NumberPicker{bounds(w, math.Inf(-1), math.Inf(1))}
	case TypeMultipleChoice:
		d.Body = MultipleChoice{Options: cloneStrings(w.Options)}
	case TypeMultiSelect:
		d.Body = MultiSelect{Options: cloneStrings(w.Options)}
	case TypeSlider:
		d.Body = Slider{bounds(w, 0, 100)}
	case TypeDate:
		d.Body = DatePicker{}
	case TypeText:
		d.Body = Text{}
	case TypeYesNo:
		d.Body = YesNo{}
	case TypeSummary:
		d.Body = Summary{Text: w.Summary}
	default:
		d.Body = Unsupported{Tag: w.Type}
	}
	return d
}

func bounds(w Wire, defMin, defMax float64) Bounds {
	b := Bounds{Min: defMin, Max: defMax, Step: 1}
	if w.Min != nil {
		b.Min = *w.Min
	}
	if w.Max != nil {
		b.Max = *w.Max
	}
	if w.Step != nil && *w.Step > 0 {
		b.Step = *w.Step
	}
	if b.Min > b.Max {
		b.Min, b.Max = b.Max, b.Min
	}
	return b
}

// Wire returns the canonical wire form of d.
func (d Descriptor) Wire() Wire {
	w := Wire{QuestionID: d.ID, Question: d.Prompt, Title: d.Title, Type: string(d.Type())}
	switch b := d.Body.(type) {
	case NumberPicker:
		setBounds(&w, b.Bounds)
	case Slider:
		setBounds(&w, b.Bounds)
	case MultipleChoice:
		w.Options = cloneStrings(b.Options)
	case MultiSelect:
		w.Options = cloneStrings(b.Options)
	case Summary:
		w.Summary = b.Text
	case Unsupported:
		w.Type = b.Tag
	}
	return w
}

func setBounds(w *Wire, b Bounds) {
	if !math.IsInf(b.Min, 0) {
		w.Min = &b.Min
	}
	if !math.IsInf(b.Max, 0) {
		w.Max = &b.Max
	}
	w.Step = &b.Step
}

func (d Descriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Wire())
}

func (d *Descriptor) UnmarshalJSON(data []byte) error {
	var w Wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*d = FromWire(w)
	return nil
}

// Clone returns a deep copy of d.
func (d Descriptor) Clone() Descriptor {
	switch b := d.Body.(type) {
	case MultipleChoice:
		d.Body = MultipleChoice{Options: cloneStrings(b.Options)}
	case MultiSelect:
		d.Body = MultiSelect{Options: cloneStrings(b.Options)}
	}
	return d
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
