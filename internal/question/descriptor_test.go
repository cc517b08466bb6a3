package question

import (
	"encoding/json"
	"math"
	"testing"
)

func decodeWire(t *testing.T, raw string) Descriptor {
	t.Helper()
	var d Descriptor
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		t.Fatalf("Unmarshal(%s): %v", raw, err)
	}
	return d
}

func TestParseType(t *testing.T) {
	tests := []struct {
		tag  string
		want Type
	}{
		{"number-picker", TypeNumberPicker},
		{"Number-Picker", TypeNumberPicker},
		{"multiple-choice", TypeMultipleChoice},
		{"multi-select", TypeMultiSelect},
		{"checkbox", TypeMultiSelect},
		{"SLIDER", TypeSlider},
		{"date", TypeDate},
		{"date-picker", TypeDate},
		{"text", TypeText},
		{"yes-no", TypeYesNo},
		{"yes_no", TypeYesNo},
		{" summary ", TypeSummary},
		{"rating", TypeUnsupported},
		{"", TypeUnsupported},
	}
	for _, tt := range tests {
		if got := ParseType(tt.tag); got != tt.want {
			t.Errorf("ParseType(%q) = %q, want %q", tt.tag, got, tt.want)
		}
	}
}

func TestFromWire_Slider(t *testing.T) {
	d := decodeWire(t, `{"questionId":"q3","question":"Pain level?","type":"slider","min":0,"max":10,"step":1}`)

	if d.ID != "q3" || d.Prompt != "Pain level?" {
		t.Fatalf("got id=%q prompt=%q", d.ID, d.Prompt)
	}
	s, ok := d.Body.(Slider)
	if !ok {
		t.Fatalf("body = %T, want Slider", d.Body)
	}
	if s.Min != 0 || s.Max != 10 || s.Step != 1 {
		t.Errorf("bounds = %+v, want [0,10] step 1", s.Bounds)
	}
}

func TestFromWire_SliderDefaults(t *testing.T) {
	d := decodeWire(t, `{"questionId":"q","question":"?","type":"slider"}`)
	s := d.Body.(Slider)
	if s.Min != 0 || s.Max != 100 || s.Step != 1 {
		t.Errorf("bounds = %+v, want [0,100] step 1", s.Bounds)
	}
}

func TestFromWire_NumberPickerUnbounded(t *testing.T) {
	d := decodeWire(t, `{"questionId":"q","question":"Age?","type":"number-picker","step":0}`)
	n := d.Body.(NumberPicker)
	if !math.IsInf(n.Min, -1) || !math.IsInf(n.Max, 1) {
		t.Errorf("bounds = %+v, want unbounded", n.Bounds)
	}
	if n.Step != 1 {
		t.Errorf("step = %v, want 1", n.Step)
	}
}

func TestFromWire_InvertedBoundsSwapped(t *testing.T) {
	d := decodeWire(t, `{"questionId":"q","question":"?","type":"number-picker","min":10,"max":1}`)
	n := d.Body.(NumberPicker)
	if n.Min != 1 || n.Max != 10 {
		t.Errorf("bounds = %+v, want [1,10]", n.Bounds)
	}
}

func TestFromWire_DropsUnrelatedFields(t *testing.T) {
	d := decodeWire(t, `{"questionId":"q","question":"Fever?","type":"yes-no","options":["a"],"min":1,"summary":"x"}`)
	if _, ok := d.Body.(YesNo); !ok {
		t.Fatalf("body = %T, want YesNo", d.Body)
	}
	w := d.Wire()
	if w.Options != nil || w.Min != nil || w.Summary != "" {
		t.Errorf("wire kept unrelated fields: %+v", w)
	}
}

func TestFromWire_TextAlias(t *testing.T) {
	d := decodeWire(t, `{"questionId":"q","text":"Describe it","type":"text"}`)
	if d.Prompt != "Describe it" {
		t.Errorf("Prompt = %q, want %q", d.Prompt, "Describe it")
	}
}

func TestFromWire_UnsupportedKeepsTag(t *testing.T) {
	d := decodeWire(t, `{"questionId":"q","question":"?","type":"rating"}`)
	u, ok := d.Body.(Unsupported)
	if !ok {
		t.Fatalf("body = %T, want Unsupported", d.Body)
	}
	if u.Tag != "rating" {
		t.Errorf("Tag = %q, want rating", u.Tag)
	}
	if d.Wire().Type != "rating" {
		t.Errorf("Wire().Type = %q, want rating", d.Wire().Type)
	}
	if d.Type().Answerable() {
		t.Error("unsupported type should not be answerable")
	}
}

func TestClone_OptionsIndependent(t *testing.T) {
	d := decodeWire(t, `{"questionId":"q","question":"?","type":"multi-select","options":["a","b"]}`)
	c := d.Clone()
	c.Body.(MultiSelect).Options[0] = "z"
	if d.Options()[0] != "a" {
		t.Error("Clone shares options with the original")
	}
}

func TestBoundsSnap(t *testing.T) {
	b := Bounds{Min: 0, Max: 10, Step: 2}
	tests := []struct{ in, want float64 }{
		{3.1, 4},
		{2.9, 2},
		{-5, 0},
		{11, 10},
	}
	for _, tt := range tests {
		if got := b.Snap(tt.in); got != tt.want {
			t.Errorf("Snap(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
