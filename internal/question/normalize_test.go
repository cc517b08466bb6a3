package question

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestNormalize_NumberPicker(t *testing.T) {
	d := Descriptor{ID: "q1", Body: NumberPicker{Bounds{Min: 1, Max: 10, Step: 1}}}

	a, err := Normalize(d, float64(4))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if a.Kind != KindNumber || a.Number != 4 {
		t.Errorf("got %+v, want number 4", a)
	}

	a, err = Normalize(d, "2.5")
	if err != nil {
		t.Fatalf("Normalize(\"2.5\"): %v", err)
	}
	if a.Number != 2.5 {
		t.Errorf("got %v, want 2.5", a.Number)
	}

	for _, bad := range []any{float64(0), float64(11), "abc", true, nil} {
		if _, err := Normalize(d, bad); !errors.Is(err, ErrInvalidAnswer) {
			t.Errorf("Normalize(%v) err = %v, want ErrInvalidAnswer", bad, err)
		}
	}
}

func TestNormalize_SliderSnaps(t *testing.T) {
	d := Descriptor{ID: "q3", Body: Slider{Bounds{Min: 0, Max: 10, Step: 1}}}
	a, err := Normalize(d, 6.6)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if a.Number != 7 {
		t.Errorf("got %v, want 7", a.Number)
	}
	if _, err := Normalize(d, float64(12)); !errors.Is(err, ErrInvalidAnswer) {
		t.Errorf("out of range err = %v, want ErrInvalidAnswer", err)
	}
}

func TestNormalize_MultipleChoice(t *testing.T) {
	d := Descriptor{ID: "q", Body: MultipleChoice{Options: []string{"Sharp", "Dull"}}}
	a, err := Normalize(d, "Dull")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if a.Text != "Dull" {
		t.Errorf("got %q, want Dull", a.Text)
	}
	if _, err := Normalize(d, "dull"); !errors.Is(err, ErrInvalidAnswer) {
		t.Errorf("case mismatch err = %v, want ErrInvalidAnswer", err)
	}
}

func TestNormalize_MultiSelectOrderIndependent(t *testing.T) {
	d := Descriptor{ID: "q", Body: MultiSelect{Options: []string{"fever", "cough", "nausea"}}}

	a1, err := Normalize(d, []any{"nausea", "fever"})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	a2, err := Normalize(d, []string{"fever", "nausea", "fever"})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := []string{"fever", "nausea"}
	if !reflect.DeepEqual(a1.Set, want) || !reflect.DeepEqual(a2.Set, want) {
		t.Errorf("got %v and %v, want %v", a1.Set, a2.Set, want)
	}

	if _, err := Normalize(d, []any{}); !errors.Is(err, ErrInvalidAnswer) {
		t.Errorf("empty set err = %v, want ErrInvalidAnswer", err)
	}
	if _, err := Normalize(d, []any{"rash"}); !errors.Is(err, ErrInvalidAnswer) {
		t.Errorf("unknown option err = %v, want ErrInvalidAnswer", err)
	}
}

func TestNormalize_Date(t *testing.T) {
	d := Descriptor{ID: "q", Body: DatePicker{}}
	for _, in := range []string{"2024-03-05", "2024-03-05T10:00:00Z"} {
		a, err := Normalize(d, in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", in, err)
		}
		if a.Text != "2024-03-05" {
			t.Errorf("Normalize(%q) = %q, want 2024-03-05", in, a.Text)
		}
	}
	if _, err := Normalize(d, "last week"); !errors.Is(err, ErrInvalidAnswer) {
		t.Errorf("err = %v, want ErrInvalidAnswer", err)
	}
}

func TestNormalize_Text(t *testing.T) {
	d := Descriptor{ID: "q", Body: Text{}}
	a, err := Normalize(d, "  since Monday ")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if a.Text != "since Monday" {
		t.Errorf("got %q", a.Text)
	}
	if _, err := Normalize(d, "   "); !errors.Is(err, ErrInvalidAnswer) {
		t.Errorf("blank err = %v, want ErrInvalidAnswer", err)
	}
}

func TestNormalize_YesNoAlwaysString(t *testing.T) {
	d := Descriptor{ID: "q5", Body: YesNo{}}
	cases := map[any]string{"Yes": "Yes", "no": "No", true: "Yes", false: "No", " YES ": "Yes"}
	for in, want := range cases {
		a, err := Normalize(d, in)
		if err != nil {
			t.Fatalf("Normalize(%v): %v", in, err)
		}
		if a.Kind != KindText || a.Text != want {
			t.Errorf("Normalize(%v) = %+v, want text %q", in, a, want)
		}
	}
	b, _ := json.Marshal(TextAnswer("Yes"))
	if string(b) != `"Yes"` {
		t.Errorf("json = %s, want \"Yes\"", b)
	}
}

func TestNormalize_NotAnswerable(t *testing.T) {
	for _, body := range []Body{Summary{Text: "done"}, Unsupported{Tag: "x"}} {
		if _, err := Normalize(Descriptor{ID: "q", Body: body}, "x"); !errors.Is(err, ErrNotAnswerable) {
			t.Errorf("%T err = %v, want ErrNotAnswerable", body, err)
		}
	}
}

func TestAnswerJSON(t *testing.T) {
	tests := []struct {
		in   string
		want Answer
		str  string
	}{
		{`7`, NumberAnswer(7), "7"},
		{`"Yes"`, TextAnswer("Yes"), "Yes"},
		{`["a","b"]`, SetAnswer([]string{"a", "b"}), "a, b"},
	}
	for _, tt := range tests {
		var a Answer
		if err := json.Unmarshal([]byte(tt.in), &a); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tt.in, err)
		}
		if !reflect.DeepEqual(a, tt.want) {
			t.Errorf("Unmarshal(%s) = %+v, want %+v", tt.in, a, tt.want)
		}
		if a.String() != tt.str {
			t.Errorf("String() = %q, want %q", a.String(), tt.str)
		}
	}
	var a Answer
	if err := json.Unmarshal([]byte(`{"x":1}`), &a); err == nil {
		t.Error("expected error for object answer")
	}
}
