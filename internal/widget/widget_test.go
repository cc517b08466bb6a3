package widget

import (
	"reflect"
	"testing"
	"time"

	"github.com/mycare-ai/intake/internal/question"
)

type emitted struct {
	id     string
	answer question.Answer
}

type recorder struct {
	got []emitted
}

func (r *recorder) emit(id string, a question.Answer) {
	r.got = append(r.got, emitted{id, a})
}

func (r *recorder) last(t *testing.T) emitted {
	t.Helper()
	if len(r.got) == 0 {
		t.Fatal("nothing emitted")
	}
	return r.got[len(r.got)-1]
}

func TestNew_Dispatch(t *testing.T) {
	tests := []struct {
		body question.Body
		want any
	}{
		{question.NumberPicker{Bounds: question.Bounds{Min: 0, Max: 1, Step: 1}}, &NumberPicker{}},
		{question.MultipleChoice{Options: []string{"a"}}, &MultipleChoice{}},
		{question.MultiSelect{Options: []string{"a"}}, &MultiSelect{}},
		{question.Slider{Bounds: question.Bounds{Min: 0, Max: 1, Step: 1}}, &Slider{}},
		{question.DatePicker{}, &DatePicker{}},
		{question.Text{}, &TextField{}},
		{question.YesNo{}, &YesNo{}},
		{question.Summary{Text: "x"}, &SummaryView{}},
		{question.Unsupported{Tag: "rating"}, &Unsupported{}},
	}
	for _, tt := range tests {
		w := New(question.Descriptor{ID: "q", Body: tt.body}, nil)
		if reflect.TypeOf(w) != reflect.TypeOf(tt.want) {
			t.Errorf("New(%T) = %T, want %T", tt.body, w, tt.want)
		}
	}
}

func TestNumberPicker_RejectsBadInput(t *testing.T) {
	rec := &recorder{}
	w := New(question.Descriptor{ID: "q1", Body: question.NumberPicker{Bounds: question.Bounds{Min: 1, Max: 10, Step: 1}}}, rec.emit).(*NumberPicker)

	if !w.Input("5") {
		t.Fatal("Input(5) rejected")
	}
	for _, bad := range []string{"abc", "11", "0", "-1", "1.2.3", "."} {
		if w.Input(bad) {
			t.Errorf("Input(%q) accepted", bad)
		}
		if w.Text() != "5" {
			t.Errorf("after Input(%q) text = %q, want 5", bad, w.Text())
		}
	}
	if !w.Input("") {
		t.Error("empty input rejected")
	}
	if w.CanSubmit() {
		t.Error("CanSubmit true for empty input")
	}
	if w.Submit() {
		t.Error("Submit emitted for empty input")
	}
	if len(rec.got) != 0 {
		t.Fatalf("emitted %v", rec.got)
	}

	w.Input("7.5")
	if !w.Submit() {
		t.Fatal("Submit failed")
	}
	got := rec.last(t)
	if got.id != "q1" || got.answer.Kind != question.KindNumber || got.answer.Number != 7.5 {
		t.Errorf("emitted %+v", got)
	}
}

func TestNumberPicker_NegativeOnlyWhenAllowed(t *testing.T) {
	w := New(question.Descriptor{ID: "q", Body: question.NumberPicker{Bounds: question.Bounds{Min: -5, Max: 5, Step: 1}}}, nil).(*NumberPicker)
	if !w.Input("-3") {
		t.Error("Input(-3) rejected with negative min")
	}
}

func TestNumberPicker_IncrementDecrementClamped(t *testing.T) {
	w := New(question.Descriptor{ID: "q", Body: question.NumberPicker{Bounds: question.Bounds{Min: 2, Max: 6, Step: 3}}}, nil).(*NumberPicker)

	w.Increment()
	if w.Text() != "5" {
		t.Errorf("after Increment from empty = %q, want 5", w.Text())
	}
	w.Increment()
	if w.Text() != "6" {
		t.Errorf("Increment not clamped: %q", w.Text())
	}
	w.Decrement()
	w.Decrement()
	if w.Text() != "2" {
		t.Errorf("Decrement not clamped: %q", w.Text())
	}
}

func TestNumberPicker_EmitsWithinBounds(t *testing.T) {
	rec := &recorder{}
	b := question.Bounds{Min: 0, Max: 120, Step: 7}
	w := New(question.Descriptor{ID: "q", Body: question.NumberPicker{Bounds: b}}, rec.emit).(*NumberPicker)
	for i := 0; i < 40; i++ {
		if i%3 == 0 {
			w.Decrement()
		} else {
			w.Increment()
		}
		w.Input([]string{"abc", "999", "33", "-1", "120"}[i%5])
		w.Submit()
	}
	for _, e := range rec.got {
		if !b.Contains(e.answer.Number) {
			t.Errorf("emitted %v outside bounds", e.answer.Number)
		}
	}
}

func TestMultipleChoice_EmitsOnSelect(t *testing.T) {
	rec := &recorder{}
	w := New(question.Descriptor{ID: "q2", Body: question.MultipleChoice{Options: []string{"Sharp", "Dull"}}}, rec.emit).(*MultipleChoice)

	if w.Select("Burning") {
		t.Error("Select accepted unknown option")
	}
	if !w.Select("Dull") {
		t.Fatal("Select(Dull) failed")
	}
	got := rec.last(t)
	if got.id != "q2" || got.answer.Text != "Dull" {
		t.Errorf("emitted %+v", got)
	}
}

func TestMultiSelect_SubmitDisabledWhenEmpty(t *testing.T) {
	rec := &recorder{}
	w := New(question.Descriptor{ID: "q", Body: question.MultiSelect{Options: []string{"fever", "cough", "nausea"}}}, rec.emit).(*MultiSelect)

	if w.CanSubmit() || w.Submit() {
		t.Fatal("submit enabled with nothing selected")
	}
	w.Toggle("nausea")
	w.Toggle("fever")
	if !w.CanSubmit() {
		t.Fatal("submit disabled with selections")
	}
	w.Toggle("fever")
	w.Toggle("nausea")
	if w.CanSubmit() {
		t.Fatal("submit enabled after untoggling everything")
	}

	w.Toggle("nausea")
	w.Toggle("fever")
	w.Submit()
	want := []string{"fever", "nausea"}
	if got := rec.last(t).answer.Set; !reflect.DeepEqual(got, want) {
		t.Errorf("emitted %v, want %v", got, want)
	}
}

func TestSlider_CommitEmitsValue(t *testing.T) {
	rec := &recorder{}
	d := question.FromWire(question.Wire{QuestionID: "q3", Question: "Pain level?", Type: "slider", Min: ptr(0), Max: ptr(10), Step: ptr(1)})
	w := New(d, rec.emit).(*Slider)

	if w.Value() != 0 {
		t.Errorf("initial value = %v, want min", w.Value())
	}
	w.Set(7)
	w.Commit()
	got := rec.last(t)
	if got.id != "q3" || got.answer.Number != 7 {
		t.Errorf("emitted %+v, want (q3, 7)", got)
	}

	w.Set(42)
	if w.Value() != 10 {
		t.Errorf("Set(42) = %v, want 10", w.Value())
	}
	w.Nudge(-3)
	if w.Value() != 7 {
		t.Errorf("Nudge(-3) = %v, want 7", w.Value())
	}
}

func TestDatePicker_FormatsISO(t *testing.T) {
	rec := &recorder{}
	w := New(question.Descriptor{ID: "q", Body: question.DatePicker{}}, rec.emit).(*DatePicker)
	if w.CanSubmit() {
		t.Error("CanSubmit before a date is picked")
	}
	w.Pick(time.Date(2024, time.March, 5, 13, 0, 0, 0, time.UTC))
	if got := rec.last(t).answer.Text; got != "2024-03-05" {
		t.Errorf("emitted %q, want 2024-03-05", got)
	}
}

func TestTextField_TrimsAndRejectsBlank(t *testing.T) {
	rec := &recorder{}
	w := New(question.Descriptor{ID: "q", Body: question.Text{}}, rec.emit).(*TextField)
	w.SetInput("   ")
	if w.Submit() {
		t.Error("blank input submitted")
	}
	w.SetInput("  two days ")
	w.Submit()
	if got := rec.last(t).answer.Text; got != "two days" {
		t.Errorf("emitted %q", got)
	}
}

func TestYesNo_EmitsLiteralStrings(t *testing.T) {
	rec := &recorder{}
	w := New(question.Descriptor{ID: "q5", Body: question.YesNo{}}, rec.emit).(*YesNo)
	w.Choose(true)
	got := rec.last(t)
	if got.id != "q5" || got.answer.Kind != question.KindText || got.answer.Text != "Yes" {
		t.Errorf("emitted %+v, want (q5, \"Yes\")", got)
	}
	w.Choose(false)
	if rec.last(t).answer.Text != "No" {
		t.Errorf("emitted %+v, want No", rec.last(t))
	}
}

func TestDisplayOnlyWidgets(t *testing.T) {
	rec := &recorder{}
	s := New(question.Descriptor{ID: "q", Body: question.Summary{}}, rec.emit).(*SummaryView)
	if s.Text() != "No summary provided." {
		t.Errorf("Text() = %q", s.Text())
	}
	u := New(question.Descriptor{ID: "q", Body: question.Unsupported{Tag: "rating"}}, rec.emit).(*Unsupported)
	if u.Message() != "Unsupported question type: rating" {
		t.Errorf("Message() = %q", u.Message())
	}
	for _, w := range []Widget{s, u} {
		if w.Answerable() || w.CanSubmit() || w.Submit() {
			t.Errorf("%T should not be answerable", w)
		}
	}
	if len(rec.got) != 0 {
		t.Errorf("display widgets emitted %v", rec.got)
	}
}

func TestRenderer_ResetsStatePerTurn(t *testing.T) {
	r := NewRenderer(nil)
	d := question.Descriptor{ID: "q1", Body: question.Text{}}

	w := r.Bind(1, &d).(*TextField)
	w.SetInput("draft")
	if again := r.Bind(1, &d); again != w {
		t.Fatal("same turn rebuilt the widget")
	}

	next := r.Bind(2, &d).(*TextField)
	if next == w || next.Input() != "" {
		t.Errorf("new turn kept input %q", next.Input())
	}

	if r.Bind(3, nil) != nil || r.Current() != nil {
		t.Error("nil descriptor did not clear renderer")
	}
}

func ptr(v float64) *float64 { return &v }
