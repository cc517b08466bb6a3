package widget

import "github.com/mycare-ai/intake/internal/question"

// Slider holds a value that is always within bounds and on the step grid.
// It emits on Commit, which corresponds to releasing the handle.
type Slider struct {
	base
	bounds question.Bounds
	value  float64
}

func (s *Slider) Bounds() question.Bounds { return s.bounds }
func (s *Slider) Value() float64          { return s.value }

func (s *Slider) Set(v float64) {
	s.value = s.bounds.Snap(v)
}

// Nudge moves the handle by dir steps.
func (s *Slider) Nudge(dir int) {
	s.Set(s.value + float64(dir)*s.bounds.Step)
}

func (s *Slider) Commit() bool {
	s.send(question.NumberAnswer(s.value))
	return true
}

func (s *Slider) CanSubmit() bool { return true }
func (s *Slider) Submit() bool    { return s.Commit() }
