package widget

import (
	"math"
	"regexp"
	"strconv"

	"github.com/mycare-ai/intake/internal/question"
)

var (
	unsignedNumber = regexp.MustCompile(`^\d*\.?\d*$`)
	signedNumber   = regexp.MustCompile(`^-?\d*\.?\d*$`)
)

// NumberPicker is a numeric field with increment and decrement.
type NumberPicker struct {
	base
	bounds question.Bounds
	input  string
}

// Input replaces the field contents with s. Non-numeric or out-of-range
// input is rejected and leaves the field unchanged. The empty string is
// always accepted.
func (n *NumberPicker) Input(s string) bool {
	if s == "" {
		n.input = ""
		return true
	}
	pattern := unsignedNumber
	if n.bounds.Min < 0 {
		pattern = signedNumber
	}
	if !pattern.MatchString(s) {
		return false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !n.bounds.Contains(v) {
		return false
	}
	n.input = s
	return true
}

// Text returns the raw field contents.
func (n *NumberPicker) Text() string { return n.input }

// Value returns the parsed field value.
func (n *NumberPicker) Value() (float64, bool) {
	if n.input == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(n.input, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (n *NumberPicker) Bounds() question.Bounds { return n.bounds }

func (n *NumberPicker) Increment() { n.step(1) }
func (n *NumberPicker) Decrement() { n.step(-1) }

func (n *NumberPicker) step(dir float64) {
	cur, ok := n.Value()
	if !ok {
		cur = 0
		if !math.IsInf(n.bounds.Min, 0) {
			cur = n.bounds.Min
		}
	}
	next := n.bounds.Clamp(cur + dir*n.bounds.Step)
	n.input = strconv.FormatFloat(next, 'f', -1, 64)
}

func (n *NumberPicker) CanSubmit() bool {
	v, ok := n.Value()
	return ok && n.bounds.Contains(v)
}

func (n *NumberPicker) Submit() bool {
	if !n.CanSubmit() {
		return false
	}
	v, _ := n.Value()
	n.send(question.NumberAnswer(v))
	return true
}
