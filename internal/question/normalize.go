package question

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidAnswer = errors.New("invalid answer")
	ErrNotAnswerable = errors.New("question does not accept answers")
)

// DateLayout is the canonical date answer format.
const DateLayout = "2006-01-02"

// Normalize validates raw against d's constraints and returns the canonical
// answer. raw is a decoded JSON value or a plain Go string, number, bool or
// string slice.
func Normalize(d Descriptor, raw any) (Answer, error) {
	switch b := d.Body.(type) {
	case NumberPicker:
		v, err := toNumber(raw)
		if err != nil {
			return Answer{}, err
		}
		if !b.Contains(v) {
			return Answer{}, invalid("%v is outside [%v, %v]", v, b.Min, b.Max)
		}
		return NumberAnswer(v), nil

	case Slider:
		v, err := toNumber(raw)
		if err != nil {
			return Answer{}, err
		}
		if !b.Contains(v) {
			return Answer{}, invalid("%v is outside [%v, %v]", v, b.Min, b.Max)
		}
		return NumberAnswer(b.Snap(v)), nil

	case MultipleChoice:
		s, ok := raw.(string)
		if !ok {
			return Answer{}, invalid("expected a string, got %T", raw)
		}
		if !contains(b.Options, s) {
			return Answer{}, invalid("%q is not one of the options", s)
		}
		return TextAnswer(s), nil

	case MultiSelect:
		picked, err := toStrings(raw)
		if err != nil {
			return Answer{}, err
		}
		seen := make(map[string]bool, len(picked))
		for _, p := range picked {
			if !contains(b.Options, p) {
				return Answer{}, invalid("%q is not one of the options", p)
			}
			seen[p] = true
		}
		var out []string
		for _, opt := range b.Options {
			if seen[opt] {
				out = append(out, opt)
				delete(seen, opt)
			}
		}
		if len(out) == 0 {
			return Answer{}, invalid("at least one option must be selected")
		}
		return SetAnswer(out), nil

	case DatePicker:
		s, ok := raw.(string)
		if !ok {
			return Answer{}, invalid("expected a date string, got %T", raw)
		}
		t, err := ParseDate(s)
		if err != nil {
			return Answer{}, err
		}
		return TextAnswer(t.Format(DateLayout)), nil

	case Text:
		s, ok := raw.(string)
		if !ok {
			return Answer{}, invalid("expected a string, got %T", raw)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return Answer{}, invalid("answer is empty")
		}
		return TextAnswer(s), nil

	case YesNo:
		switch v := raw.(type) {
		case bool:
			return TextAnswer(yesNo(v)), nil
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "yes":
				return TextAnswer("Yes"), nil
			case "no":
				return TextAnswer("No"), nil
			}
		}
		return Answer{}, invalid("expected Yes or No, got %v", raw)
	}
	return Answer{}, ErrNotAnswerable
}

// ParseDate accepts yyyy-MM-dd or RFC3339.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, invalid("%q is not a date", s)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func toNumber(raw any) (float64, error) {
	var v float64
	switch n := raw.(type) {
	case float64:
		v = n
	case float32:
		v = float64(n)
	case int:
		v = float64(n)
	case int64:
		v = float64(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, invalid("%q is not a number", n)
		}
		v = f
	default:
		return 0, invalid("expected a number, got %T", raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, invalid("%v is not a finite number", v)
	}
	return v, nil
}

func toStrings(raw any) ([]string, error) {
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, invalid("option %v is not a string", item)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		return []string{v}, nil
	}
	return nil, invalid("expected a list of options, got %T", raw)
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidAnswer, fmt.Sprintf(format, args...))
}
