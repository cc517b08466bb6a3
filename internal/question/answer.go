package question

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// AnswerKind identifies the shape of an Answer value.
type AnswerKind int

const (
	KindText AnswerKind = iota
	KindNumber
	KindSet
)

// Answer is a normalized answer. Only the field matching Kind is set.
type Answer struct {
	Kind   AnswerKind
	Text   string
	Number float64
	Set    []string
}

func TextAnswer(s string) Answer      { return Answer{Kind: KindText, Text: s} }
func NumberAnswer(v float64) Answer   { return Answer{Kind: KindNumber, Number: v} }
func SetAnswer(items []string) Answer { return Answer{Kind: KindSet, Set: cloneStrings(items)} }

// String renders the answer for transcripts.
func (a Answer) String() string {
	switch a.Kind {
	case KindNumber:
		return strconv.FormatFloat(a.Number, 'f', -1, 64)
	case KindSet:
		return strings.Join(a.Set, ", ")
	}
	return a.Text
}

// Value returns the answer as a plain Go value suitable for JSON encoding.
func (a Answer) Value() any {
	switch a.Kind {
	case KindNumber:
		return a.Number
	case KindSet:
		if a.Set == nil {
			return []string{}
		}
		return a.Set
	}
	return a.Text
}

func (a Answer) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Value())
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case string:
		*a = TextAnswer(t)
	case float64:
		*a = NumberAnswer(t)
	case []any:
		set := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("answer set item %v is not a string", item)
			}
			set = append(set, s)
		}
		*a = Answer{Kind: KindSet, Set: set}
	default:
		return fmt.Errorf("unsupported answer value %s", string(data))
	}
	return nil
}
