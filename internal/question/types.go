package question

import "strings"

// Type is the closed set of question kinds the interview can render.
type Type string

const (
	TypeNumberPicker   Type = "number-picker"
	TypeMultipleChoice Type = "multiple-choice"
	TypeMultiSelect    Type = "multi-select"
	TypeSlider         Type = "slider"
	TypeDate           Type = "date"
	TypeText           Type = "text"
	TypeYesNo          Type = "yes-no"
	TypeSummary        Type = "summary"

	// TypeUnsupported marks a tag the renderer does not know.
	TypeUnsupported Type = "unsupported"
)

var typeAliases = map[string]Type{
	"number-picker":   TypeNumberPicker,
	"number":          TypeNumberPicker,
	"multiple-choice": TypeMultipleChoice,
	"multi-select":    TypeMultiSelect,
	"checkbox":        TypeMultiSelect,
	"slider":          TypeSlider,
	"date":            TypeDate,
	"date-picker":     TypeDate,
	"text":            TypeText,
	"yes-no":          TypeYesNo,
	"yes_no":          TypeYesNo,
	"summary":         TypeSummary,
}

// ParseType maps a raw type tag to a Type. Matching is case-insensitive.
// Unknown tags return TypeUnsupported.
func ParseType(tag string) Type {
	if t, ok := typeAliases[strings.ToLower(strings.TrimSpace(tag))]; ok {
		return t
	}
	return TypeUnsupported
}

// Answerable reports whether a question of this type accepts an answer.
func (t Type) Answerable() bool {
	switch t {
	case TypeSummary, TypeUnsupported:
		return false
	}
	return true
}
