package widget

import "github.com/mycare-ai/intake/internal/question"

// MultipleChoice emits as soon as an option is selected.
type MultipleChoice struct {
	base
	options []string
	chosen  string
}

func (m *MultipleChoice) Options() []string { return m.options }
func (m *MultipleChoice) Chosen() string    { return m.chosen }

// Select chooses opt and emits it. Unknown options are ignored.
func (m *MultipleChoice) Select(opt string) bool {
	if !hasOption(m.options, opt) {
		return false
	}
	m.chosen = opt
	m.send(question.TextAnswer(opt))
	return true
}

func (m *MultipleChoice) CanSubmit() bool { return m.chosen != "" }

func (m *MultipleChoice) Submit() bool {
	if m.chosen == "" {
		return false
	}
	m.send(question.TextAnswer(m.chosen))
	return true
}

// MultiSelect collects independent toggles and emits on explicit submit.
type MultiSelect struct {
	base
	options  []string
	selected map[string]bool
}

func (m *MultiSelect) Options() []string { return m.options }

// Toggle flips opt. Unknown options are ignored.
func (m *MultiSelect) Toggle(opt string) bool {
	if !hasOption(m.options, opt) {
		return false
	}
	if m.selected[opt] {
		delete(m.selected, opt)
	} else {
		m.selected[opt] = true
	}
	return true
}

func (m *MultiSelect) IsSelected(opt string) bool { return m.selected[opt] }

// Selected returns the active toggles in options order.
func (m *MultiSelect) Selected() []string {
	var out []string
	for _, opt := range m.options {
		if m.selected[opt] {
			out = append(out, opt)
		}
	}
	return out
}

func (m *MultiSelect) CanSubmit() bool { return len(m.selected) > 0 }

func (m *MultiSelect) Submit() bool {
	if !m.CanSubmit() {
		return false
	}
	m.send(question.SetAnswer(m.Selected()))
	return true
}

// YesNo emits the literal "Yes" or "No" on click.
type YesNo struct {
	base
	chosen *bool
}

func (y *YesNo) Choose(yes bool) bool {
	y.chosen = &yes
	if yes {
		y.send(question.TextAnswer("Yes"))
	} else {
		y.send(question.TextAnswer("No"))
	}
	return true
}

func (y *YesNo) CanSubmit() bool { return y.chosen != nil }

func (y *YesNo) Submit() bool {
	if y.chosen == nil {
		return false
	}
	return y.Choose(*y.chosen)
}

func hasOption(options []string, opt string) bool {
	for _, o := range options {
		if o == opt {
			return true
		}
	}
	return false
}
