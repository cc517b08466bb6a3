package tui

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mycare-ai/intake/internal/question"
	"github.com/mycare-ai/intake/internal/widget"
)

const sliderWidth = 24

// WidgetView draws a question widget and maps key presses onto it.
type WidgetView struct {
	w      widget.Widget
	cursor int
	input  textinput.Model
	err    string
	now    func() time.Time
}

func NewWidgetView(w widget.Widget) *WidgetView {
	v := &WidgetView{w: w, now: time.Now}
	ti := textinput.New()
	ti.CharLimit = 200
	ti.Width = 40
	switch w.(type) {
	case *widget.NumberPicker:
		ti.Placeholder = "Enter a number"
		ti.CharLimit = 24
		ti.Focus()
	case *widget.DatePicker:
		ti.Placeholder = question.DateLayout
		ti.CharLimit = len(question.DateLayout)
		ti.SetValue(v.now().Format(question.DateLayout))
		ti.Focus()
	case *widget.TextField:
		ti.Placeholder = "Type your answer"
		ti.Focus()
	}
	v.input = ti
	return v
}

func (v *WidgetView) Widget() widget.Widget { return v.w }

// Answerable reports whether the view takes keyboard input.
func (v *WidgetView) Answerable() bool { return v.w.Answerable() }

func (v *WidgetView) Update(msg tea.KeyMsg) (*WidgetView, tea.Cmd) {
	v.err = ""
	key := msg.String()

	switch w := v.w.(type) {
	case *widget.NumberPicker:
		switch key {
		case "up", "+":
			w.Increment()
			v.syncInput(w.Text())
		case "down":
			w.Decrement()
			v.syncInput(w.Text())
		case "enter":
			if !w.Submit() {
				b := w.Bounds()
				v.err = fmt.Sprintf("Enter a number between %s and %s", formatBound(b.Min), formatBound(b.Max))
			}
		default:
			prev := v.input.Value()
			var cmd tea.Cmd
			v.input, cmd = v.input.Update(msg)
			switch val := v.input.Value(); {
			case w.Input(val):
			case val == "-" && w.Bounds().Min < 0:
				// a lone sign is kept as a draft until a digit follows
				w.Input("")
			default:
				v.syncInput(prev)
			}
			return v, cmd
		}

	case *widget.MultipleChoice:
		opts := w.Options()
		switch key {
		case "up", "k":
			v.move(-1, len(opts))
		case "down", "j":
			v.move(1, len(opts))
		case "enter", " ":
			if len(opts) > 0 {
				w.Select(opts[v.cursor])
			}
		default:
			if i, ok := optionIndex(key, len(opts)); ok {
				v.cursor = i
				w.Select(opts[i])
			}
		}

	case *widget.MultiSelect:
		opts := w.Options()
		switch key {
		case "up", "k":
			v.move(-1, len(opts))
		case "down", "j":
			v.move(1, len(opts))
		case " ", "x":
			if len(opts) > 0 {
				w.Toggle(opts[v.cursor])
			}
		case "enter":
			if !w.Submit() {
				v.err = "Select at least one option"
			}
		default:
			if i, ok := optionIndex(key, len(opts)); ok {
				v.cursor = i
				w.Toggle(opts[i])
			}
		}

	case *widget.Slider:
		switch key {
		case "left", "h", "-":
			w.Nudge(-1)
		case "right", "l", "+":
			w.Nudge(1)
		case "home":
			w.Set(w.Bounds().Min)
		case "end":
			w.Set(w.Bounds().Max)
		case "enter":
			w.Commit()
		}

	case *widget.DatePicker:
		switch key {
		case "up":
			v.shiftDate(1)
		case "down":
			v.shiftDate(-1)
		case "enter":
			t, err := question.ParseDate(v.input.Value())
			if err != nil {
				v.err = "Enter a date as " + question.DateLayout
				return v, nil
			}
			w.Pick(t)
		default:
			var cmd tea.Cmd
			v.input, cmd = v.input.Update(msg)
			return v, cmd
		}

	case *widget.TextField:
		if key == "enter" {
			w.SetInput(v.input.Value())
			if !w.Submit() {
				v.err = "Answer cannot be empty"
			}
			return v, nil
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		w.SetInput(v.input.Value())
		return v, cmd

	case *widget.YesNo:
		switch key {
		case "y", "Y":
			v.cursor = 0
			w.Choose(true)
		case "n", "N":
			v.cursor = 1
			w.Choose(false)
		case "left", "right", "h", "l", "tab":
			v.cursor = 1 - v.cursor
		case "enter", " ":
			w.Choose(v.cursor == 0)
		}
	}
	return v, nil
}

func (v *WidgetView) move(delta, n int) {
	if n == 0 {
		return
	}
	v.cursor = (v.cursor + delta + n) % n
}

func (v *WidgetView) syncInput(s string) {
	v.input.SetValue(s)
	v.input.CursorEnd()
}

func (v *WidgetView) shiftDate(days int) {
	t, err := question.ParseDate(v.input.Value())
	if err != nil {
		t = v.now()
	}
	v.syncInput(t.AddDate(0, 0, days).Format(question.DateLayout))
}

// optionIndex maps the keys 1-9 to option positions.
func optionIndex(key string, n int) (int, bool) {
	i, err := strconv.Atoi(key)
	if err != nil || i < 1 || i > n || i > 9 {
		return 0, false
	}
	return i - 1, true
}

func formatBound(v float64) string {
	if math.IsInf(v, 0) {
		if v < 0 {
			return "-∞"
		}
		return "∞"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (v *WidgetView) View() string {
	d := v.w.Descriptor()
	var b strings.Builder
	if d.Title != "" {
		b.WriteString(titleStyle.Render(d.Title))
		b.WriteString("\n")
	}
	if d.Prompt != "" {
		b.WriteString(userStyle.Render(d.Prompt))
		b.WriteString("\n\n")
	}

	switch w := v.w.(type) {
	case *widget.NumberPicker:
		bnds := w.Bounds()
		b.WriteString(v.input.View())
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(fmt.Sprintf("range %s to %s, step %s  ↑/↓ adjust  enter submit",
			formatBound(bnds.Min), formatBound(bnds.Max), formatBound(bnds.Step))))

	case *widget.MultipleChoice:
		for i, opt := range w.Options() {
			b.WriteString(v.optionLine(i, opt, opt == w.Chosen(), "( )", "(•)"))
		}
		b.WriteString(mutedStyle.Render("↑/↓ move  enter select"))

	case *widget.MultiSelect:
		for i, opt := range w.Options() {
			b.WriteString(v.optionLine(i, opt, w.IsSelected(opt), "[ ]", "[x]"))
		}
		hint := "↑/↓ move  space toggle  enter submit"
		if !w.CanSubmit() {
			hint = "↑/↓ move  space toggle  (select at least one)"
		}
		b.WriteString(mutedStyle.Render(hint))

	case *widget.Slider:
		bnds := w.Bounds()
		b.WriteString(renderSlider(bnds, w.Value()))
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("←/→ adjust  enter submit"))

	case *widget.DatePicker:
		b.WriteString(v.input.View())
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("↑/↓ change day  enter submit"))

	case *widget.TextField:
		b.WriteString(v.input.View())
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("enter submit"))

	case *widget.YesNo:
		yes, no := "  Yes  ", "  No  "
		if v.cursor == 0 {
			yes = cursorStyle.Render("[ Yes ]")
		} else {
			no = cursorStyle.Render("[ No ]")
		}
		b.WriteString(yes + "   " + no + "\n")
		b.WriteString(mutedStyle.Render("y/n or ←/→ then enter"))

	case *widget.SummaryView:
		b.WriteString(w.Text())

	case *widget.Unsupported:
		b.WriteString(errorStyle.Render(w.Message()))
	}

	if v.err != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(v.err))
	}
	return questionBox.Render(b.String())
}

func (v *WidgetView) optionLine(i int, opt string, on bool, offMark, onMark string) string {
	mark := offMark
	label := opt
	if on {
		mark = onMark
		label = selectedStyle.Render(opt)
	}
	prefix := "  "
	if i == v.cursor {
		prefix = cursorStyle.Render("> ")
	}
	return fmt.Sprintf("%s%s %s\n", prefix, mark, label)
}

func renderSlider(b question.Bounds, value float64) string {
	pos := 0
	if span := b.Max - b.Min; span > 0 {
		pos = int(math.Round((value - b.Min) / span * float64(sliderWidth-1)))
	}
	bar := strings.Repeat("─", pos) + cursorStyle.Render("●") + strings.Repeat("─", sliderWidth-1-pos)
	return fmt.Sprintf("%s %s %s  %s", formatBound(b.Min), bar, formatBound(b.Max), titleStyle.Render(formatBound(value)))
}
