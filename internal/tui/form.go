package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type formField struct {
	Key      string
	Label    string
	Value    string
	Password bool
}

// form is a stack of text inputs with tab focus cycling. It does not handle
// enter or esc; the owning screen does.
type form struct {
	fields []formField
	inputs []textinput.Model
	focus  int
}

func newForm(fields ...formField) *form {
	inputs := make([]textinput.Model, 0, len(fields))
	for i, f := range fields {
		inp := textinput.New()
		inp.Prompt = f.Label + ": "
		inp.SetValue(f.Value)
		if f.Password {
			inp.EchoMode = textinput.EchoPassword
			inp.EchoCharacter = '•'
		}
		if i == 0 {
			inp.Focus()
		}
		inputs = append(inputs, inp)
	}
	return &form{fields: fields, inputs: inputs}
}

func (f *form) Update(msg tea.Msg) tea.Cmd {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "tab", "shift+tab", "down", "up":
			dir := 1
			if km.String() == "shift+tab" || km.String() == "up" {
				dir = -1
			}
			f.inputs[f.focus].Blur()
			f.focus = (f.focus + dir + len(f.inputs)) % len(f.inputs)
			return f.inputs[f.focus].Focus()
		}
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f *form) Value(key string) string {
	for i, fd := range f.fields {
		if fd.Key == key {
			return f.inputs[i].Value()
		}
	}
	return ""
}

func (f *form) SetValue(key, value string) {
	for i, fd := range f.fields {
		if fd.Key == key {
			f.inputs[i].SetValue(value)
		}
	}
}

// FocusKey moves focus to the named field.
func (f *form) FocusKey(key string) {
	for i, fd := range f.fields {
		if fd.Key == key {
			f.inputs[f.focus].Blur()
			f.focus = i
			f.inputs[i].Focus()
		}
	}
}

func (f *form) View() string {
	lines := make([]string, 0, len(f.inputs))
	for _, in := range f.inputs {
		lines = append(lines, in.View())
	}
	return strings.Join(lines, "\n")
}
