// Package prompt asks the operator for missing values. Commands never block
// on input when stdin is not a terminal or prompting is disabled.
package prompt

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// ErrCancelled is returned when the operator aborts a prompt.
var ErrCancelled = errors.New("cancelled by operator")

// Option is a labelled choice for Select.
type Option struct {
	Label string
	Value string
}

// Prompter collects operator input. Each method returns def unchanged when
// no interactive input is available.
type Prompter interface {
	Input(title, def string) (string, error)
	Select(title string, options []Option, def string) (string, error)
	Confirm(title string, def bool) (bool, error)
	// Lines reads a comma-separated list.
	Lines(title string, def []string) ([]string, error)
	// Interactive reports whether the operator can be asked at all.
	Interactive() bool
}

// New returns an interactive prompter when stdin is a terminal and noPrompt
// is false, and a non-interactive one otherwise.
func New(noPrompt bool) Prompter {
	if noPrompt || !term.IsTerminal(int(os.Stdin.Fd())) {
		return Static{}
	}
	return &Form{}
}

// Static answers every prompt with its default.
type Static struct{}

func (Static) Input(_, def string) (string, error)                     { return def, nil }
func (Static) Select(_ string, _ []Option, def string) (string, error) { return def, nil }
func (Static) Confirm(_ string, def bool) (bool, error)                { return def, nil }
func (Static) Lines(_ string, def []string) ([]string, error)          { return def, nil }
func (Static) Interactive() bool                                       { return false }

// Form prompts through huh forms.
type Form struct{}

func run(field huh.Field) error {
	err := huh.NewForm(huh.NewGroup(field)).WithTheme(huh.ThemeDracula()).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrCancelled
	}
	if err != nil {
		return fmt.Errorf("prompt: %w", err)
	}
	return nil
}

func (*Form) Input(title, def string) (string, error) {
	value := def
	if err := run(huh.NewInput().Title(title).Placeholder(def).Value(&value)); err != nil {
		return "", err
	}
	if strings.TrimSpace(value) == "" {
		return def, nil
	}
	return strings.TrimSpace(value), nil
}

func (*Form) Select(title string, options []Option, def string) (string, error) {
	value := def
	opts := make([]huh.Option[string], 0, len(options))
	for _, o := range options {
		opts = append(opts, huh.NewOption(o.Label, o.Value))
	}
	if err := run(huh.NewSelect[string]().Title(title).Options(opts...).Value(&value)); err != nil {
		return "", err
	}
	return value, nil
}

func (*Form) Confirm(title string, def bool) (bool, error) {
	value := def
	if err := run(huh.NewConfirm().Title(title).Affirmative("Yes").Negative("No").Value(&value)); err != nil {
		return false, err
	}
	return value, nil
}

func (f *Form) Lines(title string, def []string) ([]string, error) {
	raw, err := f.Input(title+" (comma-separated)", strings.Join(def, ", "))
	if err != nil {
		return nil, err
	}
	return SplitList(raw), nil
}

func (*Form) Interactive() bool { return true }

// SplitList splits a comma-separated answer, dropping blank entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
