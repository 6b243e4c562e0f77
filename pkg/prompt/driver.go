package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// ErrAborted signals the user interrupted a prompt.
var ErrAborted = errors.New("prompt: aborted")

// TextQuestion asks for free text. Check runs on every answer before it is
// accepted; a non-nil error is shown and the question repeats.
type TextQuestion struct {
	Label     string
	Help      string
	Default   string
	Multiline bool
	Check     func(string) error
}

// ConfirmQuestion asks a yes/no question.
type ConfirmQuestion struct {
	Label   string
	Help    string
	Default bool
}

// ChoiceQuestion asks for one or, with Multiple, several of Options.
// Selected holds the indices chosen initially.
type ChoiceQuestion struct {
	Label    string
	Help     string
	Options  []string
	Selected []int
	Multiple bool
}

// Driver is the terminal as the Filler sees it. Choose returns the chosen
// option indices in option order; a single choice yields at most one index.
type Driver interface {
	Text(ctx context.Context, q TextQuestion) (string, error)
	Confirm(ctx context.Context, q ConfirmQuestion) (bool, error)
	Choose(ctx context.Context, q ChoiceQuestion) ([]int, error)
	Info(ctx context.Context, msg string) error
}

// NewSurveyDriver returns a Driver that prompts on the process terminal.
// Info lines go to out, or stdout when nil.
func NewSurveyDriver(out io.Writer) Driver {
	if out == nil {
		out = os.Stdout
	}
	return surveyDriver{out: out}
}

type surveyDriver struct {
	out io.Writer
}

func (d surveyDriver) Text(ctx context.Context, q TextQuestion) (string, error) {
	var p survey.Prompt = &survey.Input{Message: q.Label, Help: q.Help, Default: q.Default}
	if q.Multiline {
		p = &survey.Multiline{Message: q.Label, Help: q.Help, Default: q.Default}
	}
	var opts []survey.AskOpt
	if q.Check != nil {
		check := q.Check
		opts = append(opts, survey.WithValidator(func(ans any) error {
			text, _ := ans.(string)
			return check(text)
		}))
	}
	var answer string
	err := ask(ctx, p, &answer, opts...)
	return answer, err
}

func (d surveyDriver) Confirm(ctx context.Context, q ConfirmQuestion) (bool, error) {
	var answer bool
	err := ask(ctx, &survey.Confirm{Message: q.Label, Help: q.Help, Default: q.Default}, &answer)
	return answer, err
}

// Choose asks survey for option indices directly (survey.OptionAnswer), so
// duplicate labels stay distinguishable.
func (d surveyDriver) Choose(ctx context.Context, q ChoiceQuestion) ([]int, error) {
	if len(q.Options) == 0 {
		return nil, nil
	}
	if q.Multiple {
		p := &survey.MultiSelect{Message: q.Label, Help: q.Help, Options: q.Options}
		if len(q.Selected) > 0 {
			p.Default = pick(q.Options, q.Selected)
		}
		var answers []survey.OptionAnswer
		if err := ask(ctx, p, &answers); err != nil {
			return nil, err
		}
		out := make([]int, 0, len(answers))
		for _, a := range answers {
			out = append(out, a.Index)
		}
		return out, nil
	}

	p := &survey.Select{Message: q.Label, Help: q.Help, Options: q.Options}
	if chosen := pick(q.Options, q.Selected); len(chosen) > 0 {
		p.Default = chosen[0]
	}
	var answer survey.OptionAnswer
	if err := ask(ctx, p, &answer); err != nil {
		return nil, err
	}
	return []int{answer.Index}, nil
}

func (d surveyDriver) Info(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(d.out, msg)
	return err
}

func ask(ctx context.Context, p survey.Prompt, answer any, opts ...survey.AskOpt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := survey.AskOne(p, answer, opts...)
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}

// pick returns the options at the valid indices.
func pick(options []string, indices []int) []string {
	var out []string
	for _, idx := range indices {
		if idx >= 0 && idx < len(options) {
			out = append(out, options[idx])
		}
	}
	return out
}

// positions returns the indices of options present in values.
func positions(options, values []string) []int {
	want := make(map[string]bool, len(values))
	for _, v := range values {
		want[v] = true
	}
	var out []int
	for i, option := range options {
		if want[option] {
			out = append(out, i)
		}
	}
	return out
}
