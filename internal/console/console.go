// Package console is the operator-facing prompt surface. Every component
// that needs a human answer takes a Prompter explicitly; there is no
// package-level reader.
package console

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Prompter asks the operator questions over a line-based interface.
type Prompter interface {
	// Ask prints the prompt and returns one trimmed input line.
	Ask(prompt string) (string, error)
	// WaitForEnter blocks until the operator presses enter.
	WaitForEnter(prompt string) error
	// Say narrates progress without expecting input.
	Say(format string, args ...interface{})
}

// Stdio is a Prompter over arbitrary reader/writer pairs, normally
// os.Stdin/os.Stdout.
type Stdio struct {
	in  *bufio.Reader
	out io.Writer
}

// New returns a Stdio prompter.
func New(in io.Reader, out io.Writer) *Stdio {
	return &Stdio{in: bufio.NewReader(in), out: out}
}

func (s *Stdio) Ask(prompt string) (string, error) {
	fmt.Fprint(s.out, prompt)
	line, err := s.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (s *Stdio) WaitForEnter(prompt string) error {
	_, err := s.Ask(prompt)
	return err
}

func (s *Stdio) Say(format string, args ...interface{}) {
	fmt.Fprintf(s.out, format+"\n", args...)
}

// Decision is the operator's answer to a continue/debug/skip gate.
type Decision int

const (
	DecisionSkip Decision = iota
	DecisionContinue
	DecisionDebug
)

// AskDecision reads a y/d/n style answer. Only the first character counts:
// y continues, d requests a document dump (callers re-ask afterwards),
// anything else skips.
func AskDecision(p Prompter, prompt string) (Decision, error) {
	answer, err := p.Ask(prompt)
	if err != nil {
		return DecisionSkip, err
	}
	answer = strings.ToLower(answer)
	if answer == "" {
		return DecisionSkip, nil
	}
	switch answer[0] {
	case 'y':
		return DecisionContinue, nil
	case 'd':
		return DecisionDebug, nil
	default:
		return DecisionSkip, nil
	}
}

// ChooseIndex presents numbered options and returns the chosen 0-based
// index. An empty answer picks def; out-of-range or non-numeric answers
// re-prompt up to three times before falling back to def.
func ChooseIndex(p Prompter, prompt string, options []string, def int) (int, error) {
	if len(options) == 0 {
		return 0, fmt.Errorf("no options to choose from")
	}
	if def < 0 || def >= len(options) {
		def = 0
	}
	for i, opt := range options {
		p.Say("  %d) %s", i+1, opt)
	}
	for attempt := 0; attempt < 3; attempt++ {
		answer, err := p.Ask(fmt.Sprintf("%s [%d]: ", prompt, def+1))
		if err != nil {
			return def, err
		}
		if answer == "" {
			return def, nil
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		p.Say("1부터 %d 사이의 번호를 입력하세요.", len(options))
	}
	return def, nil
}
