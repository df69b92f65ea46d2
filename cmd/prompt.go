package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// readPassword and isTerminal are swapped out in tests.
var (
	readPassword = term.ReadPassword
	isTerminal   = func(fd uintptr) bool {
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
)

// terminalPrompter reads answers from the runner's input. It satisfies
// services.Prompter.
type terminalPrompter struct {
	in     io.Reader
	reader *bufio.Reader
	out    io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *terminalPrompter {
	return &terminalPrompter{in: in, reader: bufio.NewReader(in), out: out}
}

// Prompt prints label and reads a single line. If EOF occurs after some
// input was read, the partial line is returned.
func (p *terminalPrompter) Prompt(label string) (string, error) {
	if _, err := fmt.Fprint(p.out, label); err != nil {
		return "", err
	}
	line, err := p.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Secret reads without echo when input is a terminal and falls back to
// [terminalPrompter.Prompt] otherwise.
func (p *terminalPrompter) Secret(label string) (string, error) {
	f, ok := p.in.(*os.File)
	if !ok || !isTerminal(f.Fd()) {
		return p.Prompt(label)
	}

	if _, err := fmt.Fprint(p.out, label); err != nil {
		return "", err
	}
	b, err := readPassword(int(f.Fd()))
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
