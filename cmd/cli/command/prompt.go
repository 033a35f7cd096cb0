package command

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

var (
	stdinOnce   sync.Once
	stdinReader *bufio.Reader
)

// stdin is shared by prompts and the interactive browser so buffered input is
// never lost between them.
func stdin() *bufio.Reader {
	stdinOnce.Do(func() {
		stdinReader = bufio.NewReader(os.Stdin)
	})
	return stdinReader
}

// readLine reads one line without the trailing newline. io.EOF is returned
// only when nothing was read.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	return strings.TrimRight(line, "\r\n"), err
}

// promptConfirmer asks on the terminal. --yes skips the question.
type promptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
	yes bool
}

func newConfirmer() *promptConfirmer {
	return &promptConfirmer{in: stdin(), out: os.Stdout, yes: assumeYes}
}

func (p *promptConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	if p.yes {
		return true, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fmt.Fprintf(p.out, "%s [y/N]: ", prompt)
	answer, err := readLine(p.in)
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
