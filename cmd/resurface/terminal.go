package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/conorfennell/resurface/internal/domain"
	"github.com/conorfennell/resurface/internal/review"
)

// terminal rates items by prompting on a line-oriented console.
type terminal struct {
	in   *bufio.Scanner
	out  io.Writer
	quit context.CancelFunc
}

func newTerminal(in io.Reader, out io.Writer, quit context.CancelFunc) *terminal {
	return &terminal{in: bufio.NewScanner(in), out: out, quit: quit}
}

func (t *terminal) readLine() (string, error) {
	if !t.in.Scan() {
		if err := t.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(t.in.Text()), nil
}

// Rate shows the question, waits for Enter, shows the answer and reads a
// grade. Typing q, or reaching end of input, cancels the session.
func (t *terminal) Rate(ctx context.Context, item domain.ReviewItem) (domain.Quality, error) {
	fmt.Fprintln(t.out)
	if item.Context != "" {
		fmt.Fprintf(t.out, "[%s]\n", item.Context)
	}
	fmt.Fprintf(t.out, "Q: %s\n", item.Question)
	fmt.Fprint(t.out, "(Enter to show the answer, q to quit) ")
	line, err := t.readLine()
	if err != nil || line == "q" {
		return 0, t.stop(err)
	}

	fmt.Fprintf(t.out, "A: %s\n", item.Answer)
	for {
		fmt.Fprint(t.out, "Grade 1-5 (1 blackout, 3 hard recall, 5 perfect): ")
		line, err := t.readLine()
		if err != nil || line == "q" {
			return 0, t.stop(err)
		}
		quality, err := review.ParseQuality(line)
		if err == nil {
			return quality, nil
		}
		fmt.Fprintln(t.out, err)
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
	}
}

func (t *terminal) stop(err error) error {
	t.quit()
	if err == nil || errors.Is(err, io.EOF) {
		return context.Canceled
	}
	return err
}
