// Package console reads signals typed at the terminal.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"trade-clicker/internal/engine"
	"trade-clicker/internal/state"
	"trade-clicker/pkg/i18n"
)

// Submitter accepts a signal request and blocks until it has been handled.
type Submitter interface {
	Submit(ctx context.Context, req engine.Request) (engine.Result, error)
}

// Console is an interactive prompt loop.
type Console struct {
	in  io.Reader
	out io.Writer
	sub Submitter
	log zerolog.Logger
}

func New(in io.Reader, out io.Writer, sub Submitter, log zerolog.Logger) *Console {
	return &Console{in: in, out: out, sub: sub, log: log.With().Str("component", "console").Logger()}
}

// Run prompts until the input ends or ctx is canceled. Signals are
// case-sensitive; surrounding whitespace is ignored.
func (c *Console) Run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(c.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	for {
		fmt.Fprint(c.out, i18n.M().Prompt)
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.out)
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(c.out)
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			c.handle(ctx, strings.TrimSpace(line))
		}
	}
}

func (c *Console) handle(ctx context.Context, line string) {
	if line == "" {
		return
	}
	sig, err := engine.ParseSignal(line)
	if err != nil {
		fmt.Fprintln(c.out, i18n.M().InvalidSignal)
		return
	}

	res, err := c.sub.Submit(ctx, engine.Request{Signal: sig, Source: engine.SourceConsole})
	if err != nil {
		if errors.Is(err, engine.ErrQueueFull) {
			fmt.Fprintln(c.out, i18n.M().QueueBusy)
			return
		}
		c.log.Error().Err(err).Str("signal", string(sig)).Msg("console signal failed")
		fmt.Fprintf(c.out, i18n.M().SignalFailed+"\n", err, res.Current)
		return
	}
	fmt.Fprintln(c.out, Describe(res))
}

// Describe renders a result as a one-line localized message.
func Describe(res engine.Result) string {
	m := i18n.M()
	switch {
	case res.Changed && res.Previous == state.None:
		return fmt.Sprintf(m.Opened, res.Current)
	case res.Changed && res.Current == state.None:
		return m.Closed
	case res.Changed:
		return fmt.Sprintf(m.Switched, res.Previous, res.Current)
	case res.Signal == engine.SignalClear:
		return m.NothingToClose
	default:
		return fmt.Sprintf(m.AlreadyOpen, res.Current)
	}
}
