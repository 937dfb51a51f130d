// Package lineui is a plain line-oriented chat host for terminals without a
// full TUI (pipes, dumb terminals, --plain).
package lineui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/wschat/pkg/chatview"
	"github.com/go-go-golems/wschat/pkg/transport"
)

type lineInput struct{ value string }

func (l *lineInput) Value() string { return l.value }
func (l *lineInput) Reset()        { l.value = "" }

// printer writes entries that have not been printed yet.
type printer struct {
	mu      sync.Mutex
	out     io.Writer
	log     *chatview.Log
	printed int
}

func (p *printer) ScrollToNewest() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.log.Since(p.printed) {
		fmt.Fprintln(p.out, FormatEntry(e))
		p.printed++
	}
}

// FormatEntry renders one entry as a single prefixed block of plain text.
func FormatEntry(e chatview.Entry) string {
	var label string
	switch e.Role {
	case chatview.RoleUser:
		label = "you"
	case chatview.RoleAssistant:
		label = "assistant"
	default:
		label = "system"
	}
	text := chatview.PlainText(e.Text)
	return fmt.Sprintf("[%s] %s", label, strings.ReplaceAll(text, "\n", "\n    "))
}

// Session multiplexes typed lines and connection events on one goroutine.
type Session struct {
	ctrl    *chatview.Controller
	input   *lineInput
	printer *printer
	events  *transport.EventChannel
	out     io.Writer
}

func NewSession(l *chatview.Log, sender chatview.Sender, events *transport.EventChannel, out io.Writer) *Session {
	in := &lineInput{}
	p := &printer{out: out, log: l}
	return &Session{
		ctrl:    chatview.NewController(l, in, sender, p),
		input:   in,
		printer: p,
		events:  events,
		out:     out,
	}
}

func (s *Session) Controller() *chatview.Controller { return s.ctrl }

// Loop consumes lines until the channel closes, ctx ends, or the connection
// has closed and its notice has been printed.
func (s *Session) Loop(ctx context.Context, lines <-chan string) error {
	var evCh <-chan transport.Event
	if s.events != nil {
		evCh = s.events.Events()
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			s.input.value = line
			if _, err := s.ctrl.Submit(); err != nil {
				fmt.Fprintf(s.out, "! not sent: %s\n", errors.Cause(err))
			}
		case ev := <-evCh:
			ev.Deliver(s.ctrl)
			if ev.Kind == transport.EventClose {
				return nil
			}
		}
	}
}

// Run reads lines with readline until EOF, interrupt or connection close.
func Run(ctx context.Context, s *Session, prompt string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return errors.Wrap(err, "init readline")
	}
	defer func() { _ = rl.Close() }()

	// entries are printed through readline so the prompt is redrawn
	s.out = rl.Stdout()
	s.printer.mu.Lock()
	s.printer.out = rl.Stdout()
	s.printer.mu.Unlock()

	lines := make(chan string)
	go func() {
		defer close(lines)
		for {
			line, err := rl.Readline()
			if err != nil {
				if !errors.Is(err, readline.ErrInterrupt) && !errors.Is(err, io.EOF) {
					log.Warn().Err(err).Str("component", "lineui").Msg("readline failed")
				}
				return
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()

	return s.Loop(ctx, lines)
}
