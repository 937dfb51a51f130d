package lineui

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/wschat/pkg/chatview"
	"github.com/go-go-golems/wschat/pkg/transport"
)

type fakeSender struct {
	frames []string
	err    error
}

func (f *fakeSender) Send(text string) error {
	if f.err != nil {
		return f.err
	}
	f.frames = append(f.frames, text)
	return nil
}

func TestLoopSubmitsLinesAndPrintsEntries(t *testing.T) {
	var out bytes.Buffer
	snd := &fakeSender{}
	l := chatview.NewLog()
	s := NewSession(l, snd, nil, &out)

	lines := make(chan string, 3)
	lines <- "hello"
	lines <- "   "
	lines <- "second\nline"
	close(lines)

	require.NoError(t, s.Loop(context.Background(), lines))
	require.Equal(t, []string{"hello", "second\nline"}, snd.frames)
	require.Equal(t, "[you] hello\n[you] second\n    line\n", out.String())
}

func TestLoopReportsSendFailure(t *testing.T) {
	var out bytes.Buffer
	s := NewSession(chatview.NewLog(), &fakeSender{err: transport.ErrNotOpen}, nil, &out)

	lines := make(chan string, 1)
	lines <- "early"
	close(lines)

	require.NoError(t, s.Loop(context.Background(), lines))
	require.Contains(t, out.String(), "[you] early\n")
	require.Contains(t, out.String(), "! not sent: "+transport.ErrNotOpen.Error())
}

func TestLoopStopsAfterClose(t *testing.T) {
	var out bytes.Buffer
	events := transport.NewEventChannel(8)
	defer events.Stop()
	s := NewSession(chatview.NewLog(), &fakeSender{}, events, &out)

	events.OnOpen()
	events.OnMessage("\x1b[1mhi\x1b[0m")
	events.OnError(errors.New("boom"))
	events.OnClose()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Loop(ctx, make(chan string)))

	require.Equal(t,
		"[assistant] hi\n[system] "+chatview.ErrorNoticeText+"\n[system] "+chatview.ClosedNoticeText+"\n",
		out.String())
}

func TestLoopHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewSession(chatview.NewLog(), &fakeSender{}, nil, &bytes.Buffer{})
	require.ErrorIs(t, s.Loop(ctx, make(chan string)), context.Canceled)
}

func TestFormatEntry(t *testing.T) {
	require.Equal(t, "[system] x", FormatEntry(chatview.Entry{Role: chatview.RoleSystem, Text: "x\x07"}))
	require.Equal(t, "[assistant] a\n    b", FormatEntry(chatview.Entry{Role: chatview.RoleAssistant, Text: "a\r\nb"}))
}
