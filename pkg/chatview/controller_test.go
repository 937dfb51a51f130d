package chatview

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeInput struct{ value string }

func (f *fakeInput) Value() string { return f.value }
func (f *fakeInput) Reset()        { f.value = "" }

type fakeSender struct {
	frames []string
	err    error
	// logLen records how many entries existed when each frame was sent.
	logLen []int
	log    *Log
}

func (f *fakeSender) Send(text string) error {
	if f.err != nil {
		return f.err
	}
	f.frames = append(f.frames, text)
	if f.log != nil {
		f.logLen = append(f.logLen, f.log.Len())
	}
	return nil
}

type countingScroller struct{ n int }

func (s *countingScroller) ScrollToNewest() { s.n++ }

func newTestController() (*Controller, *fakeInput, *fakeSender, *countingScroller) {
	l := NewLog()
	in := &fakeInput{}
	snd := &fakeSender{log: l}
	sc := &countingScroller{}
	return NewController(l, in, snd, sc), in, snd, sc
}

func TestSubmitIgnoresBlankInput(t *testing.T) {
	for _, v := range []string{"", "   ", "\t\n "} {
		c, in, snd, sc := newTestController()
		in.value = v

		submitted, err := c.Submit()
		require.NoError(t, err)
		require.False(t, submitted)
		require.Equal(t, 0, c.Log().Len())
		require.Empty(t, snd.frames)
		require.Equal(t, 0, sc.n)
		require.Equal(t, v, in.value)
	}
}

func TestSubmitEchoesThenSends(t *testing.T) {
	c, in, snd, sc := newTestController()
	in.value = "hello"

	submitted, err := c.Submit()
	require.NoError(t, err)
	require.True(t, submitted)

	entries := c.Log().Entries()
	require.Len(t, entries, 1)
	require.Equal(t, RoleUser, entries[0].Role)
	require.Equal(t, "hello", entries[0].Text)

	require.Equal(t, []string{"hello"}, snd.frames)
	// the local echo was already in the log when the frame went out
	require.Equal(t, []int{1}, snd.logLen)
	require.Equal(t, 1, sc.n)
	require.Equal(t, "", in.value)
}

func TestSubmitTrimsInput(t *testing.T) {
	c, in, snd, _ := newTestController()
	in.value = "  spaced out \n"

	_, err := c.Submit()
	require.NoError(t, err)
	require.Equal(t, []string{"spaced out"}, snd.frames)
	require.Equal(t, "spaced out", c.Log().Entries()[0].Text)
}

func TestSubmitKeepsInputWhenSendFails(t *testing.T) {
	c, in, snd, _ := newTestController()
	snd.err = errors.New("not open")
	in.value = "retry me"

	submitted, err := c.Submit()
	require.True(t, submitted)
	require.Error(t, err)
	require.ErrorIs(t, err, snd.err)
	require.Equal(t, "retry me", in.value)

	entries := c.Log().Entries()
	require.Len(t, entries, 1)
	require.Equal(t, RoleUser, entries[0].Role)
}

func TestRapidSubmissionsKeepOrder(t *testing.T) {
	c, in, snd, _ := newTestController()
	for i := 0; i < 5; i++ {
		in.value = fmt.Sprintf("msg %d", i)
		_, err := c.Submit()
		require.NoError(t, err)
	}
	require.Equal(t, []string{"msg 0", "msg 1", "msg 2", "msg 3", "msg 4"}, snd.frames)
}

func TestInboundRenderedInArrivalOrder(t *testing.T) {
	c, _, _, sc := newTestController()
	in := []string{"m1", "m2", "<b>m3</b>", "m4"}
	for _, m := range in {
		c.OnMessage(m)
	}

	var got []string
	for _, e := range c.Log().Entries() {
		require.Equal(t, RoleAssistant, e.Role)
		got = append(got, e.Text)
	}
	require.Equal(t, in, got)
	require.Equal(t, len(in), sc.n)
}

func TestErrorNoticeOncePerEvent(t *testing.T) {
	c, _, _, _ := newTestController()
	c.OnError(errors.New("boom"))
	require.Equal(t, 1, c.Log().Len())
	c.OnError(errors.New("boom again"))

	entries := c.Log().Entries()
	require.Len(t, entries, 2)
	for _, e := range entries {
		require.Equal(t, RoleSystem, e.Role)
		require.Equal(t, ErrorNoticeText, e.Text)
	}
}

func TestCloseNotice(t *testing.T) {
	c, _, _, _ := newTestController()
	c.OnOpen()
	require.Equal(t, 0, c.Log().Len())

	c.OnClose()
	entries := c.Log().Entries()
	require.Len(t, entries, 1)
	require.Equal(t, RoleSystem, entries[0].Role)
	require.Equal(t, ClosedNoticeText, entries[0].Text)
}

func TestUnknownNoticeIsIgnored(t *testing.T) {
	c, _, _, _ := newTestController()
	c.RenderSystemNotice(NoticeKind("reconnected"))
	require.Equal(t, 0, c.Log().Len())
}

func TestSubmitWithoutSender(t *testing.T) {
	l := NewLog()
	in := &fakeInput{value: "hi"}
	c := NewController(l, in, nil, nil)

	_, err := c.Submit()
	require.Error(t, err)
	require.Equal(t, "hi", in.value)

	snd := &fakeSender{}
	c.SetSender(snd)
	_, err = c.Submit()
	require.NoError(t, err)
	require.Equal(t, []string{"hi"}, snd.frames)
	require.Equal(t, 1, l.Len())
}

func TestResubmitAfterFailedSendDoesNotDuplicateEntry(t *testing.T) {
	c, in, snd, _ := newTestController()
	snd.err = errors.New("not open")
	in.value = "retry me"

	for i := 0; i < 3; i++ {
		_, err := c.Submit()
		require.Error(t, err)
	}
	require.Equal(t, 1, c.Log().Len())

	snd.err = nil
	_, err := c.Submit()
	require.NoError(t, err)
	require.Equal(t, []string{"retry me"}, snd.frames)
	require.Equal(t, 1, c.Log().Len())
	require.Equal(t, "", in.value)

	// the same text after a successful send is a new message
	in.value = "retry me"
	_, err = c.Submit()
	require.NoError(t, err)
	require.Equal(t, 2, c.Log().Len())
	require.Equal(t, []string{"retry me", "retry me"}, snd.frames)
}

func TestEditedTextAfterFailedSendIsNewEntry(t *testing.T) {
	c, in, snd, _ := newTestController()
	snd.err = errors.New("not open")
	in.value = "first"
	_, err := c.Submit()
	require.Error(t, err)

	snd.err = nil
	in.value = "first, edited"
	_, err = c.Submit()
	require.NoError(t, err)

	var texts []string
	for _, e := range c.Log().Entries() {
		texts = append(texts, e.Text)
	}
	require.Equal(t, []string{"first", "first, edited"}, texts)
}
