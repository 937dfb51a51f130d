package chatview

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type NoticeKind string

const (
	NoticeError  NoticeKind = "error"
	NoticeClosed NoticeKind = "closed"
)

const (
	ErrorNoticeText  = "WebSocket error occurred."
	ClosedNoticeText = "Connection closed."
)

func (k NoticeKind) Text() string {
	switch k {
	case NoticeError:
		return ErrorNoticeText
	case NoticeClosed:
		return ClosedNoticeText
	default:
		return ""
	}
}

// Input is the single-line text field the user types into.
type Input interface {
	Value() string
	Reset()
}

// Sender forwards one outbound frame.
type Sender interface {
	Send(text string) error
}

// Scroller brings the newest entry into view.
type Scroller interface {
	ScrollToNewest()
}

// ScrollerFunc adapts a plain function to Scroller.
type ScrollerFunc func()

func (f ScrollerFunc) ScrollToNewest() { f() }

// Controller bridges user input and connection events to the Log. It is not
// safe for concurrent use: hosts call it from their UI goroutine only.
type Controller struct {
	log      *Log
	input    Input
	sender   Sender
	scroller Scroller
	logger   zerolog.Logger

	// unsent is the text of the last submission whose send failed. It is
	// already in the log, so resubmitting it only retries the send.
	unsent string
}

func NewController(l *Log, input Input, sender Sender, scroller Scroller) *Controller {
	if scroller == nil {
		scroller = ScrollerFunc(func() {})
	}
	return &Controller{
		log:      l,
		input:    input,
		sender:   sender,
		scroller: scroller,
		logger:   log.With().Str("component", "chatview").Logger(),
	}
}

func (c *Controller) Log() *Log { return c.log }

// SetSender replaces the outbound path, for hosts that create the
// connection after the controller.
func (c *Controller) SetSender(s Sender) { c.sender = s }

// Submit sends the current input. It returns false without touching anything
// when the trimmed input is empty. The user entry is appended and scrolled
// into view before the frame is handed to the sender; the input is cleared
// only when the send was accepted. Resubmitting text whose send just failed
// retries the send without a second entry.
func (c *Controller) Submit() (bool, error) {
	text := strings.TrimSpace(c.input.Value())
	if text == "" {
		return false, nil
	}

	if text != c.unsent {
		c.log.Append(RoleUser, text)
		c.scroller.ScrollToNewest()
	}

	if c.sender == nil {
		err := errors.New("chatview: no connection")
		c.logger.Warn().Err(err).Msg("submit without sender")
		c.unsent = text
		return true, err
	}
	if err := c.sender.Send(text); err != nil {
		c.logger.Warn().Err(err).Int("bytes", len(text)).Msg("send failed")
		c.unsent = text
		return true, errors.Wrap(err, "send")
	}

	c.unsent = ""
	c.input.Reset()
	return true, nil
}

func (c *Controller) RenderInbound(text string) {
	c.log.Append(RoleAssistant, text)
	c.scroller.ScrollToNewest()
}

func (c *Controller) RenderSystemNotice(kind NoticeKind) {
	text := kind.Text()
	if text == "" {
		c.logger.Warn().Str("kind", string(kind)).Msg("unknown notice kind")
		return
	}
	c.log.Append(RoleSystem, text)
	c.scroller.ScrollToNewest()
}

func (c *Controller) OnOpen() {
	c.logger.Info().Msg("connected to server")
}

func (c *Controller) OnMessage(text string) {
	c.RenderInbound(text)
}

func (c *Controller) OnError(err error) {
	c.logger.Debug().Err(err).Msg("connection error")
	c.RenderSystemNotice(NoticeError)
}

func (c *Controller) OnClose() {
	c.RenderSystemNotice(NoticeClosed)
}
