package transport

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotOpen   = errors.New("transport: connection is not open")
	ErrClosed    = errors.New("transport: connection is closed")
	ErrQueueFull = errors.New("transport: send queue is full")
)

const (
	DefaultQueueSize    = 64
	DefaultWriteTimeout = 10 * time.Second
	DefaultCloseTimeout = 5 * time.Second
)

type Options struct {
	Dialer       *websocket.Dialer
	Header       http.Header
	SendPolicy   SendPolicy
	QueueSize    int
	WriteTimeout time.Duration
	CloseTimeout time.Duration
	ReadLimit    int64
}

type Option func(*Options)

func WithDialer(d *websocket.Dialer) Option {
	return func(o *Options) { o.Dialer = d }
}

func WithHeader(h http.Header) Option {
	return func(o *Options) { o.Header = h }
}

func WithSendPolicy(p SendPolicy) Option {
	return func(o *Options) { o.SendPolicy = p }
}

func WithQueueSize(n int) Option {
	return func(o *Options) { o.QueueSize = n }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(o *Options) { o.WriteTimeout = d }
}

func WithCloseTimeout(d time.Duration) Option {
	return func(o *Options) { o.CloseTimeout = d }
}

func WithReadLimit(n int64) Option {
	return func(o *Options) { o.ReadLimit = n }
}

func defaultOptions() Options {
	return Options{
		Dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 45 * time.Second,
		},
		SendPolicy:   SendPolicyQueue,
		QueueSize:    DefaultQueueSize,
		WriteTimeout: DefaultWriteTimeout,
		CloseTimeout: DefaultCloseTimeout,
	}
}

// Handle owns a single text-frame websocket connection. It connects as soon
// as it is created and is never reconnected: once closed, Open must be called
// again to get a new Handle.
type Handle struct {
	uri     string
	handler Handler
	opts    Options

	mu       sync.Mutex
	state    State
	conn     *websocket.Conn
	pending  []string
	closing  bool
	writeErr error

	outbound  chan string
	stopWrite chan struct{}
	cancel    context.CancelFunc
	done      chan struct{}
}

// Open starts connecting to uri in the background and returns immediately.
// Cancelling ctx tears the connection down like Close does.
func Open(ctx context.Context, uri string, handler Handler, opts ...Option) *Handle {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.QueueSize <= 0 {
		o.QueueSize = DefaultQueueSize
	}
	if o.Dialer == nil {
		o.Dialer = defaultOptions().Dialer
	}
	if o.CloseTimeout <= 0 {
		o.CloseTimeout = DefaultCloseTimeout
	}
	if _, ok := ParseSendPolicy(string(o.SendPolicy)); !ok {
		o.SendPolicy = SendPolicyQueue
	}

	runCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		uri:       uri,
		handler:   handler,
		opts:      o,
		state:     StateConnecting,
		outbound:  make(chan string, o.QueueSize),
		stopWrite: make(chan struct{}),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go h.run(runCtx)
	return h
}

func (h *Handle) URI() string { return h.uri }

func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Done is closed after OnClose has returned.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Send transmits text as one text frame. It never waits on the network.
func (h *Handle) Send(text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closing {
		return ErrClosed
	}
	switch h.state {
	case StateOpen:
		select {
		case h.outbound <- text:
			return nil
		default:
			return ErrQueueFull
		}
	case StateConnecting:
		switch h.opts.SendPolicy {
		case SendPolicyReject:
			return ErrNotOpen
		case SendPolicyDrop:
			log.Warn().Str("component", "transport").Str("uri", h.uri).Int("bytes", len(text)).Msg("dropping frame sent before connection opened")
			return nil
		default:
			if len(h.pending) >= h.opts.QueueSize {
				return ErrQueueFull
			}
			h.pending = append(h.pending, text)
			return nil
		}
	default:
		return ErrClosed
	}
}

// Close performs a normal close handshake and waits for the read loop to
// finish. OnClose has fired by the time Close returns. Close must not be
// called from inside a Handler callback.
func (h *Handle) Close() error {
	h.mu.Lock()
	if h.state == StateClosed {
		h.mu.Unlock()
		<-h.done
		return nil
	}
	h.closing = true
	conn := h.conn
	state := h.state
	h.mu.Unlock()

	var err error
	if conn != nil && state == StateOpen {
		deadline := time.Now().Add(h.opts.CloseTimeout)
		err = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		if errors.Is(err, websocket.ErrCloseSent) {
			err = nil
		}
	} else {
		// still dialing
		h.cancel()
	}

	select {
	case <-h.done:
	case <-time.After(h.opts.CloseTimeout):
		log.Debug().Str("component", "transport").Str("uri", h.uri).Msg("close handshake timed out")
		h.cancel()
		<-h.done
	}
	h.cancel()
	return errors.Wrap(err, "transport: close")
}

func (h *Handle) run(ctx context.Context) {
	defer close(h.done)

	conn, resp, err := h.dialer(ctx).DialContext(ctx, h.uri, h.opts.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if ctx.Err() != nil {
			h.mu.Lock()
			h.closing = true
			h.mu.Unlock()
		}
		h.finish(errors.Wrapf(err, "transport: dial %s", h.uri))
		return
	}
	if h.opts.ReadLimit > 0 {
		conn.SetReadLimit(h.opts.ReadLimit)
	}

	h.mu.Lock()
	if h.closing {
		h.mu.Unlock()
		_ = conn.Close()
		h.finish(nil)
		return
	}
	h.conn = conn
	h.state = StateOpen
	for _, text := range h.pending {
		h.outbound <- text
	}
	queued := len(h.pending)
	h.pending = nil
	h.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		h.mu.Lock()
		h.closing = true
		h.mu.Unlock()
		_ = conn.Close()
	})
	defer stop()

	go h.writeLoop(conn)

	log.Debug().Str("component", "transport").Str("uri", h.uri).Int("flushed", queued).Msg("connection open")
	h.handler.OnOpen()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			h.finish(err)
			return
		}
		if msgType != websocket.TextMessage {
			log.Debug().Str("component", "transport").Int("type", msgType).Msg("ignoring non-text frame")
			continue
		}
		h.handler.OnMessage(string(data))
	}
}

// dialer ties the raw network connection to ctx so that tearing down a
// Handle also aborts a handshake the server has not answered yet.
func (h *Handle) dialer(ctx context.Context) *websocket.Dialer {
	d := *h.opts.Dialer
	netDial := d.NetDialContext
	if netDial == nil {
		var nd net.Dialer
		netDial = nd.DialContext
	}
	d.NetDialContext = func(dialCtx context.Context, network, addr string) (net.Conn, error) {
		c, err := netDial(dialCtx, network, addr)
		if err != nil {
			return nil, err
		}
		context.AfterFunc(ctx, func() { _ = c.Close() })
		return c, nil
	}
	return &d
}

func (h *Handle) writeLoop(conn *websocket.Conn) {
	for {
		select {
		case <-h.stopWrite:
			return
		case text := <-h.outbound:
			if h.opts.WriteTimeout > 0 {
				_ = conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
				h.mu.Lock()
				if h.writeErr == nil {
					h.writeErr = errors.Wrap(err, "transport: write")
				}
				h.mu.Unlock()
				_ = conn.Close()
				return
			}
		}
	}
}

// finish reports the end of the connection: OnError for abnormal
// terminations, then OnClose exactly once.
func (h *Handle) finish(err error) {
	h.mu.Lock()
	abnormal := false
	if !h.closing {
		if h.writeErr != nil {
			err = h.writeErr
			abnormal = true
		} else if err != nil && !isNormalClose(err) {
			abnormal = true
		}
	}
	if abnormal {
		h.state = StateErrored
	}
	conn := h.conn
	h.mu.Unlock()

	if abnormal {
		log.Warn().Err(err).Str("component", "transport").Str("uri", h.uri).Msg("connection error")
		h.handler.OnError(err)
	}

	h.mu.Lock()
	h.state = StateClosed
	h.pending = nil
	h.mu.Unlock()

	close(h.stopWrite)
	if conn != nil {
		_ = conn.Close()
	}
	log.Debug().Str("component", "transport").Str("uri", h.uri).Msg("connection closed")
	h.handler.OnClose()
}

func isNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
