package cmds

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/wschat/pkg/chatview"
	"github.com/go-go-golems/wschat/pkg/lineui"
	"github.com/go-go-golems/wschat/pkg/transport"
	"github.com/go-go-golems/wschat/pkg/ui"
)

type ChatSettings struct {
	Origin        string
	Session       string
	Plain         bool
	Markdown      bool
	SendPolicy    string
	SendQueueSize int

	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
	CloseTimeout   time.Duration
	ReadLimit      int64
}

func chatSettingsFromViper() ChatSettings {
	return ChatSettings{
		Origin:        viper.GetString("origin"),
		Session:       viper.GetString("session"),
		Plain:         viper.GetBool("plain"),
		Markdown:      viper.GetBool("markdown"),
		SendPolicy:    viper.GetString("send-policy"),
		SendQueueSize: viper.GetInt("send-queue-size"),

		ConnectTimeout: viper.GetDuration("connect-timeout"),
		WriteTimeout:   viper.GetDuration("write-timeout"),
		CloseTimeout:   viper.GetDuration("close-timeout"),
		ReadLimit:      viper.GetInt64("read-limit"),
	}
}

func NewChatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with a wschat server over a websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), chatSettingsFromViper())
		},
	}
	cmd.Flags().String("origin", "http://localhost:8000", "Server origin (http, https, ws, wss or bare host)")
	cmd.Flags().String("session", "", "Session id; minted by the server when empty")
	cmd.Flags().Bool("plain", false, "Use the line-mode interface even on a terminal")
	cmd.Flags().Bool("markdown", false, "Render assistant replies as markdown")
	cmd.Flags().String("send-policy", string(transport.SendPolicyQueue), "What to do with messages sent before the connection opens (queue, reject, drop)")
	cmd.Flags().Int("send-queue-size", transport.DefaultQueueSize, "Maximum messages queued before the connection opens")
	cmd.Flags().Duration("connect-timeout", 45*time.Second, "Websocket handshake timeout")
	cmd.Flags().Duration("write-timeout", transport.DefaultWriteTimeout, "Timeout for writing one message")
	cmd.Flags().Duration("close-timeout", transport.DefaultCloseTimeout, "How long to wait for the close handshake")
	cmd.Flags().Int64("read-limit", 1<<20, "Maximum size in bytes of one inbound message (0 disables)")
	bindFlags(cmd)
	return cmd
}

func runChat(ctx context.Context, s ChatSettings) error {
	policy, ok := transport.ParseSendPolicy(s.SendPolicy)
	if !ok {
		return errors.Errorf("invalid send policy %q", s.SendPolicy)
	}

	tui := !s.Plain && isatty.IsTerminal(os.Stdout.Fd()) && isatty.IsTerminal(os.Stdin.Fd())
	if tui {
		ls := LogSettingsFromViper()
		ls.Quiet = true
		if err := InitLog(ls); err != nil {
			return err
		}
	}

	sessionID := s.Session
	if sessionID == "" {
		id, err := mintSession(ctx, s.Origin)
		if err != nil {
			return err
		}
		sessionID = id
	}

	uri, err := transport.BuildURI(s.Origin, sessionID)
	if err != nil {
		return err
	}
	logger := log.With().Str("component", "chat").Str("session_id", sessionID).Logger()
	logger.Info().Str("uri", uri).Bool("tui", tui).Str("send_policy", string(policy)).Msg("connecting")

	events := transport.NewEventChannel(64)
	h := transport.Open(ctx, uri, events, s.transportOptions(policy)...)
	defer func() {
		// the host no longer reads events once it returns
		events.Stop()
		if err := h.Close(); err != nil {
			logger.Debug().Err(err).Msg("close connection")
		}
	}()

	l := chatview.NewLog()
	if tui {
		m := ui.NewModel(l, h, events, ui.Options{Title: h.URI(), Markdown: s.Markdown})
		return ui.Run(ctx, m)
	}
	return lineui.Run(ctx, lineui.NewSession(l, h, events, os.Stdout), "> ")
}

func (s ChatSettings) transportOptions(policy transport.SendPolicy) []transport.Option {
	return []transport.Option{
		transport.WithSendPolicy(policy),
		transport.WithQueueSize(s.SendQueueSize),
		transport.WithDialer(&websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: s.ConnectTimeout,
		}),
		transport.WithHeader(http.Header{"User-Agent": {userAgent}}),
		transport.WithWriteTimeout(s.WriteTimeout),
		transport.WithCloseTimeout(s.CloseTimeout),
		transport.WithReadLimit(s.ReadLimit),
	}
}

const userAgent = "wschat"

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

// mintSession asks the server for a fresh session id.
func mintSession(ctx context.Context, origin string) (string, error) {
	base, err := httpOrigin(origin)
	if err != nil {
		return "", err
	}
	var out createSessionResponse
	resp, err := resty.New().
		SetBaseURL(base).
		SetTimeout(10*time.Second).
		SetHeader("User-Agent", userAgent).
		R().
		SetContext(ctx).
		SetResult(&out).
		Post("/api/sessions")
	if err != nil {
		return "", errors.Wrap(err, "request session")
	}
	if resp.IsError() {
		return "", errors.Errorf("request session: server answered %s", resp.Status())
	}
	if out.SessionID == "" {
		return "", errors.New("request session: empty session id")
	}
	return out.SessionID, nil
}

// httpOrigin maps a chat origin to the http(s) base URL of the server API.
func httpOrigin(origin string) (string, error) {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return "", errors.New("origin is empty")
	}
	if !strings.Contains(origin, "://") {
		origin = "http://" + origin
	}
	u, err := url.Parse(origin)
	if err != nil {
		return "", errors.Wrapf(err, "parse origin %q", origin)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "ws":
		u.Scheme = "http"
	case "https", "wss":
		u.Scheme = "https"
	default:
		return "", errors.Errorf("unsupported origin scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.Errorf("origin %q has no host", origin)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}
