package webchat

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Server is the chat backend: an HTTP page, a session API, and one
// websocket per browser or terminal client.
type Server struct {
	settings  Settings
	sessions  *SessionStore
	completer Completer
	images    ImageGenerator
	tokens    TokenCounter
	upgrader  websocket.Upgrader

	httpSrv *http.Server
}

type ServerOption func(*Server)

func WithCompleter(c Completer) ServerOption {
	return func(s *Server) { s.completer = c }
}

func WithImageGenerator(g ImageGenerator) ServerOption {
	return func(s *Server) { s.images = g }
}

func WithTokenCounter(c TokenCounter) ServerOption {
	return func(s *Server) { s.tokens = c }
}

// NewServer builds a server from settings. Without an OpenAI API key the
// server answers with an EchoCompleter and image generation is disabled,
// unless options provide replacements.
func NewServer(settings Settings, opts ...ServerOption) (*Server, error) {
	if err := settings.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid server settings")
	}
	s := &Server{
		settings: settings,
		sessions: NewSessionStore(settings.SystemPrompt),
		upgrader: websocket.Upgrader{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin:      func(r *http.Request) bool { return true },
		},
	}
	if settings.OpenAIAPIKey != "" {
		client := newOpenAIClient(settings.OpenAIAPIKey, settings.OpenAIBaseURL)
		s.completer = NewOpenAICompleter(client, settings.Model, settings.Temperature)
		s.images = NewOpenAIImageGenerator(client, settings.ImageModel, settings.ImageSize)
	}
	for _, o := range opts {
		o(s)
	}
	if s.completer == nil {
		log.Warn().Str("component", "webchat").Msg("no OpenAI API key configured, replies will echo the user")
		s.completer = EchoCompleter{}
	}
	if s.images == nil {
		s.images = noImages{}
	}
	if s.tokens == nil {
		s.tokens = NewTiktokenCounter()
	}
	s.sessions.SetEvictionConfig(settings.SessionIdleTimeout, settings.EvictInterval)

	s.httpSrv = &http.Server{
		Addr:              settings.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) Sessions() *SessionStore { return s.sessions }

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleHome)
	r.Get("/healthz", s.handleHealthz)
	r.Post("/api/sessions", s.handleCreateSession)
	r.Get("/ws/{sessionID}", s.handleWS)
	r.Post("/image", s.handleImage)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS()))))
	return r
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.settings.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.settings.Addr)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the HTTP server on ln together with the session eviction loop.
// Cancelling ctx closes live sockets and shuts the server down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if ctx == nil {
		return errors.New("ctx is nil")
	}
	eg, egCtx := errgroup.WithContext(ctx)
	s.httpSrv.BaseContext = func(net.Listener) context.Context { return egCtx }

	eg.Go(func() error {
		s.sessions.RunEvictionLoop(egCtx)
		return nil
	})

	eg.Go(func() error {
		log.Info().Str("component", "webchat").Str("addr", ln.Addr().String()).Msg("chat server listening")
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "serve http")
		}
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		log.Info().Str("component", "webchat").Msg("shutting down chat server")
		// hijacked websocket connections are not tracked by http.Server
		s.sessions.CloseAll()
		timeout := s.settings.ShutdownTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
			return errors.Wrap(err, "shutdown http")
		}
		log.Info().Msg("server shutdown complete")
		return nil
	})

	return eg.Wait()
}
