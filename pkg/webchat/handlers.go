package webchat

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type homePage struct {
	SessionID string
	History   []Message
}

type imagePage struct {
	Prompt   string
	ImageURL template.URL
	Error    string
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	s.renderTemplate(w, http.StatusOK, "home.html", homePage{
		SessionID: sess.ID,
		History:   sess.History(),
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "sessions": s.sessions.Len()})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	writeJSON(w, http.StatusCreated, createSessionResponse{SessionID: sess.ID})
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	prompt := strings.TrimSpace(r.PostFormValue("user_input"))
	if prompt == "" {
		http.Error(w, "user_input is required", http.StatusBadRequest)
		return
	}

	imageURL, err := s.images.Generate(r.Context(), prompt)
	if err == nil && !isDisplayableImageURL(imageURL) {
		err = errors.New("refusing to display image url with unexpected scheme")
	}
	if err != nil {
		log.Warn().Err(err).Str("component", "webchat").Msg("image generation failed")
		status := http.StatusBadGateway
		if errors.Is(err, ErrImagesUnavailable) {
			status = http.StatusServiceUnavailable
		}
		s.renderTemplate(w, status, "image.html", imagePage{Prompt: prompt, Error: "Image generation failed."})
		return
	}
	s.renderTemplate(w, http.StatusOK, "image.html", imagePage{
		Prompt: prompt,
		// checked by isDisplayableImageURL
		ImageURL: template.URL(imageURL),
	})
}

func isDisplayableImageURL(u string) bool {
	return strings.HasPrefix(u, "https://") ||
		strings.HasPrefix(u, "http://") ||
		strings.HasPrefix(u, "data:image/")
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if strings.TrimSpace(sessionID) == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}
	logger := log.With().Str("component", "webchat").Str("session_id", sessionID).Logger()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	if s.settings.ReadLimit > 0 {
		conn.SetReadLimit(s.settings.ReadLimit)
	}
	sess := s.sessions.Attach(sessionID, conn)
	pool := sess.Pool()
	defer pool.Remove(conn)
	logger.Info().Str("remote", r.RemoteAddr).Int("connections", pool.Count()).Msg("client connected")

	if s.settings.Greeting != "" {
		sess.Record(RoleAssistant, s.settings.Greeting)
		if err := pool.SendToOne(conn, s.settings.Greeting); err != nil {
			return
		}
	}

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn().Err(err).Msg("websocket read failed")
			} else {
				logger.Info().Msg("client disconnected")
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}

		reply := s.answer(r.Context(), sess, string(data))
		if err := pool.SendToOne(conn, reply); err != nil {
			return
		}
	}
}

// answer records the user turn and the reply. A failed completion yields the
// apology, which is not recorded.
func (s *Server) answer(ctx context.Context, sess *Session, text string) string {
	sess.Record(RoleUser, text)
	history := TrimHistory(sess.Transcript(), s.settings.MaxContextTokens, s.tokens)

	if s.settings.CompletionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.settings.CompletionTimeout)
		defer cancel()
	}
	reply, err := s.completer.Complete(ctx, history)
	if err != nil {
		log.Error().Err(err).Str("component", "webchat").Str("session_id", sess.ID).Msg("completion failed")
		return ApologyText
	}
	sess.Record(RoleAssistant, reply)
	return reply
}

func (s *Server) renderTemplate(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		log.Error().Err(err).Str("component", "webchat").Str("template", name).Msg("render template")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Str("component", "webchat").Msg("write json response")
	}
}
