package webchat

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a session's conversation.
type Message struct {
	Role    Role
	Content string
	At      time.Time
}

// Session holds the in-memory history of one chat and its live sockets.
type Session struct {
	ID     string
	System string

	mu           sync.Mutex
	history      []Message
	lastActivity time.Time

	pool *ConnectionPool
}

func newSession(id, system string, now time.Time) *Session {
	return &Session{
		ID:           id,
		System:       system,
		lastActivity: now,
		pool:         NewConnectionPool(id),
	}
}

// Record appends a user or assistant message.
func (s *Session) Record(role Role, content string) Message {
	now := time.Now()
	m := Message{Role: role, Content: content, At: now}
	s.mu.Lock()
	s.history = append(s.history, m)
	s.lastActivity = now
	s.mu.Unlock()
	return m
}

// Transcript returns the system prompt followed by the recorded messages.
func (s *Session) Transcript() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, 0, len(s.history)+1)
	if s.System != "" {
		out = append(out, Message{Role: RoleSystem, Content: s.System})
	}
	return append(out, s.history...)
}

// History returns the recorded user and assistant messages, without the
// system prompt.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.history...)
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (s *Session) Pool() *ConnectionPool { return s.pool }

// SessionStore is the in-memory session registry.
type SessionStore struct {
	system string

	mu            sync.Mutex
	sessions      map[string]*Session
	evictIdle     time.Duration
	evictInterval time.Duration
	evictRunning  bool
}

func NewSessionStore(system string) *SessionStore {
	return &SessionStore{
		system:   system,
		sessions: map[string]*Session{},
	}
}

// Create mints a session with a fresh uuid.
func (st *SessionStore) Create() *Session {
	return st.GetOrCreate(uuid.NewString())
}

func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	return s, ok
}

// GetOrCreate returns the session for id, creating it when unknown. Clients
// may connect with ids the server never minted.
func (st *SessionStore) GetOrCreate(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.getOrCreateLocked(id)
}

// Attach adds conn to the session for id while holding the store lock, so
// the eviction loop cannot drop the session between lookup and Add.
func (st *SessionStore) Attach(id string, conn wsConn) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	s := st.getOrCreateLocked(id)
	s.pool.Add(conn)
	return s
}

func (st *SessionStore) getOrCreateLocked(id string) *Session {
	if s, ok := st.sessions[id]; ok {
		s.touch()
		return s
	}
	s := newSession(id, st.system, time.Now())
	st.sessions[id] = s
	log.Debug().Str("component", "webchat").Str("session_id", id).Msg("session created")
	return s
}

func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// CloseAll closes every live socket in every session.
func (st *SessionStore) CloseAll() {
	st.mu.Lock()
	sessions := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		sessions = append(sessions, s)
	}
	st.mu.Unlock()
	for _, s := range sessions {
		s.pool.CloseAll()
	}
}
