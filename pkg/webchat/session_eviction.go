package webchat

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

func (st *SessionStore) SetEvictionConfig(idle, interval time.Duration) {
	if st == nil {
		return
	}
	st.mu.Lock()
	st.evictIdle = idle
	st.evictInterval = interval
	st.mu.Unlock()
}

// RunEvictionLoop removes idle sessions until ctx is done. It returns
// immediately when eviction is disabled or a loop is already running.
func (st *SessionStore) RunEvictionLoop(ctx context.Context) {
	if st == nil {
		return
	}
	if ctx == nil {
		panic("webchat: RunEvictionLoop requires non-nil ctx")
	}
	st.mu.Lock()
	if st.evictRunning {
		st.mu.Unlock()
		return
	}
	idle := st.evictIdle
	interval := st.evictInterval
	if idle <= 0 || interval <= 0 {
		st.mu.Unlock()
		return
	}
	st.evictRunning = true
	st.mu.Unlock()

	defer func() {
		st.mu.Lock()
		st.evictRunning = false
		st.mu.Unlock()
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := st.evictIdleOnce(now); n > 0 {
				log.Info().Str("component", "webchat").Int("evicted", n).Int("remaining", st.Len()).Msg("evicted idle sessions")
			}
		}
	}
}

func (st *SessionStore) evictIdleOnce(now time.Time) int {
	if st == nil {
		return 0
	}
	if now.IsZero() {
		now = time.Now()
	}

	st.mu.Lock()
	idle := st.evictIdle
	if idle <= 0 {
		st.mu.Unlock()
		return 0
	}
	sessions := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		sessions = append(sessions, s)
	}
	st.mu.Unlock()

	evicted := 0
	for _, s := range sessions {
		if !shouldEvictSession(now, idle, s) {
			continue
		}
		st.mu.Lock()
		current, ok := st.sessions[s.ID]
		// re-checked under the store lock: Attach may have added a connection
		if !ok || current != s || !shouldEvictSession(now, idle, s) {
			st.mu.Unlock()
			continue
		}
		delete(st.sessions, s.ID)
		st.mu.Unlock()

		s.pool.CloseAll()
		evicted++
	}
	return evicted
}

func shouldEvictSession(now time.Time, idle time.Duration, s *Session) bool {
	if s == nil {
		return false
	}
	if !s.pool.IsEmpty() {
		return false
	}
	s.mu.Lock()
	last := s.lastActivity
	s.mu.Unlock()
	if last.IsZero() {
		return false
	}
	return now.Sub(last) >= idle
}
