package webchat

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSessionStoreCreateMintsUUID(t *testing.T) {
	st := NewSessionStore(DefaultSystemPrompt)
	s := st.Create()
	_, err := uuid.Parse(s.ID)
	require.NoError(t, err)

	got, ok := st.Get(s.ID)
	require.True(t, ok)
	require.Same(t, s, got)
	require.Same(t, s, st.GetOrCreate(s.ID))
	require.Equal(t, 1, st.Len())
}

func TestSessionTranscriptStartsWithSystemPrompt(t *testing.T) {
	st := NewSessionStore("be brief")
	s := st.GetOrCreate("abc")
	s.Record(RoleAssistant, DefaultGreeting)
	s.Record(RoleUser, "hi")

	tr := s.Transcript()
	require.Len(t, tr, 3)
	require.Equal(t, RoleSystem, tr[0].Role)
	require.Equal(t, "be brief", tr[0].Content)
	require.Equal(t, RoleUser, tr[2].Role)
}

func TestSessionStoreEvictIdleOnce(t *testing.T) {
	st := NewSessionStore(DefaultSystemPrompt)
	st.SetEvictionConfig(10*time.Second, time.Second)

	s := st.GetOrCreate("s1")
	s.mu.Lock()
	s.lastActivity = time.Now().Add(-time.Hour)
	s.mu.Unlock()

	require.Equal(t, 1, st.evictIdleOnce(time.Now()))
	_, ok := st.Get("s1")
	require.False(t, ok)
}

func TestSessionStoreEvictIdleOnce_SkipsConnected(t *testing.T) {
	st := NewSessionStore(DefaultSystemPrompt)
	st.SetEvictionConfig(10*time.Second, time.Second)

	s := st.GetOrCreate("s1")
	s.mu.Lock()
	s.lastActivity = time.Now().Add(-time.Hour)
	s.mu.Unlock()
	s.pool.Add(&stubConn{})

	require.Equal(t, 0, st.evictIdleOnce(time.Now()))
	_, ok := st.Get("s1")
	require.True(t, ok)
}

func TestSessionStoreEvictIdleOnce_SkipsRecent(t *testing.T) {
	st := NewSessionStore(DefaultSystemPrompt)
	st.SetEvictionConfig(time.Hour, time.Second)
	st.GetOrCreate("s1")
	require.Equal(t, 0, st.evictIdleOnce(time.Now()))
}

func TestRunEvictionLoopDisabledReturns(t *testing.T) {
	st := NewSessionStore(DefaultSystemPrompt)
	done := make(chan struct{})
	go func() {
		st.RunEvictionLoop(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("eviction loop should return when disabled")
	}
}

func TestRunEvictionLoopEvicts(t *testing.T) {
	st := NewSessionStore(DefaultSystemPrompt)
	st.SetEvictionConfig(time.Millisecond, 5*time.Millisecond)
	st.GetOrCreate("s1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go st.RunEvictionLoop(ctx)

	require.Eventually(t, func() bool { return st.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestSessionHistoryOmitsSystemPrompt(t *testing.T) {
	st := NewSessionStore("secret instructions")
	s := st.GetOrCreate("abc")
	require.Empty(t, s.History())

	s.Record(RoleAssistant, DefaultGreeting)
	require.Equal(t, []string{DefaultGreeting}, contents(s.History()))
}

func TestGetOrCreateRefreshesActivity(t *testing.T) {
	st := NewSessionStore(DefaultSystemPrompt)
	st.SetEvictionConfig(10*time.Second, time.Second)

	s := st.GetOrCreate("s1")
	s.mu.Lock()
	s.lastActivity = time.Now().Add(-time.Hour)
	s.mu.Unlock()

	require.Same(t, s, st.GetOrCreate("s1"))
	require.Equal(t, 0, st.evictIdleOnce(time.Now()))
}

func TestAttachKeepsSessionFromEviction(t *testing.T) {
	st := NewSessionStore(DefaultSystemPrompt)
	st.SetEvictionConfig(10*time.Second, time.Second)

	s := st.GetOrCreate("s1")
	s.mu.Lock()
	s.lastActivity = time.Now().Add(-time.Hour)
	s.mu.Unlock()

	conn := &stubConn{}
	require.Same(t, s, st.Attach("s1", conn))
	require.Equal(t, 1, s.Pool().Count())

	// even a stale activity stamp does not evict a connected session
	s.mu.Lock()
	s.lastActivity = time.Now().Add(-time.Hour)
	s.mu.Unlock()
	require.Equal(t, 0, st.evictIdleOnce(time.Now()))
	got, ok := st.Get("s1")
	require.True(t, ok)
	require.Same(t, s, got)
}
