package webchat

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubConn struct {
	mu       sync.Mutex
	frames   []string
	failNext bool
	closed   bool
}

func (s *stubConn) WriteMessage(_ int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("closed")
	}
	if s.failNext {
		return errors.New("broken pipe")
	}
	s.frames = append(s.frames, string(data))
	return nil
}

func (s *stubConn) SetWriteDeadline(_ time.Time) error { return nil }

func (s *stubConn) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stubConn) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func TestConnectionPoolSendToOne(t *testing.T) {
	pool := NewConnectionPool("s1")
	conn := &stubConn{}
	pool.Add(conn)
	require.Equal(t, 1, pool.Count())

	require.NoError(t, pool.SendToOne(conn, "a"))
	require.NoError(t, pool.SendToOne(conn, "b"))
	require.Equal(t, []string{"a", "b"}, conn.frames)
}

func TestConnectionPoolDropsOnWriteError(t *testing.T) {
	pool := NewConnectionPool("s1")
	conn := &stubConn{failNext: true}
	pool.Add(conn)

	require.Error(t, pool.SendToOne(conn, "a"))
	require.True(t, pool.IsEmpty())
	require.True(t, conn.isClosed())

	require.ErrorIs(t, pool.SendToOne(conn, "b"), errConnNotInPool)
}

func TestConnectionPoolRemoveAndCloseAll(t *testing.T) {
	pool := NewConnectionPool("s1")
	a, b := &stubConn{}, &stubConn{}
	pool.Add(a)
	pool.Add(b)

	pool.Remove(a)
	require.True(t, a.isClosed())
	require.Equal(t, 1, pool.Count())

	pool.CloseAll()
	require.True(t, b.isClosed())
	require.True(t, pool.IsEmpty())
}
