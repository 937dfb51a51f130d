package transport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildURI(t *testing.T) {
	cases := []struct {
		origin string
		want   string
	}{
		{"http://localhost:8000", "ws://localhost:8000/ws/abc"},
		{"https://chat.example.com", "wss://chat.example.com/ws/abc"},
		{"ws://localhost:8000/", "ws://localhost:8000/ws/abc"},
		{"wss://chat.example.com/app", "wss://chat.example.com/app/ws/abc"},
		{"localhost:8000", "ws://localhost:8000/ws/abc"},
	}
	for _, c := range cases {
		got, err := BuildURI(c.origin, "abc")
		require.NoError(t, err, c.origin)
		require.Equal(t, c.want, got, c.origin)
	}
}

func TestBuildURIEscapesSessionID(t *testing.T) {
	got, err := BuildURI("http://h", "a b/c")
	require.NoError(t, err)
	require.Equal(t, "ws://h/ws/a%20b%2Fc", got)
}

func TestBuildURIRejectsBadInput(t *testing.T) {
	_, err := BuildURI("http://h", "  ")
	require.Error(t, err)

	_, err = BuildURI("", "abc")
	require.Error(t, err)

	_, err = BuildURI("ftp://h", "abc")
	require.Error(t, err)
}

func TestParseSendPolicy(t *testing.T) {
	p, ok := ParseSendPolicy("")
	require.True(t, ok)
	require.Equal(t, SendPolicyQueue, p)

	p, ok = ParseSendPolicy("reject")
	require.True(t, ok)
	require.Equal(t, SendPolicyReject, p)

	_, ok = ParseSendPolicy("retry")
	require.False(t, ok)
}
