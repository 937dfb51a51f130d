package transport

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// BuildURI derives the websocket endpoint for a session from the origin the
// chat is hosted on. Secure origins (https, wss) map to wss.
func BuildURI(origin string, sessionID string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", errors.New("transport: empty session id")
	}
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return "", errors.New("transport: empty origin")
	}
	if !strings.Contains(origin, "://") {
		origin = "ws://" + origin
	}
	u, err := url.Parse(origin)
	if err != nil {
		return "", errors.Wrapf(err, "transport: parse origin %q", origin)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", errors.Errorf("transport: unsupported origin scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.Errorf("transport: origin %q has no host", origin)
	}

	base := strings.TrimRight(u.Path, "/")
	u.Path = base + "/ws/" + sessionID
	u.RawPath = base + "/ws/" + url.PathEscape(sessionID)
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}
