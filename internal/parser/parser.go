package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/August26/proxycheck-api/internal/model"
)

// ErrMalformedCredential is returned for any input that is not user:pass@ip:port.
var ErrMalformedCredential = errors.New("malformed proxy credential")

// ParseCredential parses a proxy credential written as
//
//	user:pass@ip:port
//
// The string is split on the first '@', so neither the user nor the
// password may contain '@' or ':'. On failure the zero credential is
// returned together with an error wrapping ErrMalformedCredential.
func ParseCredential(s string) (model.ProxyCredential, error) {
	line := strings.TrimSpace(s)
	if line == "" {
		return model.ProxyCredential{}, fmt.Errorf("%w: empty input", ErrMalformedCredential)
	}

	auth, hostport, ok := strings.Cut(line, "@")
	if !ok {
		return model.ProxyCredential{}, fmt.Errorf("%w: missing '@'", ErrMalformedCredential)
	}
	if strings.Contains(hostport, "@") {
		return model.ProxyCredential{}, fmt.Errorf("%w: more than one '@'", ErrMalformedCredential)
	}

	user, pass, err := splitUserPass(auth)
	if err != nil {
		return model.ProxyCredential{}, err
	}

	host, port, err := splitHostPort(hostport)
	if err != nil {
		return model.ProxyCredential{}, err
	}

	return model.ProxyCredential{
		IP:   host,
		Port: port,
		User: user,
		Pass: pass,
	}, nil
}

// FormatCredential is the inverse of ParseCredential.
func FormatCredential(c model.ProxyCredential) string {
	return fmt.Sprintf("%s:%s@%s:%d", c.User, c.Pass, c.IP, c.Port)
}

func splitUserPass(s string) (string, string, error) {
	up := strings.Split(s, ":")
	if len(up) != 2 || up[0] == "" || up[1] == "" {
		return "", "", fmt.Errorf("%w: invalid auth (expected user:pass)", ErrMalformedCredential)
	}
	return up[0], up[1], nil
}

// splitHostPort handles ip:port for IPv4 or hostname.
func splitHostPort(s string) (string, int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 || parts[0] == "" {
		return "", 0, fmt.Errorf("%w: invalid host:port", ErrMalformedCredential)
	}

	// ParseUint rejects signs, which Atoi would let through.
	port, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return "", 0, fmt.Errorf("%w: invalid port %q", ErrMalformedCredential, parts[1])
	}
	if port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("%w: port %d out of range", ErrMalformedCredential, port)
	}
	return parts[0], int(port), nil
}
