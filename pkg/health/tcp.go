package health

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"
)

// TCPChecker checks that an address accepts connections. It is used for
// the vehicle bridge, whose WebSocket endpoint has no health route.
type TCPChecker struct {
	Address string
	Timeout time.Duration
}

// NewTCPChecker probes host:port
func NewTCPChecker(address string) *TCPChecker {
	return &TCPChecker{
		Address: address,
		Timeout: 5 * time.Second,
	}
}

// NewTCPCheckerForURL probes the host of a ws, wss, http or https URL,
// using the scheme's default port when none is given
func NewTCPCheckerForURL(rawURL string) (*TCPChecker, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("invalid URL %q: missing host", rawURL)
	}

	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "ws", "http":
			port = "80"
		case "wss", "https":
			port = "443"
		default:
			return nil, fmt.Errorf("invalid URL %q: no default port for scheme %q", rawURL, u.Scheme)
		}
	}
	return NewTCPChecker(net.JoinHostPort(u.Hostname(), port)), nil
}

// Check dials once and closes the connection
func (t *TCPChecker) Check(ctx context.Context) Result {
	start := time.Now()

	dialer := &net.Dialer{Timeout: t.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", t.Address)
	if err != nil {
		return result(start, false, "connection failed: %v", err)
	}
	_ = conn.Close()

	return result(start, true, "TCP connection to %s successful", t.Address)
}

func (t *TCPChecker) Type() CheckType {
	return CheckTypeTCP
}

// WithTimeout sets the dial timeout
func (t *TCPChecker) WithTimeout(timeout time.Duration) *TCPChecker {
	t.Timeout = timeout
	return t
}
