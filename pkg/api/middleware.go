package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mabitter/tractor-sub000/pkg/log"
	"github.com/mabitter/tractor-sub000/pkg/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// limiterIdle is how long a client's limiter survives without requests
const limiterIdle = 10 * time.Minute

// AccessConfig restricts who may call the HTTP API
type AccessConfig struct {
	// AllowedIPs, when non-empty, lists the only clients admitted.
	// Entries are addresses or CIDR ranges.
	AllowedIPs []string
	DeniedIPs  []string

	// RequestsPerSecond per client; zero disables rate limiting
	RequestsPerSecond float64
	Burst             int
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Middleware applies IP access control and per-client rate limiting
type Middleware struct {
	allowed []*net.IPNet
	denied  []*net.IPNet
	limit   rate.Limit
	burst   int

	mu       sync.Mutex
	limiters map[string]*clientLimiter
	now      func() time.Time
	logger   zerolog.Logger
}

// NewMiddleware parses the access rules
func NewMiddleware(cfg AccessConfig) (*Middleware, error) {
	allowed, err := parseNets(cfg.AllowedIPs)
	if err != nil {
		return nil, err
	}
	denied, err := parseNets(cfg.DeniedIPs)
	if err != nil {
		return nil, err
	}
	if cfg.RequestsPerSecond < 0 || cfg.Burst < 0 {
		return nil, fmt.Errorf("invalid rate limit %.2f/s burst %d", cfg.RequestsPerSecond, cfg.Burst)
	}

	burst := cfg.Burst
	if cfg.RequestsPerSecond > 0 && burst == 0 {
		burst = max(1, int(cfg.RequestsPerSecond))
	}

	return &Middleware{
		allowed:  allowed,
		denied:   denied,
		limit:    rate.Limit(cfg.RequestsPerSecond),
		burst:    burst,
		limiters: make(map[string]*clientLimiter),
		now:      time.Now,
		logger:   log.WithComponent("api"),
	}, nil
}

// Wrap returns next guarded by the access rules
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		if !m.admit(ip) {
			metrics.APIRejected.WithLabelValues("access").Inc()
			writeError(w, http.StatusForbidden, "access denied by IP filter")
			return
		}
		if !m.allow(ip.String()) {
			metrics.APIRejected.WithLabelValues("rate_limit").Inc()
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// admit checks the deny list first, then the allow list if one is set
func (m *Middleware) admit(ip net.IP) bool {
	if ip == nil {
		return len(m.allowed) == 0 && len(m.denied) == 0
	}
	for _, n := range m.denied {
		if n.Contains(ip) {
			m.logger.Warn().Str("client", ip.String()).Str("rule", n.String()).Msg("Access denied")
			return false
		}
	}
	if len(m.allowed) == 0 {
		return true
	}
	for _, n := range m.allowed {
		if n.Contains(ip) {
			return true
		}
	}
	m.logger.Warn().Str("client", ip.String()).Msg("Access denied (not in allow list)")
	return false
}

func (m *Middleware) allow(client string) bool {
	if m.limit == 0 {
		return true
	}

	m.mu.Lock()
	cl, ok := m.limiters[client]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.limiters[client] = cl
	}
	now := m.now()
	cl.lastSeen = now
	allowed := cl.limiter.AllowN(now, 1)
	m.mu.Unlock()

	if !allowed {
		m.logger.Debug().Str("client", client).Msg("Rate limit exceeded")
	}
	return allowed
}

// Cleanup drops limiters idle for longer than maxIdle and returns how many
func (m *Middleware) Cleanup(maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxIdle)
	removed := 0
	for client, cl := range m.limiters {
		if cl.lastSeen.Before(cutoff) {
			delete(m.limiters, client)
			removed++
		}
	}
	return removed
}

// RunCleanup calls Cleanup every interval until ctx is done
func (m *Middleware) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Cleanup(limiterIdle); n > 0 {
				m.logger.Debug().Int("removed", n).Msg("Dropped idle rate limiters")
			}
		}
	}
}

// clientIP is the peer address. Forwarding headers are ignored: the API is
// served directly, never behind a proxy.
func clientIP(r *http.Request) net.IP {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return net.ParseIP(host)
}

// parseNets accepts single addresses as /32 or /128 networks
func parseNets(entries []string) ([]*net.IPNet, error) {
	var nets []*net.IPNet
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if !strings.Contains(e, "/") {
			ip := net.ParseIP(e)
			if ip == nil {
				return nil, fmt.Errorf("invalid IP %q", e)
			}
			bits := 128
			if ip.To4() != nil {
				ip = ip.To4()
				bits = 32
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(e)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR %q: %w", e, err)
		}
		nets = append(nets, n)
	}
	return nets, nil
}
