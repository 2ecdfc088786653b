package health

import (
	"context"
	"fmt"
	"time"

	"github.com/mabitter/tractor-sub000/pkg/log"
	"github.com/mabitter/tractor-sub000/pkg/metrics"
)

// CheckType names the probe used by a Checker
type CheckType string

const (
	CheckTypeHTTP CheckType = "http"
	CheckTypeTCP  CheckType = "tcp"
	CheckTypeGRPC CheckType = "grpc"
)

// Result is the outcome of one probe
type Result struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// Checker probes one dependency of the console
type Checker interface {
	Check(ctx context.Context) Result
	Type() CheckType
}

func result(start time.Time, healthy bool, format string, args ...any) Result {
	return Result{
		Healthy:   healthy,
		Message:   fmt.Sprintf(format, args...),
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// Config controls how often a Monitor probes and when it gives up
type Config struct {
	// Interval is the time between probes
	Interval time.Duration

	// Timeout bounds a single probe
	Timeout time.Duration

	// Retries is the number of consecutive failures before the dependency
	// is reported unhealthy
	Retries int
}

// DefaultConfig probes every 10 seconds and tolerates two failures
func DefaultConfig() Config {
	return Config{
		Interval: 10 * time.Second,
		Timeout:  5 * time.Second,
		Retries:  3,
	}
}

// Status tracks consecutive probe outcomes for one dependency
type Status struct {
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
	LastResult           Result
	// Healthy starts true and flips after Retries consecutive failures
	Healthy bool
}

// NewStatus returns a status that assumes the dependency is up
func NewStatus() *Status {
	return &Status{Healthy: true}
}

// Update folds a probe result into the status
func (s *Status) Update(r Result, cfg Config) {
	s.LastResult = r

	if r.Healthy {
		s.ConsecutiveSuccesses++
		s.ConsecutiveFailures = 0
		s.Healthy = true
		return
	}

	s.ConsecutiveFailures++
	s.ConsecutiveSuccesses = 0
	if s.ConsecutiveFailures >= cfg.Retries {
		s.Healthy = false
	}
}

// Monitor runs a Checker periodically and publishes the outcome as the
// health of a named component
type Monitor struct {
	name    string
	checker Checker
	cfg     Config
	status  *Status
}

// NewMonitor creates a monitor reporting under component name
func NewMonitor(name string, checker Checker, cfg Config) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 1
	}
	return &Monitor{
		name:    name,
		checker: checker,
		cfg:     cfg,
		status:  NewStatus(),
	}
}

// Probe runs the checker once and publishes the updated status
func (m *Monitor) Probe(ctx context.Context) Status {
	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.Timeout)
		defer cancel()
	}

	r := m.checker.Check(ctx)
	m.status.Update(r, m.cfg)
	metrics.UpdateComponent(m.name, m.status.Healthy, r.Message)

	if !r.Healthy {
		logger := log.WithComponent("health")
		logger.Warn().
			Str("dependency", m.name).
			Str("check", string(m.checker.Type())).
			Int("failures", m.status.ConsecutiveFailures).
			Msg(r.Message)
	}
	return *m.status
}

// Run probes immediately and then every Interval until ctx is done
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		m.Probe(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
