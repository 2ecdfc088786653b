package health

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mabitter/tractor-sub000/pkg/metrics"
	"github.com/stretchr/testify/assert"
)

type fakeChecker struct {
	healthy atomic.Bool
	calls   atomic.Int32
}

func (f *fakeChecker) Check(ctx context.Context) Result {
	f.calls.Add(1)
	return result(time.Now(), f.healthy.Load(), "fake")
}

func (f *fakeChecker) Type() CheckType { return CheckTypeTCP }

func TestStatusUpdate(t *testing.T) {
	cfg := Config{Retries: 2}
	s := NewStatus()
	assert.True(t, s.Healthy)

	s.Update(Result{Healthy: false}, cfg)
	assert.True(t, s.Healthy, "one failure is tolerated")
	assert.Equal(t, 1, s.ConsecutiveFailures)

	s.Update(Result{Healthy: false}, cfg)
	assert.False(t, s.Healthy)

	s.Update(Result{Healthy: true}, cfg)
	assert.True(t, s.Healthy)
	assert.Equal(t, 0, s.ConsecutiveFailures)
	assert.Equal(t, 1, s.ConsecutiveSuccesses)
}

func TestMonitorProbePublishesComponent(t *testing.T) {
	checker := &fakeChecker{}
	m := NewMonitor("blobstore-probe-test", checker, Config{Retries: 1})

	st := m.Probe(context.Background())
	assert.False(t, st.Healthy)
	assert.Equal(t, "unhealthy: fake", metrics.GetHealth().Components["blobstore-probe-test"])

	checker.healthy.Store(true)
	st = m.Probe(context.Background())
	assert.True(t, st.Healthy)
	assert.Equal(t, "healthy", metrics.GetHealth().Components["blobstore-probe-test"])
}

func TestMonitorRunStopsWithContext(t *testing.T) {
	checker := &fakeChecker{}
	checker.healthy.Store(true)
	m := NewMonitor("vehicle-probe-test", checker, Config{Interval: 5 * time.Millisecond, Retries: 1})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return checker.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}
