package metrics

import (
	"sync"
	"time"
)

// BufferStats is implemented by anything holding a committed event buffer
type BufferStats interface {
	// Stats returns the number of streams and retained events
	Stats() (streams, events int)
}

// Collector periodically publishes buffer gauges
type Collector struct {
	source   BufferStats
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCollector creates a new metrics collector
func NewCollector(source BufferStats, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Collector{
		source:   source,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		// Collect immediately on start
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

func (c *Collector) collect() {
	streams, events := c.source.Stats()
	BufferStreams.Set(float64(streams))
	BufferEvents.Set(float64(events))
}
