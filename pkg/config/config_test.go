package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mabitter/tractor-sub000/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 60*time.Second, cfg.Store.ExpirationWindow)
	assert.Equal(t, time.Second, cfg.BusStore.Period)
	assert.True(t, cfg.BlobStore.Cache)
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
log:
  level: debug
  json: true
vehicle:
  url: wss://tractor.local/bus
  headers:
    Authorization: Bearer abc
store:
  throttle: 250ms
  expiration_window: 2m
descriptors:
  - farm_ng.fds
`))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "wss://tractor.local/bus", cfg.Vehicle.URL)
	assert.Equal(t, "Bearer abc", cfg.Vehicle.Headers["Authorization"])
	assert.Equal(t, 250*time.Millisecond, cfg.Store.Throttle)
	assert.Equal(t, 2*time.Minute, cfg.Store.ExpirationWindow)
	assert.Equal(t, []string{"farm_ng.fds"}, cfg.Descriptors)

	// untouched sections keep their defaults
	assert.Equal(t, 100*time.Millisecond, cfg.Store.FramePeriod)
	assert.Equal(t, "http://localhost:8585/", cfg.BlobStore.URL)
}

func TestParseEmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("vehicle:\n  address: ws://x/\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"vehicle over http", func(c *Config) { c.Vehicle.URL = "http://tractor/" }},
		{"vehicle without host", func(c *Config) { c.Vehicle.URL = "ws:///bus" }},
		{"blob store over ftp", func(c *Config) { c.BlobStore.URL = "ftp://blobs/" }},
		{"negative blob timeout", func(c *Config) { c.BlobStore.Timeout = -time.Second }},
		{"negative throttle", func(c *Config) { c.Store.Throttle = -time.Millisecond }},
		{"tiny expiration window", func(c *Config) { c.Store.ExpirationWindow = time.Microsecond }},
		{"zero frame period", func(c *Config) { c.Store.FramePeriod = 0 }},
		{"zero bus period", func(c *Config) { c.BusStore.Period = 0 }},
		{"bad allowed CIDR", func(c *Config) { c.API.AllowedIPs = []string{"10.0.0.0/40"} }},
		{"negative rate limit", func(c *Config) { c.API.RateLimit = -1 }},
		{"no data dir", func(c *Config) { c.DataDir = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestValidateAllowsDisabledEndpoints(t *testing.T) {
	cfg := Default()
	cfg.Vehicle.URL = ""
	cfg.BlobStore.URL = ""
	cfg.API = APIConfig{}
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := filepath.Join(t.TempDir(), "console.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /var/lib/console\n"), 0600))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/console", cfg.DataDir)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("store:\n  frame_period: 0s\n"), 0600))
	_, err = Load(bad)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "bad.yaml")
}

func TestMarshalParsesBack(t *testing.T) {
	cfg := Default()
	cfg.Store.Throttle = 50 * time.Millisecond

	data, err := cfg.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), "throttle: 50ms")

	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}

func TestDerivedConfigs(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "warn"
	cfg.Log.JSON = true
	cfg.Store.Throttle = 20 * time.Millisecond

	lc := cfg.Logging()
	assert.Equal(t, log.WarnLevel, lc.Level)
	assert.True(t, lc.JSONOutput)

	vc := cfg.Visualization()
	assert.Equal(t, 20*time.Millisecond, vc.Throttle)
	assert.Equal(t, 60*time.Second, vc.ExpirationWindow)
	assert.Equal(t, 100*time.Millisecond, vc.FramePeriod)
	assert.NotNil(t, vc.Now)
}
