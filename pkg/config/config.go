package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/mabitter/tractor-sub000/pkg/api"
	"github.com/mabitter/tractor-sub000/pkg/log"
	"github.com/mabitter/tractor-sub000/pkg/visualization"
	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation failure
var ErrInvalid = errors.New("invalid configuration")

// Config is the console configuration file
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Vehicle   VehicleConfig   `yaml:"vehicle"`
	BlobStore BlobStoreConfig `yaml:"blobstore"`
	Store     StoreConfig     `yaml:"store"`
	BusStore  BusStoreConfig  `yaml:"busstore"`
	API       APIConfig       `yaml:"api"`

	// DataDir holds the local database (blob cache and saved panels)
	DataDir string `yaml:"data_dir"`

	// Descriptors lists FileDescriptorSet files whose messages are added
	// to the event type registry
	Descriptors []string `yaml:"descriptors,omitempty"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// VehicleConfig locates the vehicle's event bus bridge
type VehicleConfig struct {
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

// BlobStoreConfig locates the HTTP blob store
type BlobStoreConfig struct {
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout time.Duration     `yaml:"timeout"`
	// Cache keeps fetched blobs in the local database
	Cache bool `yaml:"cache"`
}

type StoreConfig struct {
	Throttle         time.Duration `yaml:"throttle"`
	ExpirationWindow time.Duration `yaml:"expiration_window"`
	FramePeriod      time.Duration `yaml:"frame_period"`
}

type BusStoreConfig struct {
	Period time.Duration `yaml:"period"`
}

// APIConfig holds listen addresses; an empty address disables the listener
type APIConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"`

	// Access rules for the HTTP API
	AllowedIPs []string `yaml:"allowed_ips,omitempty"`
	DeniedIPs  []string `yaml:"denied_ips,omitempty"`
	RateLimit  float64  `yaml:"rate_limit,omitempty"`
	RateBurst  int      `yaml:"rate_burst,omitempty"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level: string(log.InfoLevel),
		},
		Vehicle: VehicleConfig{
			URL: "ws://localhost:8989/",
		},
		BlobStore: BlobStoreConfig{
			URL:     "http://localhost:8585/",
			Timeout: 30 * time.Second,
			Cache:   true,
		},
		Store: StoreConfig{
			Throttle:         0,
			ExpirationWindow: 60 * time.Second,
			FramePeriod:      100 * time.Millisecond,
		},
		BusStore: BusStoreConfig{
			Period: time.Second,
		},
		API: APIConfig{
			HTTPAddr: "127.0.0.1:9090",
			GRPCAddr: "127.0.0.1:9091",
		},
		DataDir: "./console-data",
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks addresses and durations
func (c *Config) Validate() error {
	switch log.Level(c.Log.Level) {
	case log.DebugLevel, log.InfoLevel, log.WarnLevel, log.ErrorLevel:
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalid, c.Log.Level)
	}

	if c.Vehicle.URL != "" {
		if err := checkURL(c.Vehicle.URL, "ws", "wss"); err != nil {
			return fmt.Errorf("%w: vehicle.url: %v", ErrInvalid, err)
		}
	}
	if c.BlobStore.URL != "" {
		if err := checkURL(c.BlobStore.URL, "http", "https"); err != nil {
			return fmt.Errorf("%w: blobstore.url: %v", ErrInvalid, err)
		}
	}
	if c.BlobStore.Timeout < 0 {
		return fmt.Errorf("%w: blobstore.timeout must not be negative", ErrInvalid)
	}

	if c.Store.Throttle < 0 {
		return fmt.Errorf("%w: store.throttle must not be negative", ErrInvalid)
	}
	if c.Store.ExpirationWindow < time.Millisecond {
		return fmt.Errorf("%w: store.expiration_window must be at least 1ms", ErrInvalid)
	}
	if c.Store.FramePeriod <= 0 {
		return fmt.Errorf("%w: store.frame_period must be positive", ErrInvalid)
	}
	if c.BusStore.Period <= 0 {
		return fmt.Errorf("%w: busstore.period must be positive", ErrInvalid)
	}

	if _, err := api.NewMiddleware(c.Access()); err != nil {
		return fmt.Errorf("%w: api: %v", ErrInvalid, err)
	}

	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir is required", ErrInvalid)
	}
	return nil
}

// Marshal encodes the configuration as YAML
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Access returns the HTTP API access rules
func (c *Config) Access() api.AccessConfig {
	return api.AccessConfig{
		AllowedIPs:        c.API.AllowedIPs,
		DeniedIPs:         c.API.DeniedIPs,
		RequestsPerSecond: c.API.RateLimit,
		Burst:             c.API.RateBurst,
	}
}

// Logging returns the logger settings
func (c *Config) Logging() log.Config {
	return log.Config{
		Level:      log.Level(c.Log.Level),
		JSONOutput: c.Log.JSON,
	}
}

// Visualization returns the visualization store tunables
func (c *Config) Visualization() visualization.Config {
	cfg := visualization.DefaultConfig()
	cfg.Throttle = c.Store.Throttle
	cfg.ExpirationWindow = c.Store.ExpirationWindow
	cfg.FramePeriod = c.Store.FramePeriod
	return cfg
}

func checkURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	for _, s := range schemes {
		if u.Scheme == s {
			if u.Host == "" {
				return fmt.Errorf("missing host in %q", raw)
			}
			return nil
		}
	}
	return fmt.Errorf("unsupported scheme %q", u.Scheme)
}
