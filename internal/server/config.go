package server

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/iwvelando/mortgage-forecast/internal/config"
	"github.com/iwvelando/mortgage-forecast/internal/metrics"
	"github.com/iwvelando/mortgage-forecast/pkg/constants"
	"gopkg.in/yaml.v3"
)

// Config is the schedule API's server file, e.g.
//
//	address: :8080
//	maxUploadSize: 512K
//	allowedOrigins: [https://example.com]
//	timeouts: {read: 10s, write: 10s, idle: 1m, shutdown: 5s}
//	metrics: false
type Config struct {
	Address        string               `yaml:"address"`
	MaxUploadSize  string               `yaml:"maxUploadSize"`
	AllowedOrigins []string             `yaml:"allowedOrigins"`
	Timeouts       Timeouts             `yaml:"timeouts"`
	Logging        config.LoggingConfig `yaml:"logging"`
	Metrics        bool                 `yaml:"metrics"`

	uploadSizeBytes int64
}

// Timeouts bound how long the server spends on one connection and on
// draining requests at shutdown.
type Timeouts struct {
	Read     time.Duration `yaml:"read"`
	Write    time.Duration `yaml:"write"`
	Idle     time.Duration `yaml:"idle"`
	Shutdown time.Duration `yaml:"shutdown"`
}

var defaultTimeouts = Timeouts{
	Read:     15 * time.Second,
	Write:    15 * time.Second,
	Idle:     60 * time.Second,
	Shutdown: 10 * time.Second,
}

// DefaultConfig returns the settings used when no server file exists.
func DefaultConfig() *Config {
	return &Config{
		Address:         constants.DefaultServerAddress,
		MaxUploadSize:   strconv.FormatInt(constants.DefaultMaxUploadSizeBytes, 10),
		AllowedOrigins:  []string{"*"},
		Timeouts:        defaultTimeouts,
		Metrics:         true,
		uploadSizeBytes: constants.DefaultMaxUploadSizeBytes,
	}
}

// LoadConfig reads the server file at path over DefaultConfig. A missing file
// or empty path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read server config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse server config: %w", err)
	}
	if err := cfg.resolve(); err != nil {
		return nil, fmt.Errorf("invalid server config %s: %w", path, err)
	}
	return cfg, nil
}

// UploadSizeBytes returns the largest plan body the API accepts.
func (c *Config) UploadSizeBytes() int64 {
	return c.uploadSizeBytes
}

// SetUploadSizeBytes overrides the plan body limit; non-positive sizes are ignored.
func (c *Config) SetUploadSizeBytes(size int64) {
	if size <= 0 {
		return
	}
	c.uploadSizeBytes = size
	c.MaxUploadSize = strconv.FormatInt(size, 10)
}

// HandlerOptions converts the file settings into the router's options.
func (c *Config) HandlerOptions(version string, recorder *metrics.Recorder) Options {
	opts := Options{
		MaxUploadSize:  c.uploadSizeBytes,
		Version:        version,
		AllowedOrigins: c.AllowedOrigins,
	}
	if c.Metrics {
		opts.Recorder = recorder
	}
	return opts
}

func (c *Config) resolve() error {
	if strings.TrimSpace(c.Address) == "" {
		c.Address = constants.DefaultServerAddress
	}

	size, err := ParseSize(c.MaxUploadSize)
	if err != nil {
		return err
	}
	c.uploadSizeBytes = size

	origins := c.AllowedOrigins[:0]
	for _, origin := range c.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c.AllowedOrigins = origins

	for name, timeout := range map[string]*time.Duration{
		"read":     &c.Timeouts.Read,
		"write":    &c.Timeouts.Write,
		"idle":     &c.Timeouts.Idle,
		"shutdown": &c.Timeouts.Shutdown,
	} {
		if *timeout < 0 {
			return fmt.Errorf("%s timeout of %s is negative", name, *timeout)
		}
	}
	if c.Timeouts.Read == 0 {
		c.Timeouts.Read = defaultTimeouts.Read
	}
	if c.Timeouts.Write == 0 {
		c.Timeouts.Write = defaultTimeouts.Write
	}
	if c.Timeouts.Idle == 0 {
		c.Timeouts.Idle = defaultTimeouts.Idle
	}
	if c.Timeouts.Shutdown == 0 {
		c.Timeouts.Shutdown = defaultTimeouts.Shutdown
	}
	return nil
}

var sizeUnits = []struct {
	suffix     string
	multiplier int64
}{
	{"KB", 1 << 10},
	{"MB", 1 << 20},
	{"K", 1 << 10},
	{"M", 1 << 20},
	{"B", 1},
}

// ParseSize converts a plan size limit such as "256K", "1MB" or "4096" into
// bytes. An empty value means the default limit; plans never need
// gigabytes, so larger units are rejected.
func ParseSize(value string) (int64, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	if trimmed == "" {
		return constants.DefaultMaxUploadSizeBytes, nil
	}

	number, multiplier := trimmed, int64(1)
	for _, unit := range sizeUnits {
		if strings.HasSuffix(trimmed, unit.suffix) {
			number = strings.TrimSpace(strings.TrimSuffix(trimmed, unit.suffix))
			multiplier = unit.multiplier
			break
		}
	}

	n, err := strconv.ParseInt(number, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid upload size %q: %w", value, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("upload size %q must be positive", value)
	}
	if n > (1<<40)/multiplier {
		return 0, fmt.Errorf("upload size %q is too large", value)
	}
	return n * multiplier, nil
}
