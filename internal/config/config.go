// Package config holds the worker configuration. A Config is built once at
// startup from defaults, an optional YAML file and environment overrides, and
// passed explicitly to the components that need it.
package config

import (
	"io"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

const (
	DefaultRedisURL    = "redis://localhost:6379/0"
	DefaultQueue       = "celery"
	DefaultConcurrency = 5
)

// Environment variables read by Load.
const (
	EnvBroker      = "CELERY_BROKER_ADDR"
	EnvBackend     = "CELERY_BACKEND_ADDR"
	EnvConcurrency = "WORKER_CONCURRENCY"
	EnvLogLevel    = "LOG_LEVEL"
)

type Config struct {
	// Broker and Backend are redis:// URLs.
	Broker        string        `yaml:"broker"`
	Backend       string        `yaml:"backend"`
	Queue         string        `yaml:"queue"`
	Concurrency   int           `yaml:"concurrency"`
	ResultExpires time.Duration `yaml:"result_expires"`
	// HTTPTimeout bounds each outbound POST. Zero means no timeout.
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	// Listen is the address of the enqueue API. Empty disables it.
	Listen string `yaml:"listen"`
	Log    Log    `yaml:"log"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() *Config {
	return &Config{
		Broker:        DefaultRedisURL,
		Backend:       DefaultRedisURL,
		Queue:         DefaultQueue,
		Concurrency:   DefaultConcurrency,
		ResultExpires: 24 * time.Hour,
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load returns the default configuration overlaid with the YAML file at path
// (if path is not empty) and then with the environment.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if err := c.read(f); err != nil {
			return nil, errors.Wrapf(err, "reading %s", path)
		}
	}
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) read(r io.Reader) error {
	d := yaml.NewDecoder(r)
	d.KnownFields(true)
	if err := d.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvBroker); ok && v != "" {
		c.Broker = v
	}
	if v, ok := lookup(EnvBackend); ok && v != "" {
		c.Backend = v
	}
	if v, ok := lookup(EnvConcurrency); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "%s", EnvConcurrency)
		}
		c.Concurrency = n
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	return nil
}

func (c *Config) Validate() error {
	if _, err := c.BrokerOptions(); err != nil {
		return err
	}
	if _, err := c.BackendOptions(); err != nil {
		return err
	}
	if c.Queue == "" {
		return errors.New("queue must not be empty")
	}
	if c.Concurrency <= 0 {
		return errors.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.ResultExpires < 0 || c.HTTPTimeout < 0 {
		return errors.New("durations must not be negative")
	}
	return nil
}

func (c *Config) BrokerOptions() (*redis.Options, error) {
	opts, err := redis.ParseURL(c.Broker)
	return opts, errors.Wrap(err, "broker")
}

func (c *Config) BackendOptions() (*redis.Options, error) {
	opts, err := redis.ParseURL(c.Backend)
	return opts, errors.Wrap(err, "backend")
}
