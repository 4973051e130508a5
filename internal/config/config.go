// Package config loads the bot's YAML configuration file.
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/rxtech-lab/argo-bot/internal/exchange"
	"github.com/rxtech-lab/argo-bot/internal/scheduler"
	"github.com/rxtech-lab/argo-bot/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Environment variables overriding the exchange credentials of the file.
const (
	EnvAPIKey    = "BINANCE_API_KEY"
	EnvSecretKey = "BINANCE_SECRET_KEY"
)

const (
	defaultLogLevel = "info"
	defaultStrategy = "midmarket-logger"
)

// Config is the on-disk bot configuration.
type Config struct {
	Product  string                  `yaml:"product" jsonschema:"title=Product,description=Exchange symbol to trade,default=BTCUSDT" validate:"omitempty,alphanum,uppercase"`
	Exchange exchange.Credentials    `yaml:"exchange" jsonschema:"title=Exchange,required"`
	Feed     FeedConfig              `yaml:"feed" jsonschema:"title=Live Feed"`
	Schedule scheduler.TradingConfig `yaml:"schedule" jsonschema:"title=Schedule,required"`
	Stop     StopConfig              `yaml:"stop" jsonschema:"title=Stop"`
	Log      LogConfig               `yaml:"log" jsonschema:"title=Logging"`
	Metrics  MetricsConfig           `yaml:"metrics" jsonschema:"title=Metrics"`
	Strategy string                  `yaml:"strategy" jsonschema:"title=Strategy,description=Built-in strategy name,default=midmarket-logger"`
	// StatsFile receives the session stats as YAML when trading stops
	StatsFile string `yaml:"stats_file" jsonschema:"title=Stats File,description=Write session stats here on stop"`
}

// FeedConfig configures the live websocket feed.
type FeedConfig struct {
	Enabled        bool          `yaml:"enabled" jsonschema:"title=Enabled,description=Read the order book and last price from websockets"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay" jsonschema:"title=Reconnect Delay,description=Fixed wait between reconnects; 0 for exponential backoff" validate:"gte=0"`
	MaxReconnects  int           `yaml:"max_reconnects" jsonschema:"title=Max Reconnects,description=Give up after this many consecutive failed connects (0 = never)" validate:"gte=0"`
}

// StopConfig configures what stopping trading does.
type StopConfig struct {
	CancelOrders bool `yaml:"cancel_orders" jsonschema:"title=Cancel Orders,description=Cancel all open orders when trading stops"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level string `yaml:"level" jsonschema:"title=Level,enum=debug,enum=info,enum=warn,enum=error,default=info" validate:"omitempty,oneof=debug info warn error"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address of /metrics; empty disables it
	Addr string `yaml:"addr" jsonschema:"title=Address,description=Listen address for /metrics; empty disables it" validate:"omitempty,hostname_port"`
}

// StopOptions returns the scheduler stop options selected by the file.
func (c *Config) StopOptions() scheduler.StopOptions {
	return scheduler.StopOptions{Cancel: c.Stop.CancelOrders}
}

// Load reads, defaults, overrides from the environment and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeConfigFileError, err, "failed to read config file %s", path)
	}

	return Parse(data)
}

// Parse decodes a YAML document like Load does. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Product == "" {
		c.Product = exchange.DefaultProduct
	}

	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}

	if c.Strategy == "" {
		c.Strategy = defaultStrategy
	}
}

func (c *Config) applyEnv() {
	if key := os.Getenv(EnvAPIKey); key != "" {
		c.Exchange.APIKey = key
	}

	if secret := os.Getenv(EnvSecretKey); secret != "" {
		c.Exchange.SecretKey = secret
	}
}

// Validate validates the Config struct, including the credentials and the schedule.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	if err := c.Schedule.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid schedule", err)
	}

	return nil
}

// Schema returns the JSON schema of the config file.
func Schema() (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	r.FieldNameTag = "yaml"
	r.RequiredFromJSONSchemaTags = true
	schema := r.Reflect(&Config{})

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to marshal config schema", err)
	}

	return string(schemaBytes), nil
}
