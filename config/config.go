package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type AuditBackend string

const (
	AuditBackendNone   AuditBackend = "none"
	AuditBackendLog    AuditBackend = "log"
	AuditBackendCosmos AuditBackend = "cosmos"
	AuditBackendRedis  AuditBackend = "redis"
)

type CORSConfig struct {
	Enable         bool     `yaml:"enable" json:"enable"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
}

type ListenerConfig struct {
	Address   string     `yaml:"address" json:"address"`
	AccessLog bool       `yaml:"access_log" json:"access_log"`
	CORS      CORSConfig `yaml:"cors" json:"cors"`
	// ErrorStatusCodes maps failure classes to 4xx/5xx instead of answering
	// every error with 200.
	ErrorStatusCodes bool `yaml:"error_status_codes" json:"error_status_codes"`
}

type VoiceConfig struct {
	Lang   string `yaml:"lang" json:"lang"`
	Gender string `yaml:"gender" json:"gender"`
	Name   string `yaml:"name" json:"name"`
}

type SpeechConfig struct {
	Endpoint     string        `yaml:"endpoint" json:"endpoint"`
	Key          string        `yaml:"key" json:"-"`
	OutputFormat string        `yaml:"output_format" json:"output_format"`
	ContentType  string        `yaml:"content_type" json:"content_type"`
	Voice        VoiceConfig   `yaml:"voice" json:"voice"`
	SSMLMode     string        `yaml:"ssml_mode" json:"ssml_mode"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
}

type CosmosConfig struct {
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	Key       string `yaml:"key" json:"-"`
	Database  string `yaml:"database" json:"database"`
	Container string `yaml:"container" json:"container"`
}

type RedisConfig struct {
	URL       string        `yaml:"url" json:"url"`
	KeyPrefix string        `yaml:"key_prefix" json:"key_prefix"`
	TTL       time.Duration `yaml:"ttl" json:"ttl"`
}

type AuditConfig struct {
	Backend AuditBackend `yaml:"backend" json:"backend"`
	// Required makes a failed audit write fail the request, discarding any
	// audio already synthesized.
	Required *bool        `yaml:"required" json:"required"`
	Cosmos   CosmosConfig `yaml:"cosmos" json:"cosmos"`
	Redis    RedisConfig  `yaml:"redis" json:"redis"`
}

func (c AuditConfig) IsRequired() bool {
	return c.Required == nil || *c.Required
}

func (c AuditConfig) Enabled() bool {
	return c.Backend != "" && c.Backend != AuditBackendNone
}

type Config struct {
	Debug    bool           `yaml:"debug" json:"debug"`
	Listener ListenerConfig `yaml:"listener" json:"listener"`
	Speech   SpeechConfig   `yaml:"speech" json:"speech"`
	Audit    AuditConfig    `yaml:"audit" json:"audit"`
}

// LoadConfig loads the configuration from the specified YAML file, an empty
// path skips the file, then applies the environment on top.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer file.Close()

		decoder := yaml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from files into the process environment
// without overriding variables that are already set. Missing files are
// skipped. Dashed names are not valid in env files, use the SPEECHRELAY_ forms.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}

		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}

	return nil
}

func (c *Config) setDefaults() {
	if c.Listener.Address == "" {
		c.Listener.Address = ":8000"
	}

	if c.Audit.Backend == "" {
		c.Audit.Backend = AuditBackendNone
	}

	if c.Audit.Redis.KeyPrefix == "" {
		c.Audit.Redis.KeyPrefix = "speechrelay:audit"
	}
}

// Validate only reports structural problems. Missing speech credentials are
// passed through and fail at call time.
func (c *Config) Validate() error {
	mulErrs := &multierror.Error{}

	switch c.Audit.Backend {
	case "", AuditBackendNone, AuditBackendLog:
	case AuditBackendCosmos:
		if c.Audit.Cosmos.Endpoint == "" {
			mulErrs = multierror.Append(mulErrs, errors.New("audit.cosmos.endpoint is required for the cosmos backend"))
		}
		if c.Audit.Cosmos.Database == "" {
			mulErrs = multierror.Append(mulErrs, errors.New("audit.cosmos.database is required for the cosmos backend"))
		}
		if c.Audit.Cosmos.Container == "" {
			mulErrs = multierror.Append(mulErrs, errors.New("audit.cosmos.container is required for the cosmos backend"))
		}
	case AuditBackendRedis:
		if c.Audit.Redis.URL == "" {
			mulErrs = multierror.Append(mulErrs, errors.New("audit.redis.url is required for the redis backend"))
		}
	default:
		mulErrs = multierror.Append(mulErrs, fmt.Errorf("unknown audit backend %q", c.Audit.Backend))
	}

	switch c.Speech.SSMLMode {
	case "", "escape", "passthrough":
	default:
		mulErrs = multierror.Append(mulErrs, fmt.Errorf("unknown speech.ssml_mode %q", c.Speech.SSMLMode))
	}

	if c.Audit.Redis.TTL < 0 || (c.Audit.Redis.TTL > 0 && c.Audit.Redis.TTL < time.Millisecond) {
		mulErrs = multierror.Append(mulErrs, errors.New("audit.redis.ttl must be zero or at least 1ms"))
	}

	if c.Speech.Timeout < 0 {
		mulErrs = multierror.Append(mulErrs, errors.New("speech.timeout must not be negative"))
	}

	return mulErrs.ErrorOrNil()
}
