// Package config assembles service settings from defaults, an optional YAML
// file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"artifactlive.org/internal/pricing"
)

// Environment variables read by Load.
const (
	EnvPGDSN      = "ARTIFACT_PG_DSN"
	EnvSQLitePath = "ARTIFACT_SQLITE_PATH"
	EnvHTTPAddr   = "ARTIFACT_HTTP_ADDR"
	EnvGRPCAddr   = "ARTIFACT_GRPC_ADDR"
	EnvAuthSecret = "ARTIFACT_AUTH_SECRET"
	EnvDevTokens  = "ARTIFACT_DEV_TOKENS"
	EnvRateBurst  = "ARTIFACT_RATE_BURST"
	EnvRatePerSec = "ARTIFACT_RATE_PER_SEC"
	EnvConfigFile = "ARTIFACT_CONFIG"
	EnvLogLevel   = "ARTIFACT_LOG_LEVEL"
	EnvTokenTTL   = "ARTIFACT_TOKEN_TTL"
)

// ErrInvalid wraps every validation failure reported by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Config is the resolved service configuration.
type Config struct {
	HTTPAddr   string
	GRPCAddr   string
	PGDSN      string
	SQLitePath string
	AuthSecret string
	DevTokens  string
	RateBurst  int
	RatePerSec int
	LogLevel   string
	TokenTTL   time.Duration
	Pricing    pricing.Config
}

// File mirrors the YAML configuration file.
type File struct {
	Server  ServerFile         `yaml:"server"`
	Pricing map[string]float64 `yaml:"pricing,omitempty"`
}

// ServerFile holds the server block of the YAML file.
type ServerFile struct {
	HTTPAddr   string `yaml:"http_addr,omitempty"`
	GRPCAddr   string `yaml:"grpc_addr,omitempty"`
	SQLitePath string `yaml:"sqlite_path,omitempty"`
	LogLevel   string `yaml:"log_level,omitempty"`
	RateBurst  int    `yaml:"rate_burst,omitempty"`
	RatePerSec int    `yaml:"rate_per_sec,omitempty"`
	TokenTTL   string `yaml:"token_ttl,omitempty"` // Go duration, e.g. "15m"
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		HTTPAddr:   ":8080",
		RateBurst:  50,
		RatePerSec: 25,
		LogLevel:   "info",
		TokenTTL:   time.Hour,
		Pricing:    pricing.DefaultConfig(),
	}
}

// Load reads an optional .env file (envPath, or ./.env when present), the
// YAML file named by ARTIFACT_CONFIG and finally the environment.
func Load(envPath ...string) (Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return Config{}, fmt.Errorf("load .env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg := Default()
	if path := strings.TrimSpace(os.Getenv(EnvConfigFile)); path != "" {
		f, err := ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := cfg.applyFile(f); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ReadFile parses a YAML configuration file.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &f, nil
}

func (c *Config) applyFile(f *File) error {
	s := f.Server
	if s.HTTPAddr != "" {
		c.HTTPAddr = s.HTTPAddr
	}
	if s.GRPCAddr != "" {
		c.GRPCAddr = s.GRPCAddr
	}
	if s.SQLitePath != "" {
		c.SQLitePath = s.SQLitePath
	}
	if s.LogLevel != "" {
		c.LogLevel = s.LogLevel
	}
	if s.RateBurst != 0 {
		c.RateBurst = s.RateBurst
	}
	if s.RatePerSec != 0 {
		c.RatePerSec = s.RatePerSec
	}
	if s.TokenTTL != "" {
		d, err := time.ParseDuration(s.TokenTTL)
		if err != nil {
			return fmt.Errorf("%w: server.token_ttl: %v", ErrInvalid, err)
		}
		c.TokenTTL = d
	}
	if len(f.Pricing) > 0 {
		updates := make(map[string]decimal.Decimal, len(f.Pricing))
		for k, v := range f.Pricing {
			updates[k] = decimal.NewFromFloat(v)
		}
		p, err := c.Pricing.Apply(updates)
		if err != nil {
			return fmt.Errorf("%w: pricing: %v", ErrInvalid, err)
		}
		c.Pricing = p
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.PGDSN, EnvPGDSN)
	setString(&c.SQLitePath, EnvSQLitePath)
	setString(&c.HTTPAddr, EnvHTTPAddr)
	setString(&c.GRPCAddr, EnvGRPCAddr)
	setString(&c.AuthSecret, EnvAuthSecret)
	setString(&c.DevTokens, EnvDevTokens)
	setString(&c.LogLevel, EnvLogLevel)
	if err := setInt(&c.RateBurst, EnvRateBurst); err != nil {
		return err
	}
	if err := setInt(&c.RatePerSec, EnvRatePerSec); err != nil {
		return err
	}
	if v := strings.TrimSpace(os.Getenv(EnvTokenTTL)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, EnvTokenTTL, err)
		}
		c.TokenTTL = d
	}
	return nil
}

// Validate checks ranges and required combinations.
func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return fmt.Errorf("%w: http address is required", ErrInvalid)
	}
	if c.RateBurst <= 0 || c.RatePerSec <= 0 {
		return fmt.Errorf("%w: rate limits must be positive", ErrInvalid)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("%w: token ttl must be positive", ErrInvalid)
	}
	if c.PGDSN != "" && c.SQLitePath != "" {
		return fmt.Errorf("%w: set only one of %s and %s", ErrInvalid, EnvPGDSN, EnvSQLitePath)
	}
	if c.DevTokens != "" && c.AuthSecret == "" {
		return fmt.Errorf("%w: %s requires %s", ErrInvalid, EnvDevTokens, EnvAuthSecret)
	}
	if err := c.Pricing.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
	}
	*dst = n
	return nil
}
