package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"

	devJWTSecret = "your_secret_key_please_change_in_production"
)

type Config struct {
	Env               string        `yaml:"env"`
	ListenAddr        string        `yaml:"listenAddr"`
	LogLevel          string        `yaml:"logLevel"`
	Store             string        `yaml:"store"`
	EdgeStore         string        `yaml:"edgeStore"`
	DatabaseURL       string        `yaml:"databaseURL"`
	RedisURL          string        `yaml:"redisURL"`
	AMQPURL           string        `yaml:"amqpURL"`
	JWTSecret         string        `yaml:"jwtSecret"`
	GatewaySecretHash string        `yaml:"gatewaySecretHash"`
	TokenTTL          time.Duration `yaml:"tokenTTL"`
	ShutdownTimeout   time.Duration `yaml:"shutdownTimeout"`
	AllowedOrigins    []string      `yaml:"allowedOrigins"`
}

func Default() Config {
	return Config{
		Env:             "development",
		ListenAddr:      ":8080",
		LogLevel:        "info",
		Store:           StoreMemory,
		TokenTTL:        24 * time.Hour,
		ShutdownTimeout: 10 * time.Second,
		AllowedOrigins: []string{
			"http://localhost:5173",
			"http://127.0.0.1:5173",
			"http://localhost:3001",
			"http://127.0.0.1:3001",
		},
	}
}

// Development reports whether the service runs outside production. An empty
// GO_ENV counts as development.
func (c Config) Development() bool {
	return c.Env == "" || c.Env == "development"
}

// EdgeBackend is the store holding interest edges; it follows Store unless
// overridden.
func (c Config) EdgeBackend() string {
	if c.EdgeStore == "" {
		return c.Store
	}
	return c.EdgeStore
}

// Load resolves the configuration: defaults, then the YAML file named by
// --config (if any), then environment variables, then the remaining flags.
func Load(args []string) (Config, error) {
	flags := pflag.NewFlagSet("match-me-bot", pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to a YAML config file")
	addr := flags.String("addr", "", "listen address, e.g. :8080")
	store := flags.String("store", "", "profile store backend: memory or postgres")
	edgeStore := flags.String("edge-store", "", "interest edge backend: memory, postgres or redis")
	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if *configPath != "" {
		if err := mergeFile(&cfg, *configPath); err != nil {
			return Config{}, err
		}
	}
	ApplyEnvOverrides(&cfg)

	if flags.Changed("addr") {
		cfg.ListenAddr = *addr
	}
	if flags.Changed("store") {
		cfg.Store = *store
	}
	if flags.Changed("edge-store") {
		cfg.EdgeStore = *edgeStore
	}

	if cfg.JWTSecret == "" && cfg.Development() {
		cfg.JWTSecret = devJWTSecret
	}
	return cfg, cfg.Validate()
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	Merge(cfg, parsed)
	return nil
}

// Merge copies every non-zero field of src into dst.
func Merge(dst *Config, src Config) {
	set := func(d *string, s string) {
		if s != "" {
			*d = s
		}
	}
	set(&dst.Env, src.Env)
	set(&dst.ListenAddr, src.ListenAddr)
	set(&dst.LogLevel, src.LogLevel)
	set(&dst.Store, src.Store)
	set(&dst.EdgeStore, src.EdgeStore)
	set(&dst.DatabaseURL, src.DatabaseURL)
	set(&dst.RedisURL, src.RedisURL)
	set(&dst.AMQPURL, src.AMQPURL)
	set(&dst.JWTSecret, src.JWTSecret)
	set(&dst.GatewaySecretHash, src.GatewaySecretHash)
	if src.TokenTTL != 0 {
		dst.TokenTTL = src.TokenTTL
	}
	if src.ShutdownTimeout != 0 {
		dst.ShutdownTimeout = src.ShutdownTimeout
	}
	if len(src.AllowedOrigins) > 0 {
		dst.AllowedOrigins = src.AllowedOrigins
	}
}

var envVars = map[string]func(*Config) *string{
	"GO_ENV":              func(c *Config) *string { return &c.Env },
	"LISTEN_ADDR":         func(c *Config) *string { return &c.ListenAddr },
	"LOG_LEVEL":           func(c *Config) *string { return &c.LogLevel },
	"STORE_BACKEND":       func(c *Config) *string { return &c.Store },
	"EDGE_STORE_BACKEND":  func(c *Config) *string { return &c.EdgeStore },
	"DATABASE_URL":        func(c *Config) *string { return &c.DatabaseURL },
	"REDIS_URL":           func(c *Config) *string { return &c.RedisURL },
	"AMQP_URL":            func(c *Config) *string { return &c.AMQPURL },
	"JWT_SECRET":          func(c *Config) *string { return &c.JWTSecret },
	"GATEWAY_SECRET_HASH": func(c *Config) *string { return &c.GatewaySecretHash },
}

func ApplyEnvOverrides(cfg *Config) {
	for name, field := range envVars {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*field(cfg) = v
		}
	}
	if raw := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); raw != "" {
		var origins []string
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.AllowedOrigins = origins
	}
	if raw := strings.TrimSpace(os.Getenv("TOKEN_TTL")); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			cfg.TokenTTL = d
		}
	}
}

func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: postgres store needs DATABASE_URL")
		}
	default:
		return fmt.Errorf("config: unknown store %q", c.Store)
	}
	switch c.EdgeBackend() {
	case StoreMemory, StorePostgres:
		if c.EdgeBackend() == StorePostgres && c.DatabaseURL == "" {
			return errors.New("config: postgres edge store needs DATABASE_URL")
		}
	case StoreRedis:
		if c.RedisURL == "" {
			return errors.New("config: redis edge store needs REDIS_URL")
		}
	default:
		return fmt.Errorf("config: unknown edge store %q", c.EdgeStore)
	}
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required outside development")
	}
	if !c.Development() && c.GatewaySecretHash == "" {
		return errors.New("config: GATEWAY_SECRET_HASH is required outside development")
	}
	return nil
}
