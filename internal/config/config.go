// Package config loads service configuration with koanf.
//
// Precedence is ENV > file > defaults. The file is optional and is looked up
// via CONFIG_PATH, then config.yaml in the working directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// Store drivers.
const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Mongo   MongoConfig   `koanf:"mongo"`
	Store   StoreConfig   `koanf:"store"`
	Auth    AuthConfig    `koanf:"auth"`
	Gateway GatewayConfig `koanf:"gateway"`
	HTTP    HTTPConfig    `koanf:"http"`
	Log     LogConfig     `koanf:"log"`
}

type ServerConfig struct {
	Port            string        `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type MongoConfig struct {
	URI      string `koanf:"uri"`
	Database string `koanf:"database"`
	// Timeout bounds every store call; an expired call is a dropped event.
	Timeout time.Duration `koanf:"timeout"`
}

type StoreConfig struct {
	Driver string `koanf:"driver"`
}

type AuthConfig struct {
	Secret string `koanf:"secret"`
	// Keys is a kid:secret list, comma separated, for key rotation.
	Keys      string `koanf:"keys"`
	ActiveKid string `koanf:"active_kid"`
}

type GatewayConfig struct {
	EventsPerMinute int    `koanf:"events_per_minute"`
	Burst           int    `koanf:"burst"`
	SendBuffer      int    `koanf:"send_buffer"`
	AllowedOrigins  string `koanf:"allowed_origins"`
}

type HTTPConfig struct {
	RateLimitRPM int `koanf:"rate_limit_rpm"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Mongo: MongoConfig{
			Database: "storefront",
			Timeout:  5 * time.Second,
		},
		Store: StoreConfig{Driver: DriverMongo},
		Gateway: GatewayConfig{
			EventsPerMinute: 120,
			Burst:           20,
			SendBuffer:      256,
			AllowedOrigins:  "*",
		},
		HTTP: HTTPConfig{RateLimitRPM: 300},
		Log:  LogConfig{Level: "info", Format: "json"},
	}
}

// envMappings maps environment variables to koanf paths. Unlisted variables
// are ignored so the process environment cannot inject arbitrary keys.
var envMappings = map[string]string{
	"PORT":                   "server.port",
	"SHUTDOWN_TIMEOUT":       "server.shutdown_timeout",
	"MONGODB_URI":            "mongo.uri",
	"MONGODB_DATABASE":       "mongo.database",
	"MONGODB_TIMEOUT":        "mongo.timeout",
	"STORE_DRIVER":           "store.driver",
	"JWT_SECRET":             "auth.secret",
	"JWT_KEYS":               "auth.keys",
	"JWT_ACTIVE_KID":         "auth.active_kid",
	"CHAT_EVENTS_PER_MINUTE": "gateway.events_per_minute",
	"CHAT_EVENT_BURST":       "gateway.burst",
	"CHAT_SEND_BUFFER":       "gateway.send_buffer",
	"CHAT_ALLOWED_ORIGINS":   "gateway.allowed_origins",
	"RATE_LIMIT_RPM":         "http.rate_limit_rpm",
	"LOG_LEVEL":              "log.level",
	"LOG_FORMAT":             "log.format",
}

func envTransformFunc(key string) string {
	return envMappings[key]
}

// Load builds the configuration from defaults, the optional file and the
// environment, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	for _, p := range []string{"config.yaml", "config.yml"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case DriverMongo:
		if c.Mongo.URI == "" {
			errs = append(errs, errors.New("mongo.uri (MONGODB_URI) must be set"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("store.driver must be %q or %q, got %q", DriverMongo, DriverMemory, c.Store.Driver))
	}
	if c.Auth.Secret == "" && c.Auth.Keys == "" {
		errs = append(errs, errors.New("either auth.secret (JWT_SECRET) or auth.keys (JWT_KEYS) must be set"))
	}
	if _, err := c.Auth.KeyMap(); err != nil {
		errs = append(errs, err)
	}
	if c.Mongo.Timeout <= 0 {
		errs = append(errs, errors.New("mongo.timeout must be positive"))
	}
	if c.Gateway.SendBuffer <= 0 {
		errs = append(errs, errors.New("gateway.send_buffer must be positive"))
	}
	return errors.Join(errs...)
}

// KeyMap parses Keys ("kid:secret,kid2:secret2"). Empty Keys yields a nil map.
func (a AuthConfig) KeyMap() (map[string]string, error) {
	if a.Keys == "" {
		return nil, nil
	}
	keys := map[string]string{}
	for _, p := range strings.Split(a.Keys, ",") {
		if p == "" {
			continue
		}
		parts := strings.SplitN(p, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid auth.keys entry: %q", p)
		}
		keys[parts[0]] = parts[1]
	}
	return keys, nil
}

// Origins splits AllowedOrigins on commas.
func (g GatewayConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(g.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
