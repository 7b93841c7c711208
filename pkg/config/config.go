// Package config loads the server configuration from a YAML file, applies
// environment overrides, and centralizes command-line flag parsing so flags
// win over env which wins over file.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Responder ResponderConfig `yaml:"responder"`
	Realtime  RealtimeConfig  `yaml:"realtime"`
	Security  SecurityConfig  `yaml:"security"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds the HTTP listen settings.
type ServerConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// StorageConfig selects and locates the store backend.
type StorageConfig struct {
	// Backend is "memory" (default) or "pebble".
	Backend string `yaml:"backend"`
	DBPath  string `yaml:"db_path"`
}

// ResponderConfig tunes the deferred reply generator.
type ResponderConfig struct {
	BaseDelayMs int   `yaml:"base_delay_ms"`
	JitterMs    int   `yaml:"jitter_ms"`
	MaxPending  int   `yaml:"max_pending"`
	Seed        int64 `yaml:"seed"`
}

// RealtimeConfig tunes the relay endpoint and client channel.
type RealtimeConfig struct {
	ReconnectDelayMs int `yaml:"reconnect_delay_ms"`
}

// SecurityConfig holds CORS and rate-limit settings.
type SecurityConfig struct {
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	c := &Config{}
	c.Server.Address = "127.0.0.1"
	c.Server.Port = 8080
	c.Storage.Backend = "memory"
	c.Storage.DBPath = "./data"
	return c
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. A missing file is not an error; env still applies.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overrides fields from CHATRELAY_* variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("CHATRELAY_ADDR"); v != "" {
		if host, port, ok := SplitAddr(v); ok {
			cfg.Server.Address = host
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CHATRELAY_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("CHATRELAY_DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("CHATRELAY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CHATRELAY_RESPONDER_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Responder.Seed = n
		}
	}
}

// SplitAddr parses a host:port string.
func SplitAddr(v string) (string, int, bool) {
	i := strings.LastIndex(v, ":")
	if i < 0 {
		return "", 0, false
	}
	port, err := strconv.Atoi(v[i+1:])
	if err != nil {
		return "", 0, false
	}
	return v[:i], port, true
}

// ParseCommandFlags parses the process flags and records which were set
// explicitly, so callers can let flags win over file and env values.
func ParseCommandFlags() (addr, db, cfgPath string, set map[string]bool) {
	addrFlag := flag.String("addr", "", "listen address (host:port)")
	dbFlag := flag.String("db", "", "pebble database path")
	cfgFlag := flag.String("config", "", "path to YAML config file")
	flag.Parse()
	set = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return *addrFlag, *dbFlag, *cfgFlag, set
}

// ResolveConfigPath picks the config file path: an explicit flag wins, then
// CHATRELAY_CONFIG, then the conventional default.
func ResolveConfigPath(flagVal string, flagSet bool) string {
	if flagSet && flagVal != "" {
		return flagVal
	}
	if v := os.Getenv("CHATRELAY_CONFIG"); v != "" {
		return v
	}
	return "chatrelay.yaml"
}
