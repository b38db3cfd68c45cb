// Package config handles configuration loading and defaults.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Default values.
const (
	DefaultAddr       = ":8080"
	DefaultStorage    = "file"
	DefaultDataFile   = "todos.json"
	DefaultSQLitePath = "data/todos.db"
	DefaultLogLevel   = "info"
	DefaultWebDir     = "web"
)

// Config holds every runtime knob for the server.
type Config struct {
	Addr       string `toml:"addr"`
	Storage    string `toml:"storage"` // "file" or "sqlite"
	DataFile   string `toml:"data_file"`
	SQLitePath string `toml:"sqlite_path"`
	LogLevel   string `toml:"log_level"`
	WebDir     string `toml:"web_dir"`

	// Global rate limit; 0 rps disables it.
	RateRPS   float64 `toml:"rate_rps"`
	RateBurst int     `toml:"rate_burst"`

	CORSOrigins []string `toml:"cors_origins"`

	// Tracing is "off", "stdout", or "otlp". OTLPEndpoint only matters
	// in otlp mode and falls back to the exporter's own default.
	Tracing      string `toml:"tracing"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
}

// Load builds configuration in priority order:
// 1. Defaults
// 2. Config file (todo-api.toml in the working directory, or TODO_CONFIG)
// 3. Environment variables
// 4. CLI flags
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}
	setDefaults(cfg)

	path := configFilePath()
	if path != "" {
		if err := loadConfigFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	loadFromEnv(cfg)

	if err := parseFlags(cfg, fs, args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.Addr = DefaultAddr
	cfg.Storage = DefaultStorage
	cfg.DataFile = DefaultDataFile
	cfg.SQLitePath = DefaultSQLitePath
	cfg.LogLevel = DefaultLogLevel
	cfg.WebDir = DefaultWebDir
	cfg.RateRPS = 0
	cfg.RateBurst = 1
	cfg.CORSOrigins = []string{"*"}
	cfg.Tracing = "off"
}

func configFilePath() string {
	if p := os.Getenv("TODO_CONFIG"); p != "" {
		return p
	}
	if _, err := os.Stat("todo-api.toml"); err == nil {
		return "todo-api.toml"
	}
	return ""
}

func loadConfigFile(cfg *Config, path string) error {
	_, err := toml.DecodeFile(path, cfg)
	return err
}

// loadFromEnv overrides config from TODO_* environment variables.
func loadFromEnv(cfg *Config) {
	setStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setStr("TODO_ADDR", &cfg.Addr)
	setStr("TODO_STORAGE", &cfg.Storage)
	setStr("TODO_DATA_FILE", &cfg.DataFile)
	setStr("TODO_SQLITE_PATH", &cfg.SQLitePath)
	setStr("LOG_LEVEL", &cfg.LogLevel)
	setStr("TODO_WEB_DIR", &cfg.WebDir)
	setStr("TODO_TRACING", &cfg.Tracing)
	setStr("TODO_OTLP_ENDPOINT", &cfg.OTLPEndpoint)

	if v := os.Getenv("TODO_RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateRPS = f
		}
	}
	if v := os.Getenv("TODO_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateBurst = n
		}
	}
	if v := os.Getenv("TODO_CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitCSV(v)
	}
}

// parseFlags registers CLI flags and applies them on top of everything else.
func parseFlags(cfg *Config, fs *flag.FlagSet, args []string) error {
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.StringVar(&cfg.Storage, "storage", cfg.Storage, "storage backend: file or sqlite")
	fs.StringVar(&cfg.DataFile, "data-file", cfg.DataFile, "path to the JSON data file")
	fs.StringVar(&cfg.SQLitePath, "sqlite-path", cfg.SQLitePath, "path to the sqlite database")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&cfg.WebDir, "web-dir", cfg.WebDir, "directory with the static browser client")
	fs.Float64Var(&cfg.RateRPS, "rate-rps", cfg.RateRPS, "requests per second allowed; 0 disables limiting")
	fs.IntVar(&cfg.RateBurst, "rate-burst", cfg.RateBurst, "rate limiter burst size")
	fs.StringVar(&cfg.Tracing, "tracing", cfg.Tracing, "tracing mode: off, stdout, otlp")
	fs.StringVar(&cfg.OTLPEndpoint, "otlp-endpoint", cfg.OTLPEndpoint, "OTLP HTTP endpoint host:port")

	origins := fs.String("cors-origins", "", "comma-separated allowed CORS origins")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *origins != "" {
		cfg.CORSOrigins = splitCSV(*origins)
	}
	return nil
}

func validate(cfg *Config) error {
	switch cfg.Storage {
	case "file", "sqlite":
	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
	switch cfg.Tracing {
	case "off", "stdout", "otlp":
	default:
		return fmt.Errorf("unknown tracing mode %q", cfg.Tracing)
	}
	return nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
