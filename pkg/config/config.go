// Package config loads recipegraph settings from a TOML file.
//
// Every field has a default, so a missing file is not an error. Values are
// layered: defaults, then the file, then environment variables, then CLI
// flags (applied by the caller).
//
//	[log]
//	severities = ["info", "warning", "error"]
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"

	rgerrors "github.com/matzehuels/recipegraph/pkg/errors"
)

// Environment variables read by [Load].
const (
	EnvConfig    = "RECIPEGRAPH_CONFIG"
	EnvMongoURI  = "RECIPEGRAPH_MONGO_URI"
	EnvRedisAddr = "RECIPEGRAPH_REDIS_ADDR"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = "recipegraph.toml"

// Config is the complete application configuration.
type Config struct {
	Data   DataConfig   `toml:"data"`
	Log    LogConfig    `toml:"log"`
	Cache  CacheConfig  `toml:"cache"`
	Mongo  MongoConfig  `toml:"mongo"`
	Detect DetectConfig `toml:"detect"`
	Render RenderConfig `toml:"render"`
	Server ServerConfig `toml:"server"`
}

// DataConfig names the directories used by file-based commands.
type DataConfig struct {
	Dir       string `toml:"dir" validate:"required"`
	Processed string `toml:"processed_dir" validate:"required"`
	Output    string `toml:"output_dir" validate:"required"`
}

// LogConfig lists the severities that should be emitted.
type LogConfig struct {
	Severities []string `toml:"severities" validate:"min=1,dive,oneof=trace debug info warning error"`
	// File, when set, receives log output instead of stderr.
	File string `toml:"file"`
}

// CacheConfig selects and configures the cache backend.
type CacheConfig struct {
	Backend       string        `toml:"backend" validate:"oneof=file redis none"`
	Dir           string        `toml:"dir"`
	RedisAddr     string        `toml:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string        `toml:"redis_password"`
	RedisDB       int           `toml:"redis_db" validate:"gte=0"`
	Prefix        string        `toml:"prefix"`
	TTL           time.Duration `toml:"ttl" validate:"gte=0"`

	// ConnectAttempts bounds PING retries against Redis. Zero means 3.
	ConnectAttempts int `toml:"connect_attempts" validate:"gte=0"`
}

// MongoConfig locates the record store.
type MongoConfig struct {
	URI        string        `toml:"uri"`
	Database   string        `toml:"database" validate:"required"`
	Collection string        `toml:"collection" validate:"required"`
	Timeout    time.Duration `toml:"timeout" validate:"gte=0"`

	// ConnectAttempts bounds ping retries. Zero means 3.
	ConnectAttempts int `toml:"connect_attempts" validate:"gte=0"`
}

// DetectConfig holds the default community detection policy.
type DetectConfig struct {
	Method         string `toml:"method" validate:"oneof=modularity common"`
	FullDendrogram bool   `toml:"full_dendrogram"`
}

// RenderConfig holds node-link rendering defaults.
type RenderConfig struct {
	Detailed   bool   `toml:"detailed"`
	Quantities bool   `toml:"quantities"`
	RankDir    string `toml:"rankdir" validate:"oneof=LR TB RL BT"`
}

// ServerConfig configures `recipegraph serve`.
type ServerConfig struct {
	Addr            string        `toml:"addr" validate:"required"`
	ReadTimeout     time.Duration `toml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `toml:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" validate:"gte=0"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Data: DataConfig{
			Dir:       "data",
			Processed: filepath.Join("data", "processed"),
			Output:    "graphs",
		},
		Log: LogConfig{
			Severities: []string{"info", "warning", "error"},
		},
		Cache: CacheConfig{
			Backend: "file",
			Prefix:  "recipegraph:",
		},
		Mongo: MongoConfig{
			Database:   "recipegraph",
			Collection: "recipes",
			Timeout:    10 * time.Second,
		},
		Detect: DetectConfig{
			Method: "modularity",
		},
		Render: RenderConfig{
			Quantities: true,
			RankDir:    "LR",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path falls back to $RECIPEGRAPH_CONFIG, then to DefaultFile if it
// exists. An explicitly named file that is missing is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfig)
		explicit = path != ""
	}
	if path == "" {
		path = DefaultFile
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		var pathErr *fs.PathError
		switch {
		case errors.As(err, &pathErr) && errors.Is(err, fs.ErrNotExist) && !explicit:
		case errors.As(err, &pathErr):
			return cfg, rgerrors.Resource(err, "read config %s", path)
		default:
			return cfg, rgerrors.Wrap(rgerrors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
	}

	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

// ApplyEnv overrides connection settings from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvMongoURI); v != "" {
		c.Mongo.URI = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.Cache.RedisAddr = v
	}
}

var validate = validator.New()

// Validate checks field constraints. Failures are INVALID_CONFIG errors.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return rgerrors.Wrap(rgerrors.ErrCodeInvalidConfig, err, "validate config")
		}
		msgs := make([]string, 0, len(verrs))
		for _, e := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s: failed %q", strings.ToLower(e.Namespace()), e.Tag()))
		}
		return rgerrors.New(rgerrors.ErrCodeInvalidConfig, "%s", strings.Join(msgs, "; "))
	}
	return nil
}

var severityLevels = map[string]log.Level{
	"trace":   log.DebugLevel,
	"debug":   log.DebugLevel,
	"info":    log.InfoLevel,
	"warning": log.WarnLevel,
	"error":   log.ErrorLevel,
}

// Threshold returns the logger level of the least severe enabled severity.
// A threshold alone would let "info" through when only "debug" and "error"
// are enabled; the CLI pairs it with a filter built from [LogConfig.Levels].
func (l LogConfig) Threshold() log.Level {
	best := log.FatalLevel
	for _, s := range l.Severities {
		if lvl, ok := severityLevels[strings.ToLower(s)]; ok && lvl < best {
			best = lvl
		}
	}
	return best
}

// Levels returns the logger levels of the enabled severities. trace and
// debug share the debug level. Fatal is always included.
func (l LogConfig) Levels() map[log.Level]bool {
	levels := map[log.Level]bool{log.FatalLevel: true}
	for _, s := range l.Severities {
		if lvl, ok := severityLevels[strings.ToLower(s)]; ok {
			levels[lvl] = true
		}
	}
	return levels
}

// Enabled reports whether severity is listed.
func (l LogConfig) Enabled(severity string) bool {
	for _, s := range l.Severities {
		if strings.EqualFold(s, severity) {
			return true
		}
	}
	return false
}
