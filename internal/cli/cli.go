package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/recipegraph/pkg/buildinfo"
	"github.com/matzehuels/recipegraph/pkg/cache"
	"github.com/matzehuels/recipegraph/pkg/config"
	"github.com/matzehuels/recipegraph/pkg/pipeline"
	"github.com/matzehuels/recipegraph/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "recipegraph"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config config.Config

	configPath string
	logOut     io.Writer
	logFile    io.Closer
}

// New creates a new CLI instance with a default logger and the built-in
// configuration. The config file is read in the root command's pre-run.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
		logOut: w,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// LoadConfig reads the config file, applies its log settings and keeps it
// for the commands. verbose forces debug logging.
func (c *CLI) LoadConfig(verbose bool) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.Config = cfg

	if c.logFile != nil {
		c.logFile.Close()
		c.logFile = nil
	}
	out := c.logOut
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		out = f
		c.logFile = f
	}

	level := cfg.Log.Threshold()
	if verbose {
		level = LogDebug
	} else {
		out = newSeverityFilter(out, cfg.Log.Levels())
	}
	c.Logger.SetOutput(out)
	c.SetLogLevel(level)
	// trace shares the debug level but also reports call sites.
	c.Logger.SetReportCaller(cfg.Log.Enabled("trace"))
	c.Logger.Debug("loaded config", "path", c.configPath, "severities", cfg.Log.Severities)
	return nil
}

// Close releases the log file, if any.
func (c *CLI) Close() error {
	if c.logFile != nil {
		return c.logFile.Close()
	}
	return nil
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Recipegraph finds communities in production recipe graphs",
		Long:         `Recipegraph turns production recipes into a weighted product → ingredient graph and partitions it into communities, either by greedy modularity maximization or by shared-ingredient overlap.`,
		Version:      buildinfo.Get().Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: $RECIPEGRAPH_CONFIG or ./recipegraph.toml)")

	// Register all subcommands
	root.AddCommand(c.transformCommand())
	root.AddCommand(c.buildCommand())
	root.AddCommand(c.communitiesCommand())
	root.AddCommand(c.commonCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.importCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cc, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	// Redis namespaces keys itself so that Clear can scan for them.
	keyer := cache.NewDefaultKeyer()
	if c.Config.Cache.Prefix != "" && c.Config.Cache.Backend != "redis" {
		keyer = cache.NewScopedKeyer(keyer, c.Config.Cache.Prefix)
	}
	runner := pipeline.NewRunner(cc, keyer, c.Logger)
	runner.TTL = c.Config.Cache.TTL
	return runner, nil
}

// newCache opens the configured backend. A file cache whose directory
// cannot be resolved degrades to no caching.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	cfg := c.Config.Cache
	switch cfg.Backend {
	case "none":
		return cache.NewNullCache(), nil
	case "redis":
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.Prefix,
			Retry:    cache.Backoff{Attempts: cfg.ConnectAttempts},
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis cache: %w", err)
		}
		return rc, nil
	default:
		dir := cfg.Dir
		if dir == "" {
			d, err := cacheDir()
			if err != nil {
				c.Logger.Warn("cache disabled", "err", err)
				return cache.NewNullCache(), nil
			}
			dir = d
		}
		return cache.NewFileCache(dir)
	}
}

// openStore connects to the configured Mongo record store.
func (c *CLI) openStore(ctx context.Context) (*store.Mongo, error) {
	m := c.Config.Mongo
	return store.Open(ctx, store.Config{
		URI:        m.URI,
		Database:   m.Database,
		Collection: m.Collection,
		Timeout:    m.Timeout,
		Retry:      cache.Backoff{Attempts: m.ConnectAttempts},
	})
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/recipegraph/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// pipelineOptions seeds pipeline options from the config file.
func (c *CLI) pipelineOptions() pipeline.Options {
	return pipeline.Options{
		Method:         c.Config.Detect.Method,
		FullDendrogram: c.Config.Detect.FullDendrogram,
		Detailed:       c.Config.Render.Detailed,
		Quantities:     c.Config.Render.Quantities,
		RankDir:        c.Config.Render.RankDir,
		Logger:         c.Logger,
	}
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
