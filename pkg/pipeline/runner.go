package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/recipegraph/pkg/cache"
	"github.com/matzehuels/recipegraph/pkg/community"
	rgerrors "github.com/matzehuels/recipegraph/pkg/errors"
	"github.com/matzehuels/recipegraph/pkg/graph"
	"github.com/matzehuels/recipegraph/pkg/observability"
	"github.com/matzehuels/recipegraph/pkg/recipe"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	// TTL, when positive, replaces the per-artifact default expirations.
	TTL time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Detection is the outcome of one detection method.
type Detection struct {
	Method      string
	Labeled     *graph.Graph
	Modularity  *community.Result
	Layering    *community.Layering
	Q           float64
	Communities int
}

// Execute runs the complete load → build → detect → render pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{
		RunID:     uuid.NewString(),
		Method:    opts.Method,
		Artifacts: make(map[string][]byte),
	}
	logger := opts.Logger.With("run", result.RunID[:8])

	// Stage 1: Load
	loadStart := time.Now()
	records, skipped, err := r.Load(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Records = records
	result.Stats.LoadTime = time.Since(loadStart)
	logger.Info("loaded records", "records", len(records), "duration", result.Stats.LoadTime)

	// Stage 2: Build
	buildStart := time.Now()
	g, report := r.Build(ctx, records)
	report.Skipped = append(skipped, report.Skipped...)
	result.Graph = g
	result.Report = report
	result.Stats.BuildTime = time.Since(buildStart)
	result.Stats.Records = report.Accepted
	result.Stats.Skipped = len(report.Skipped)
	result.Stats.NodeCount = g.NodeCount()
	result.Stats.EdgeCount = g.EdgeCount()
	LogReport(logger, report)
	logger.Info("built graph",
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"skipped", len(report.Skipped),
		"duration", result.Stats.BuildTime)

	if data, err := graph.Marshal(g); err == nil {
		result.GraphHash = cache.Hash(data)
	}

	// Stage 3: Detect
	detectStart := time.Now()
	det, detectHit, err := r.DetectWithCacheInfo(ctx, g, result.GraphHash, opts)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	result.Labeled = det.Labeled
	result.Modularity = det.Modularity
	result.Layering = det.Layering
	result.Q = det.Q
	result.Stats.Communities = det.Communities
	result.Stats.DetectTime = time.Since(detectStart)
	result.CacheInfo.DetectHit = detectHit
	logger.Info("detected communities",
		"method", opts.Method,
		"communities", det.Communities,
		"q", fmt.Sprintf("%.4f", det.Q),
		"duration", result.Stats.DetectTime)

	// Stage 4: Render
	if len(opts.Formats) > 0 {
		renderStart := time.Now()
		artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, det.Labeled, opts)
		if err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}
		result.Artifacts = artifacts
		result.Stats.RenderTime = time.Since(renderStart)
		result.CacheInfo.RenderHit = renderHit
		logger.Info("rendered outputs",
			"formats", opts.Formats,
			"duration", result.Stats.RenderTime)
	}

	return result, nil
}

// LogReport logs skipped records as warnings and isolated products at
// debug level.
func LogReport(logger *log.Logger, report graph.Report) {
	for _, err := range report.Skipped {
		logger.Warn("skipped record", "err", rgerrors.UserMessage(err))
	}
	for _, name := range report.Isolated {
		logger.Debug("isolated product", "err", graph.IsolatedError(name))
	}
}

// Load reads records from opts.Source, or from opts.Inputs when no source
// is set. Unparseable text lines are returned as skipped errors.
func (r *Runner) Load(ctx context.Context, opts Options) ([]recipe.Record, []error, error) {
	if err := opts.ValidateForLoad(); err != nil {
		return nil, nil, err
	}

	source := "files"
	if opts.Source != nil {
		source = "store"
	}
	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, source)
	start := time.Now()

	var (
		records []recipe.Record
		skipped []error
		err     error
	)
	if opts.Source != nil {
		records, err = opts.Source.Load(ctx)
	} else {
		records, skipped, err = recipe.ReadFiles(opts.Inputs...)
	}
	hooks.OnLoadComplete(ctx, source, len(records), time.Since(start), err)
	if err != nil {
		return nil, nil, err
	}
	return records, skipped, nil
}

// Build constructs the graph and reports the build to the hooks.
func (r *Runner) Build(ctx context.Context, records []recipe.Record) (*graph.Graph, graph.Report) {
	hooks := observability.Pipeline()
	hooks.OnBuildStart(ctx, len(records))
	start := time.Now()
	g, report := graph.Build(records)
	hooks.OnBuildComplete(ctx, g.NodeCount(), g.EdgeCount(), len(report.Skipped), time.Since(start))
	return g, report
}

// Detect is a convenience wrapper that calls DetectWithCacheInfo and
// discards the cache hit info.
func (r *Runner) Detect(ctx context.Context, g *graph.Graph, opts Options) (*Detection, error) {
	det, _, err := r.DetectWithCacheInfo(ctx, g, "", opts)
	return det, err
}

// DetectWithCacheInfo labels a clone of g with opts.Method. graphHash keys
// the modularity cache; an empty hash is computed from g.
func (r *Runner) DetectWithCacheInfo(ctx context.Context, g *graph.Graph, graphHash string, opts Options) (*Detection, bool, error) {
	if err := opts.ValidateForDetect(); err != nil {
		return nil, false, err
	}

	hooks := observability.Pipeline()
	hooks.OnDetectStart(ctx, opts.Method, g.NodeCount())
	start := time.Now()

	det := &Detection{Method: opts.Method, Labeled: g.Clone()}
	var hit bool
	var err error
	switch opts.Method {
	case MethodModularity:
		det.Modularity, hit, err = r.modularity(ctx, g, graphHash, opts)
		if err == nil {
			det.Modularity.Apply(det.Labeled)
			det.Q = det.Modularity.Q
			det.Communities = len(det.Modularity.Communities)
		}
	case MethodCommon:
		det.Layering = community.ClusterByCommonIngredients(g)
		det.Layering.Apply(det.Labeled)
		det.Communities = len(det.Layering.Layers)
		q, qerr := community.Modularity(det.Labeled, det.Labeled.Labels())
		if qerr != nil && !rgerrors.Is(qerr, rgerrors.ErrCodeEmptyGraph) {
			err = qerr
		}
		det.Q = q
	}
	hooks.OnDetectComplete(ctx, opts.Method, det.Communities, det.Q, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	det.Labeled.Meta()["method"] = opts.Method
	det.Labeled.Meta()["q"] = det.Q
	return det, hit, nil
}

func (r *Runner) modularity(ctx context.Context, g *graph.Graph, graphHash string, opts Options) (*community.Result, bool, error) {
	if graphHash == "" {
		data, err := graph.Marshal(g)
		if err != nil {
			return nil, false, err
		}
		graphHash = cache.Hash(data)
	}
	key := r.Keyer.CommunitiesKey(graphHash, opts.CommunitiesKeyOpts())

	if !opts.Refresh {
		if data, ok := r.cacheGet(ctx, "communities", key); ok {
			var cached community.Result
			if err := json.Unmarshal(data, &cached); err == nil {
				return &cached, true, nil
			}
		}
	}

	res, err := community.DetectModularity(g, opts.DetectOptions()...)
	if err != nil {
		return nil, false, err
	}
	if data, err := json.Marshal(res); err == nil {
		r.cacheSet(ctx, "communities", key, data, cache.CommunitiesTTL)
	}
	return res, false, nil
}

// cacheGet reads key and reports the outcome to the hooks. Backend errors
// count as misses.
func (r *Runner) cacheGet(ctx context.Context, keyType, key string) ([]byte, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Debug("cache read failed", "key_type", keyType, "err", err)
	}
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, keyType)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, keyType)
	return data, true
}

func (r *Runner) cacheSet(ctx context.Context, keyType, key string, data []byte, ttl time.Duration) {
	if r.TTL > 0 {
		ttl = r.TTL
	}
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Debug("cache write failed", "key_type", keyType, "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// MethodNames returns the supported methods for help text.
func MethodNames() string {
	return strings.Join([]string{MethodModularity, MethodCommon}, ", ")
}
