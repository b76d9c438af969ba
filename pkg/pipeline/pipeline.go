// Package pipeline runs the recipegraph analysis pipeline.
//
// This package implements the load → build → detect → render pipeline used
// by the CLI and the HTTP server, so both entry points cache, log and
// instrument the same way.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Load: Read recipe records from files or a [RecordSource]
//  2. Build: Construct the dependency graph, skipping malformed records
//  3. Detect: Label a clone of the graph with the selected method
//  4. Render: Produce DOT, SVG or JSON from the labeled graph
//
// Each detection method labels its own clone, so the unlabeled graph in
// [Result.Graph] can be reused for another method.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Inputs:  []string{"items.json", "buildings.json"},
//	    Method:  pipeline.MethodModularity,
//	    Formats: []string{pipeline.FormatSVG},
//	})
//	if err != nil {
//	    return err
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/recipegraph/pkg/cache"
	"github.com/matzehuels/recipegraph/pkg/community"
	rgerrors "github.com/matzehuels/recipegraph/pkg/errors"
	"github.com/matzehuels/recipegraph/pkg/graph"
	"github.com/matzehuels/recipegraph/pkg/recipe"
	"github.com/matzehuels/recipegraph/pkg/render/nodelink"
)

// Detection methods.
const (
	MethodModularity = "modularity"
	MethodCommon     = "common"
)

// DefaultMethod is used when Options.Method is empty.
const DefaultMethod = MethodModularity

// Format constants for output formats.
const (
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatJSON = "json"
)

// ValidMethods is the set of supported detection methods.
var ValidMethods = map[string]bool{
	MethodModularity: true,
	MethodCommon:     true,
}

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatDOT:  true,
	FormatSVG:  true,
	FormatJSON: true,
}

// RecordSource supplies recipe records, for example a MongoDB store.
type RecordSource interface {
	Load(ctx context.Context) ([]recipe.Record, error)
}

// Options contains all configuration for a pipeline run.
type Options struct {
	// Load options
	Inputs []string `json:"inputs,omitempty"`

	// Detection options
	Method         string `json:"method,omitempty"`
	FullDendrogram bool   `json:"full_dendrogram,omitempty"`
	Refresh        bool   `json:"refresh,omitempty"`

	// Render options
	Formats    []string `json:"formats,omitempty"`
	Detailed   bool     `json:"detailed,omitempty"`
	Quantities bool     `json:"quantities,omitempty"`
	RankDir    string   `json:"rankdir,omitempty"`

	// Runtime options (not serialized)
	Source RecordSource `json:"-"`
	Logger *log.Logger  `json:"-"`

	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID identifies this run in logs and API responses.
	RunID string

	// Records are the loaded records, malformed ones included.
	Records []recipe.Record

	// Report describes how the builder treated the records.
	Report graph.Report

	// Graph is the unlabeled dependency graph.
	Graph *graph.Graph

	// GraphHash is the content hash of Graph.
	GraphHash string

	// Labeled is a clone of Graph carrying the method's labels.
	Labeled *graph.Graph

	// Method is the detection method that produced Labeled.
	Method string

	// Modularity is set when Method is "modularity".
	Modularity *community.Result

	// Layering is set when Method is "common".
	Layering *community.Layering

	// Q is the modularity of the applied labels. It is zero when the graph
	// has no edges.
	Q float64

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Records     int
	Skipped     int
	NodeCount   int
	EdgeCount   int
	Communities int
	LoadTime    time.Duration
	BuildTime   time.Duration
	DetectTime  time.Duration
	RenderTime  time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	DetectHit bool // Whether the modularity result came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// ValidateMethod checks that a detection method is valid.
func ValidateMethod(method string) error {
	if !ValidMethods[method] {
		return rgerrors.New(rgerrors.ErrCodeInvalidMethod, "invalid method: %q (must be one of: modularity, common)", method)
	}
	return nil
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return rgerrors.New(rgerrors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: dot, svg, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateRankDir checks a Graphviz rank direction. Empty selects the
// renderer default.
func ValidateRankDir(dir string) error {
	switch dir {
	case "", "LR", "TB", "RL", "BT":
		return nil
	}
	return rgerrors.New(rgerrors.ErrCodeInvalidInput, "invalid rankdir: %q (must be one of: LR, TB, RL, BT)", dir)
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLoad(); err != nil {
		return err
	}
	if err := o.ValidateForDetect(); err != nil {
		return err
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if err := ValidateRankDir(o.RankDir); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLoad checks that the run has a record source.
func (o *Options) ValidateForLoad() error {
	if len(o.Inputs) == 0 && o.Source == nil {
		return rgerrors.New(rgerrors.ErrCodeInvalidInput, "at least one input file or a record source is required")
	}
	for _, path := range o.Inputs {
		if err := rgerrors.ValidatePath(path); err != nil {
			return err
		}
	}
	o.setLogger()
	return nil
}

// ValidateForDetect applies the default method and validates it.
func (o *Options) ValidateForDetect() error {
	if o.Method == "" {
		o.Method = DefaultMethod
	}
	o.setLogger()
	return ValidateMethod(o.Method)
}

func (o *Options) setLogger() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// DetectOptions returns the community detector options for o.
func (o *Options) DetectOptions() []community.Option {
	if o.FullDendrogram {
		return []community.Option{community.WithFullDendrogram()}
	}
	return nil
}

// CommunitiesKeyOpts returns cache key options for detection.
func (o *Options) CommunitiesKeyOpts() cache.CommunitiesKeyOpts {
	return cache.CommunitiesKeyOpts{
		Method:         o.Method,
		FullDendrogram: o.FullDendrogram,
	}
}

// RenderKeyOpts returns cache key options for one artifact.
func (o *Options) RenderKeyOpts(format string) cache.RenderKeyOpts {
	return cache.RenderKeyOpts{
		Format:     format,
		Detailed:   o.Detailed,
		Quantities: o.Quantities,
		RankDir:    o.RankDir,
	}
}

// NodelinkOptions returns the DOT options for o.
func (o *Options) NodelinkOptions() nodelink.Options {
	return nodelink.Options{
		Detailed:   o.Detailed,
		Quantities: o.Quantities,
		RankDir:    o.RankDir,
	}
}
