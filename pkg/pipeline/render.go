package pipeline

import (
	"context"

	"github.com/matzehuels/recipegraph/pkg/cache"
	rgerrors "github.com/matzehuels/recipegraph/pkg/errors"
	"github.com/matzehuels/recipegraph/pkg/graph"
	"github.com/matzehuels/recipegraph/pkg/render/nodelink"
)

// Render generates output artifacts for a labeled graph in the requested
// formats.
func Render(ctx context.Context, g *graph.Graph, opts Options) (map[string][]byte, error) {
	if err := ValidateFormats(opts.Formats); err != nil {
		return nil, err
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	var dot string
	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatJSON:
			data, err = graph.Marshal(g)
		case FormatDOT, FormatSVG:
			if dot == "" {
				dot = nodelink.ToDOT(g, opts.NodelinkOptions())
			}
			if format == FormatDOT {
				data = []byte(dot)
			} else {
				data, err = nodelink.RenderSVG(ctx, dot)
			}
		}
		if err != nil {
			return nil, rgerrors.Wrap(rgerrors.ErrCodeInternal, err, "render %s", format)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

// RenderWithCacheInfo renders with caching and reports whether every
// artifact came from the cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, g *graph.Graph, opts Options) (map[string][]byte, bool, error) {
	if err := ValidateFormats(opts.Formats); err != nil {
		return nil, false, err
	}

	labeled, err := graph.Marshal(g)
	if err != nil {
		return nil, false, err
	}
	labelsHash := cache.Hash(labeled)

	artifacts := make(map[string][]byte, len(opts.Formats))
	if !opts.Refresh {
		for _, format := range opts.Formats {
			data, ok := r.cacheGet(ctx, "render", r.Keyer.RenderKey(labelsHash, opts.RenderKeyOpts(format)))
			if !ok {
				break
			}
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			return artifacts, true, nil
		}
	}

	rendered, err := Render(ctx, g, opts)
	if err != nil {
		return nil, false, err
	}
	for format, data := range rendered {
		r.cacheSet(ctx, "render", r.Keyer.RenderKey(labelsHash, opts.RenderKeyOpts(format)), data, cache.RenderTTL)
	}
	return rendered, false, nil
}
