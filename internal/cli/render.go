package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	rgerrors "github.com/matzehuels/recipegraph/pkg/errors"
	"github.com/matzehuels/recipegraph/pkg/pipeline"
)

// renderCommand draws the community-colored graph.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		formatsStr string
		output     string
		in         inputOpts
		df         detectFlags
	)
	opts := c.pipelineOptions()

	cmd := &cobra.Command{
		Use:   "render [records...]",
		Short: "Render the community-colored graph to SVG, DOT or JSON",
		Long: `Render the community-colored graph to SVG, DOT or JSON.

Products are drawn as boxes and ingredients as ellipses, filled with the
color of their community. Edge width grows with the ingredient quantity.
Graphviz lays the graph out; no layout is computed here.

Rendered artifacts are cached by the labeled graph and render options.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.mergeConfigDefaults(cmd, &opts)
			opts.Formats = parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(opts.Formats); err != nil {
				return err
			}
			cleanup, err := c.applyInputs(cmd.Context(), &opts, args, in)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := c.detect(cmd.Context(), opts, df)
			if err != nil {
				return err
			}
			base := basePath(output, filepath.Join(c.Config.Data.Output, "communities_"+opts.Method))
			paths, err := writeArtifacts(result.Artifacts, opts.Formats, base)
			if err != nil {
				return err
			}

			printSuccess("Rendered %s", StyleNumber.Render(fmt.Sprintf("%d communities", result.Stats.Communities)))
			printStats(result.Stats.NodeCount, result.Stats.EdgeCount, result.CacheInfo.RenderHit)
			printSkipped(result.Report)
			for _, p := range paths {
				printFile(p)
			}
			return nil
		},
	}

	c.registerDetectFlags(cmd, &opts, &df)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), dot, json (comma-separated)")
	cmd.Flags().BoolVar(&opts.Detailed, "detailed", opts.Detailed, "label nodes with role and community")
	cmd.Flags().BoolVar(&opts.Quantities, "quantities", opts.Quantities, "label edges with quantities")
	cmd.Flags().StringVar(&opts.RankDir, "rankdir", opts.RankDir, "graphviz rank direction: LR, TB, RL, BT")
	_ = cmd.RegisterFlagCompletionFunc("format", fixedCompletions(pipeline.FormatSVG, pipeline.FormatDOT, pipeline.FormatJSON))
	_ = cmd.RegisterFlagCompletionFunc("rankdir", fixedCompletions("LR", "TB", "RL", "BT"))
	in.register(cmd)
	return cmd
}

// basePath strips a known format extension from output, falling back to
// def when output is empty.
func basePath(output, def string) string {
	if output == "" {
		return def
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// writeArtifacts writes one file per format as base.<format>.
func writeArtifacts(artifacts map[string][]byte, formats []string, base string) ([]string, error) {
	if dir := filepath.Dir(base); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, rgerrors.Resource(err, "create %s", dir)
		}
	}
	paths := make([]string, 0, len(formats))
	for _, format := range formats {
		data, ok := artifacts[format]
		if !ok {
			return paths, rgerrors.New(rgerrors.ErrCodeInternal, "no %s artifact rendered", format)
		}
		path := base + "." + format
		if err := os.WriteFile(path, data, 0644); err != nil {
			return paths, rgerrors.Resource(err, "write %s", path)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
