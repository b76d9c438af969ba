package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	rgerrors "github.com/matzehuels/recipegraph/pkg/errors"
	"github.com/matzehuels/recipegraph/pkg/overlap"
	"github.com/matzehuels/recipegraph/pkg/pipeline"
)

// commonCommand layers products by shared-ingredient count.
func (c *CLI) commonCommand() *cobra.Command {
	var (
		outDir    string
		showPairs bool
		in        inputOpts
		df        detectFlags
	)

	cmd := &cobra.Command{
		Use:   "common [records...]",
		Short: "Group products by the ingredients they share",
		Long: `Group products by the ingredients they share.

Every pair of products sharing at least one ingredient is placed in the
layer for its shared count; layer 0 has the highest count. Each layer is
written as its own graph (common_<count>.json) next to the full
co-ingredient map (common_ingredients.json).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := c.pipelineOptions()
			opts.Method = pipeline.MethodCommon
			cleanup, err := c.applyInputs(cmd.Context(), &opts, args, in)
			if err != nil {
				return err
			}
			defer cleanup()
			if outDir == "" {
				outDir = c.Config.Data.Output
			}

			result, err := c.detect(cmd.Context(), opts, df)
			if err != nil {
				return err
			}
			co := overlap.Compute(result.Graph)
			paths, err := writeLayers(result, co, outDir)
			if err != nil {
				return err
			}

			printSuccess("Found %s across %s",
				StyleNumber.Render(fmt.Sprintf("%d layers", len(result.Layering.Layers))),
				StyleNumber.Render(fmt.Sprintf("%d product pairs", co.PairCount())))
			printStats(result.Stats.NodeCount, result.Stats.EdgeCount, false)
			printSkipped(result.Report)
			printKeyValue("modularity", fmt.Sprintf("%.4f", result.Q))
			if len(result.Layering.Layers) > 0 {
				fmt.Fprintln(stdout, layerTable(result.Layering))
			}
			if showPairs {
				printPairs(co)
			}
			for _, p := range paths {
				printFile(p)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "output-dir", "o", "", "directory for layer graphs (default: <output_dir>)")
	cmd.Flags().BoolVar(&showPairs, "pairs", false, "print every product pair with its shared ingredients")
	cmd.Flags().BoolVar(&df.noCache, "no-cache", false, "disable caching")
	in.register(cmd)
	return cmd
}

// writeLayers writes the co-ingredient map and one graph per layer.
func writeLayers(result *pipeline.Result, co overlap.Result, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, rgerrors.Resource(err, "create %s", dir)
	}

	mapPath := filepath.Join(dir, "common_ingredients.json")
	data, err := json.MarshalIndent(co, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode co-ingredient map: %w", err)
	}
	if err := os.WriteFile(mapPath, data, 0644); err != nil {
		return nil, rgerrors.Resource(err, "write %s", mapPath)
	}
	paths := []string{mapPath}

	for _, layer := range result.Layering.Layers {
		path := filepath.Join(dir, fmt.Sprintf("common_%d.json", layer.Count))
		if err := writeGraph(layer.Graph, path); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func printPairs(co overlap.Result) {
	for _, grp := range co.Groups {
		fmt.Fprintln(stdout, StyleTitle.Render(fmt.Sprintf("%d shared", grp.Count)))
		for _, p := range grp.Pairs {
			printDetail("%s + %s: %s", p.A, p.B, strings.Join(p.Shared, ", "))
		}
	}
}
