package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	rgerrors "github.com/matzehuels/recipegraph/pkg/errors"
	"github.com/matzehuels/recipegraph/pkg/graph"
	"github.com/matzehuels/recipegraph/pkg/pipeline"
)

// buildCommand builds the dependency graph and writes it as JSON.
func (c *CLI) buildCommand() *cobra.Command {
	var (
		output string
		in     inputOpts
	)

	cmd := &cobra.Command{
		Use:   "build [records...]",
		Short: "Build the product → ingredient graph from record files",
		Long: `Build the product → ingredient graph from record files.

Records are read from the given files (.json, .yaml, .yml, or raw .txt/.csv
export lines), from every record file in the processed data directory when
no file is given, or from MongoDB with --mongo. Several files are combined
into one graph.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := c.pipelineOptions()
			cleanup, err := c.applyInputs(cmd.Context(), &opts, args, in)
			if err != nil {
				return err
			}
			defer cleanup()
			if output == "" {
				output = filepath.Join(c.Config.Data.Output, "graph.json")
			}
			return c.runBuild(cmd.Context(), opts, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output graph file (default: <output_dir>/graph.json)")
	in.register(cmd)
	return cmd
}

func (c *CLI) runBuild(ctx context.Context, opts pipeline.Options, output string) error {
	runner := pipeline.NewRunner(nil, nil, c.Logger)
	prog := newProgress(c.Logger)

	records, skipped, err := runner.Load(ctx, opts)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	g, report := runner.Build(ctx, records)
	report.Skipped = append(skipped, report.Skipped...)
	pipeline.LogReport(c.Logger, report)
	prog.done("built graph", "nodes", g.NodeCount(), "edges", g.EdgeCount())

	if err := writeGraph(g, output); err != nil {
		return err
	}

	printSuccess("Built graph from %s", StyleNumber.Render(fmt.Sprintf("%d records", report.Accepted)))
	printStats(g.NodeCount(), g.EdgeCount(), false)
	printKeyValue("products", fmt.Sprint(len(g.Products())))
	printKeyValue("quantity", fmt.Sprint(g.TotalQuantity()))
	printSkipped(report)
	printFile(output)
	printNextStep("Find communities", "recipegraph communities")
	return nil
}

// writeGraph writes g to path, creating parent directories.
func writeGraph(g *graph.Graph, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return rgerrors.Resource(err, "create %s", filepath.Dir(path))
	}
	return graph.WriteFile(g, path)
}
