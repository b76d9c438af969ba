package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/recipegraph/pkg/graph"
	"github.com/matzehuels/recipegraph/pkg/pipeline"
)

// detectFlags are the detection flags shared by communities, render and browse.
type detectFlags struct {
	noCache bool
}

func (c *CLI) registerDetectFlags(cmd *cobra.Command, opts *pipeline.Options, df *detectFlags) {
	cmd.Flags().StringVarP(&opts.Method, "method", "m", opts.Method, "detection method: "+pipeline.MethodNames())
	cmd.Flags().BoolVar(&opts.FullDendrogram, "full-dendrogram", opts.FullDendrogram, "merge to one community and keep the best level")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "recompute instead of reading the cache")
	cmd.Flags().BoolVar(&df.noCache, "no-cache", false, "disable caching")
	_ = cmd.RegisterFlagCompletionFunc("method", fixedCompletions(pipeline.MethodModularity, pipeline.MethodCommon))
}

// fixedCompletions completes a flag from a closed set of values.
func fixedCompletions(values ...string) cobra.CompletionFunc {
	return func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}

// communitiesCommand detects communities and writes the labeled graph.
func (c *CLI) communitiesCommand() *cobra.Command {
	var (
		output     string
		showMerges bool
		in         inputOpts
		df         detectFlags
	)
	// Flag defaults are bound before the config file is read; seed from
	// the built-in config and re-apply file values in runCommunities.
	opts := c.pipelineOptions()

	cmd := &cobra.Command{
		Use:   "communities [records...]",
		Short: "Partition the recipe graph into communities",
		Long: `Partition the recipe graph into communities.

The default method, modularity, greedily merges the pair of communities
with the largest modularity gain until no merge improves it. With
--full-dendrogram every merge is performed and the best level is kept.
The common method groups products by how many ingredients they share.

The labeled graph is written as JSON. Detection results are cached.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.mergeConfigDefaults(cmd, &opts)
			if err := pipeline.ValidateMethod(opts.Method); err != nil {
				return err
			}
			cleanup, err := c.applyInputs(cmd.Context(), &opts, args, in)
			if err != nil {
				return err
			}
			defer cleanup()
			if output == "" {
				output = filepath.Join(c.Config.Data.Output, "communities_"+opts.Method+".json")
			}
			return c.runCommunities(cmd.Context(), opts, df, output, showMerges)
		},
	}

	c.registerDetectFlags(cmd, &opts, &df)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output labeled graph (default: <output_dir>/communities_<method>.json)")
	cmd.Flags().BoolVar(&showMerges, "merges", false, "print the merge sequence (modularity)")
	in.register(cmd)
	return cmd
}

// mergeConfigDefaults applies config file values to options whose flags
// were not set explicitly.
func (c *CLI) mergeConfigDefaults(cmd *cobra.Command, opts *pipeline.Options) {
	fromConfig := c.pipelineOptions()
	flags := cmd.Flags()
	if f := flags.Lookup("method"); f != nil && !f.Changed {
		opts.Method = fromConfig.Method
	}
	if f := flags.Lookup("full-dendrogram"); f != nil && !f.Changed {
		opts.FullDendrogram = fromConfig.FullDendrogram
	}
	if f := flags.Lookup("detailed"); f != nil && !f.Changed {
		opts.Detailed = fromConfig.Detailed
	}
	if f := flags.Lookup("quantities"); f != nil && !f.Changed {
		opts.Quantities = fromConfig.Quantities
	}
	if f := flags.Lookup("rankdir"); f != nil && !f.Changed {
		opts.RankDir = fromConfig.RankDir
	}
	opts.Logger = c.Logger
}

// detect runs the pipeline behind a spinner.
func (c *CLI) detect(ctx context.Context, opts pipeline.Options, df detectFlags) (*pipeline.Result, error) {
	runner, err := c.newRunner(ctx, df.noCache)
	if err != nil {
		return nil, fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinner(ctx, fmt.Sprintf("Detecting communities (%s)...", opts.Method))
	spinner.Start()
	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Detection failed")
		return nil, err
	}
	spinner.Stop()
	return result, nil
}

func (c *CLI) runCommunities(ctx context.Context, opts pipeline.Options, df detectFlags, output string, showMerges bool) error {
	result, err := c.detect(ctx, opts, df)
	if err != nil {
		return err
	}
	if err := writeGraph(result.Labeled, output); err != nil {
		return err
	}

	printSuccess("Found %s using %s",
		StyleNumber.Render(fmt.Sprintf("%d communities", result.Stats.Communities)),
		StyleValue.Render(result.Method))
	printStats(result.Stats.NodeCount, result.Stats.EdgeCount, result.CacheInfo.DetectHit)
	printSkipped(result.Report)
	printKeyValue("modularity", fmt.Sprintf("%.4f", result.Q))
	if m := result.Modularity; m != nil {
		printKeyValue("initial", fmt.Sprintf("%.4f", m.InitialQ))
		printKeyValue("merges", fmt.Sprintf("%d of %d", m.Level, len(m.Merges)))
	}
	printKeyValue("run", result.RunID)

	if sums := summarize(result.Labeled); len(sums) > 0 {
		fmt.Fprintln(stdout, communityTable(sums))
	}
	if showMerges && result.Modularity != nil {
		printMerges(result)
	}
	printFile(output)
	printNextStep("Render it", "recipegraph render -m "+result.Method)
	return nil
}

// printMerges lists the CNM merge sequence with node names.
func printMerges(result *pipeline.Result) {
	g := result.Graph
	name := func(i int) string {
		if n := g.Node(graph.NodeID(i)); n != nil {
			return n.Name
		}
		return fmt.Sprint(i)
	}
	fmt.Fprintln(stdout, StyleTitle.Render("Merges"))
	for i, m := range result.Modularity.Merges {
		marker := " "
		if i < result.Modularity.Level {
			marker = styleIconSuccess.Render(iconSuccess)
		}
		printDetail("%s %3d  %s ← %s  ΔQ=%+.4f  Q=%.4f", marker, i+1, name(m.Into), name(m.From), m.DeltaQ, m.Q)
	}
}
