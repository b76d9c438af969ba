package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	rgerrors "github.com/matzehuels/recipegraph/pkg/errors"
	"github.com/matzehuels/recipegraph/pkg/pipeline"
	"github.com/matzehuels/recipegraph/pkg/recipe"
)

// importCommand replaces the MongoDB records with the contents of files.
func (c *CLI) importCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import [records...]",
		Short: "Load record files into MongoDB",
		Long: `Load record files into MongoDB.

The configured collection is replaced by the records of the given files
(or of every record file in the processed data directory). Malformed
records are skipped. The connection string comes from [mongo] uri or
$RECIPEGRAPH_MONGO_URI.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts := c.pipelineOptions()
			if _, err := c.applyInputs(ctx, &opts, args, inputOpts{}); err != nil {
				return err
			}

			runner := pipeline.NewRunner(nil, nil, c.Logger)
			records, skipped, err := runner.Load(ctx, opts)
			if err != nil {
				return fmt.Errorf("load records: %w", err)
			}
			valid := make([]recipe.Record, 0, len(records))
			for i, rec := range records {
				if err := rec.Validate(); err != nil {
					skipped = append(skipped, rgerrors.Wrap(rgerrors.ErrCodeMalformedRecord, err, "record %d", i))
					continue
				}
				valid = append(valid, rec)
			}
			for _, e := range skipped {
				c.Logger.Warn("skipped record", "err", rgerrors.UserMessage(e))
			}

			st, err := c.openStore(ctx)
			if err != nil {
				return fmt.Errorf("open record store: %w", err)
			}
			defer st.Close(ctx)

			spinner := newSpinner(ctx, "Saving records...")
			spinner.Start()
			if err := st.Save(ctx, valid); err != nil {
				spinner.StopWithError("Import failed")
				return err
			}
			spinner.Stop()

			printSuccess("Imported %s into %s.%s",
				StyleNumber.Render(fmt.Sprintf("%d records", len(valid))),
				c.Config.Mongo.Database, c.Config.Mongo.Collection)
			if len(skipped) > 0 {
				printWarning("Skipped %d malformed record(s)", len(skipped))
			}
			return nil
		},
	}
}

// exportCommand writes the MongoDB records to a file.
func (c *CLI) exportCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the MongoDB records to a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if output == "" {
				output = filepath.Join(c.Config.Data.Processed, "recipes.json")
			}

			st, err := c.openStore(ctx)
			if err != nil {
				return fmt.Errorf("open record store: %w", err)
			}
			defer st.Close(ctx)

			records, err := st.Load(ctx)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
				return rgerrors.Resource(err, "create %s", filepath.Dir(output))
			}
			if err := recipe.WriteFile(output, records); err != nil {
				return err
			}

			printSuccess("Exported %s", StyleNumber.Render(fmt.Sprintf("%d records", len(records))))
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output record file (default: <processed_dir>/recipes.json)")
	return cmd
}
