package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	rgerrors "github.com/matzehuels/recipegraph/pkg/errors"
	"github.com/matzehuels/recipegraph/pkg/recipe"
)

// transformCommand converts raw export lines into normalized record files.
func (c *CLI) transformCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "transform <raw.txt>...",
		Short: "Normalize raw recipe exports into record files",
		Long: `Normalize raw recipe exports into record files.

Each input line has the form

  Product,"2- Iron Ingot,1- Copper Ingot"

Lines that cannot be parsed are skipped and reported. Each input is written
to the processed data directory as <name>.json unless --output is given.
The output format follows the file extension (.json, .yaml or .yml).`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "" && len(args) > 1 {
				return rgerrors.New(rgerrors.ErrCodeInvalidInput, "--output needs exactly one input")
			}
			for _, in := range args {
				out := output
				if out == "" {
					out = c.processedPath(in)
				}
				if err := c.runTransform(cmd.Context(), in, out); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output record file (default: <processed_dir>/<name>.json)")
	return cmd
}

// processedPath maps a raw input to its record file in the processed directory.
func (c *CLI) processedPath(input string) string {
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(c.Config.Data.Processed, name+".json")
}

func (c *CLI) runTransform(ctx context.Context, input, output string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prog := newProgress(c.Logger)

	f, err := os.Open(input)
	if err != nil {
		return rgerrors.Resource(err, "open %s", input)
	}
	defer f.Close()

	records, skipped, err := recipe.ParseText(f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", input, err)
	}
	for _, e := range skipped {
		c.Logger.Warn("skipped line", "file", input, "err", rgerrors.UserMessage(e))
	}

	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return rgerrors.Resource(err, "create %s", filepath.Dir(output))
	}
	if err := recipe.WriteFile(output, records); err != nil {
		return err
	}
	prog.done("transformed records", "input", input, "records", len(records), "skipped", len(skipped))

	printSuccess("Transformed %s", StyleNumber.Render(fmt.Sprintf("%d records", len(records))))
	if len(skipped) > 0 {
		printWarning("Skipped %d malformed line(s)", len(skipped))
	}
	printFile(output)
	return nil
}
