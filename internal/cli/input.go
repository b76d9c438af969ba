package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	rgerrors "github.com/matzehuels/recipegraph/pkg/errors"
	"github.com/matzehuels/recipegraph/pkg/pipeline"
)

// inputOpts selects where records come from.
type inputOpts struct {
	mongo bool
}

func (in *inputOpts) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&in.mongo, "mongo", false, "read records from the configured MongoDB collection instead of files")
}

// defaultInputs lists the record files in the processed data directory.
func (c *CLI) defaultInputs() ([]string, error) {
	var paths []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		m, err := filepath.Glob(filepath.Join(c.Config.Data.Processed, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, m...)
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, rgerrors.New(rgerrors.ErrCodeInvalidInput, "no record files given and none found in %s", c.Config.Data.Processed)
	}
	return paths, nil
}

// applyInputs fills the record source of opts from args or the store.
// The returned cleanup must be called once the run is finished.
func (c *CLI) applyInputs(ctx context.Context, opts *pipeline.Options, args []string, in inputOpts) (func(), error) {
	if in.mongo {
		if len(args) > 0 {
			return nil, rgerrors.New(rgerrors.ErrCodeInvalidInput, "--mongo cannot be combined with input files")
		}
		st, err := c.openStore(ctx)
		if err != nil {
			return nil, fmt.Errorf("open record store: %w", err)
		}
		opts.Source = st
		return func() {
			if err := st.Close(context.WithoutCancel(ctx)); err != nil {
				c.Logger.Warn("close record store", "err", err)
			}
		}, nil
	}

	if len(args) == 0 {
		paths, err := c.defaultInputs()
		if err != nil {
			return nil, err
		}
		c.Logger.Debug("using default inputs", "files", paths)
		args = paths
	}
	opts.Inputs = args
	return func() {}, nil
}
