package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/cloudmirror/sharesync/internal/filters"
)

// FilterStatus reports the harmonized filter's configuration and how many
// hashes it has recorded.
func (r *Runner) FilterStatus(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	filter, err := filters.NewHarmonizedFilter(config.Filter.Path, config.Filter.Bits, config.Filter.HashCount, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open harmonized filter: %w", err)
	}

	count, err := filter.Count()
	if err != nil {
		return fmt.Errorf("failed to count recorded hashes: %w", err)
	}

	r.writePlain("path:   %s\n", config.Filter.Path)
	r.writePlain("bits:   %d\n", config.Filter.Bits)
	r.writePlain("hashes: %d\n", config.Filter.HashCount)
	r.writePlain("count:  %d\n", count)
	return nil
}

// FilterRebuild reconstructs the bit array from the persisted rejection list.
// The list is the source of truth; rebuilding is how a changed bit-array size
// or hash count in the config takes effect. Nothing is ever re-derived from
// destination folder contents, which would flag successfully saved files as
// rejected.
func (r *Runner) FilterRebuild(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	filter, err := filters.NewHarmonizedFilter(config.Filter.Path, config.Filter.Bits, config.Filter.HashCount, r.logger)
	if err != nil {
		return fmt.Errorf("failed to rebuild harmonized filter: %w", err)
	}

	count, err := filter.Count()
	if err != nil {
		return fmt.Errorf("failed to count recorded hashes: %w", err)
	}

	r.logger.Info("harmonized filter rebuilt", "path", config.Filter.Path, "hashes", count)
	return r.writePlain("rebuilt filter from %d recorded hashes (%d bits, %d hash functions)\n", count, config.Filter.Bits, config.Filter.HashCount)
}
