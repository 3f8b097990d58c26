package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/shffl/internal/cache"
	"github.com/urfave/cli/v3"
)

// CacheClear removes the cached identity so the next run asks the backend.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	a, err := r.App(ctx)
	if err != nil {
		return err
	}

	if err := a.Store.Delete(cache.IdentityKey); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	r.logger.Info("identity cache cleared", "driver", r.config.Cache.Driver)
	return r.writePlain("✓ Cache cleared\n")
}
