package main

import (
	"context"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/shffl/internal/shared"
	"github.com/urfave/cli/v3"
)

// ConfigInit writes the default configuration file.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	r.writePlain("✓ Wrote %s\n", path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set client.base_url to your Shffl backend\n")
	r.writePlain("2. Run 'shffl login'\n")
	return nil
}

// ConfigShow prints the effective configuration as TOML with the token redacted.
func (r *Runner) ConfigShow(ctx context.Context, cmd *cli.Command) error {
	redacted := *r.config
	if redacted.Session.AccessToken != "" {
		redacted.Session.AccessToken = "<redacted>"
	}
	return toml.NewEncoder(r.output).Encode(redacted)
}
