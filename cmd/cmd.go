// submodule cmd contains command definitions
package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/shffl/internal/formatter"
	"github.com/urfave/cli/v3"
)

const loginTimeout = 2 * time.Minute

// configCommand manages the configuration file.
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write a config.toml with the default settings",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   defaultConfigPath,
					},
				},
				Action: r.ConfigInit,
			},
			{
				Name:   "show",
				Usage:  "Print the effective configuration (session token redacted)",
				Action: r.ConfigShow,
			},
		},
	}
}

// loginCommand logs in through the backend and the local callback listener.
func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Log in with Spotify through the Shffl backend",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the login callback",
				Value: loginTimeout,
			},
		},
		Action: r.Login,
	}
}

func logoutCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "End the session and clear the cached identity",
		Action: r.Logout,
	}
}

func whoamiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the logged in user",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the raw identity JSON",
			},
		},
		Action: r.WhoAmI,
	}
}

// playlistsCommand lists the playlist collection.
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"ls"},
		Usage:   "List your playlists, most recently modified first",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "all",
				Aliases: []string{"a"},
				Usage:   "Load every page instead of only the first",
			},
			&cli.FloatFlag{
				Name:  "rps",
				Usage: "Maximum page requests per second with --all",
				Value: 2,
			},
			&cli.StringFlag{
				Name:    "filter",
				Aliases: []string{"f"},
				Usage:   "Fuzzy filter on playlist names",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: fmt.Sprintf("Output format (%s)", strings.Join(formatter.Formats, ", ")),
				Value: formatter.FormatTable,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the export to a file instead of stdout",
			},
		},
		Action: r.Playlists,
	}
}

// shuffleCommand starts a queue job and follows its progress stream.
func shuffleCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "shuffle",
		Usage: "Shuffle a playlist and add its tracks to your queue",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "id",
			},
		},
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Give up following the job after this long",
				Value: 10 * time.Minute,
			},
		},
		Action: r.Shuffle,
	}
}

func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Identity cache commands",
		Commands: []*cli.Command{
			{
				Name:   "clear",
				Usage:  "Remove the cached identity",
				Action: r.CacheClear,
			},
		},
	}
}

// tuiCommand launches the interactive terminal UI.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Launch the interactive terminal UI",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the UI owns the terminal",
				Value: "./tmp/shffl-tui.log",
			},
		},
		Action: r.TUI,
	}
}
