package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/shffl/internal/app"
	"github.com/desertthunder/shffl/internal/session"
	"github.com/desertthunder/shffl/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	redirector *session.BrowserRedirector
	app        *app.App
	now        func() time.Time
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string // where session changes are saved; empty keeps them in memory
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		now:        time.Now,
	}
	r.redirector = &session.BrowserRedirector{BaseURL: r.config.Client.BaseURL, Logger: r.logger}
	if r.config.Client.OpenBrowser {
		r.redirector.Open = shared.OpenBrowser
	}
	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		configCommand, loginCommand, logoutCommand, whoamiCommand, playlistsCommand, shuffleCommand, cacheCommand,
		tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// App builds the controllers on first use. ctx bounds the app's background work.
func (r *Runner) App(ctx context.Context) (*app.App, error) {
	if r.app != nil {
		return r.app, nil
	}

	a, err := app.New(ctx, r.config, app.Options{
		Logger:     r.logger,
		Redirector: r.redirector,
		HTTPClient: r.httpClient,
	})
	if err != nil {
		return nil, err
	}
	r.app = a
	return a, nil
}

// SetLogger replaces the logger used by the runner and any app it builds afterwards.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
	r.redirector.Logger = logger
}

// Close releases the app, if one was built.
func (r *Runner) Close() error {
	if r.app == nil {
		return nil
	}
	return r.app.Close()
}

// saveConfig persists the config when it was loaded from a file.
func (r *Runner) saveConfig() error {
	if r.configPath == "" {
		r.logger.Debug("no config file, session kept in memory")
		return nil
	}
	return shared.SaveConfig(r.configPath, r.config)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writeRaw(data json.RawMessage) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
