package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/shffl/internal/formatter"
	"github.com/desertthunder/shffl/internal/shared"
	"github.com/desertthunder/shffl/internal/tasks"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const progressBarWidth = 30

// Shuffle starts the queue job for a playlist and renders its progress until the job settles.
func (r *Runner) Shuffle(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.StringArg("id")
	if playlistID == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	a, err := r.App(ctx)
	if err != nil {
		return err
	}
	if a.Session.Resolve(ctx) == nil {
		return fmt.Errorf("%w: no session", shared.ErrNotAuthenticated)
	}

	waitCtx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()

	snapshots := make(chan tasks.QueueSnapshot, 32)
	unsubscribe := a.Queue.Subscribe(func(s tasks.QueueSnapshot) {
		select {
		case snapshots <- s:
		case <-waitCtx.Done():
		}
	})
	defer unsubscribe()

	r.logger.Info("starting shuffle", "playlist", playlistID)
	a.Shuffle(playlistID)

	g := new(errgroup.Group)
	g.Go(func() error {
		_, err := a.Queue.Wait(waitCtx)
		return err
	})
	g.Go(func() error {
		render := r.progressRenderer()
		for {
			select {
			case s := <-snapshots:
				render(s)
				if s.State == tasks.QueueIdle || s.State == tasks.QueueErrored {
					return nil
				}
			case <-waitCtx.Done():
				return nil
			}
		}
	})

	if err := g.Wait(); err != nil {
		unsubscribe()
		a.Queue.Close()
		return err
	}
	return nil
}

// progressRenderer redraws a bar in place on a terminal and prints one line per status change otherwise.
func (r *Runner) progressRenderer() func(tasks.QueueSnapshot) {
	if f, ok := r.output.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return func(s tasks.QueueSnapshot) {
			switch {
			case s.Progress != nil:
				r.writePlain("\r\033[K%s", formatter.ProgressBar(s.Progress, progressBarWidth))
			case s.State == tasks.QueueIdle:
				r.writePlain("\r\033[K✓ Done\n")
			case s.State == tasks.QueueErrored:
				r.writePlain("\r\033[K✗ %s\n", s.Error)
			}
		}
	}

	var last string
	return func(s tasks.QueueSnapshot) {
		msg := tasks.QueueUpdate(s).Message
		if msg == last {
			return
		}
		last = msg
		r.writePlain("%s\n", msg)
	}
}
