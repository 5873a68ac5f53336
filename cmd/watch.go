package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/doublegit-go/internal/watch"
)

type watchRunner struct {
	ctx     context.Context
	Command *cobra.Command

	root     string
	backend  string
	statusDB string
	interval time.Duration
	debounce time.Duration
}

func newWatchRunner(ctx context.Context) *watchRunner {
	r := &watchRunner{ctx: ctx}
	c := &cobra.Command{
		Use:   "watch --root DIR",
		Short: "Keep every mirror under a directory updated",
		Long: `Update every mirror under --root at start and then every --interval. A
mirror whose doublegit.json appears or changes is updated right away.`,
		Args: cobra.NoArgs,
		RunE: r.runE,
	}
	c.Flags().StringVar(&r.root, "root", ".", "directory holding the mirrors")
	c.Flags().StringVar(&r.backend, "backend", "", "force the git backend: native or gitcli")
	c.Flags().StringVar(&r.statusDB, "status-db", "", "status store path (default <root>/.doublegit-status.db)")
	c.Flags().DurationVar(&r.interval, "interval", time.Hour, "time between full updates, 0 to disable")
	c.Flags().DurationVar(&r.debounce, "debounce", watch.DefaultDebounce, "quiet period before reacting to marker changes")
	r.Command = c
	return r
}

func (r *watchRunner) runE(cmd *cobra.Command, _ []string) error {
	engine, err := newEngine(r.backend)
	if err != nil {
		return err
	}
	store, err := openStatusStore(r.statusDB, r.root)
	if err != nil {
		return err
	}
	defer store.Close()

	return watch.Run(r.ctx, watch.Options{
		Root:       r.root,
		Interval:   r.interval,
		Debounce:   r.debounce,
		Candidates: candidateDirs,
		Update: func(ctx context.Context, dirs []string) error {
			return updateDirs(ctx, engine, dirs, store, cmd.OutOrStdout())
		},
	})
}
