package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := NewRootCommand(ctx)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func NewRootCommand(ctx context.Context) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "doublegit",
		Short: "Archive every state of the branches and tags of git mirrors",
		Long: `doublegit fetches bare mirror repositories and records, for every remote
branch and tag, which commit it pointed at and when. Commits that are
force-pushed away upstream stay reachable through local keep-<sha> branches.`,
		SilenceUsage: true,
		// main reports the error.
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	cmd.AddCommand(
		newUpdateRunner(ctx).Command,
		newHistoryRunner(ctx).Command,
		newDiffRunner(ctx).Command,
		newStatusRunner(ctx).Command,
		newWatchRunner(ctx).Command,
		newVersionCommand(),
	)
	return cmd
}
