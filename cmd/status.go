package cmd

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/doublegit-go/internal/render"
	"github.com/thiagokokada/doublegit-go/internal/status"
)

type statusRunner struct {
	ctx     context.Context
	Command *cobra.Command

	root     string
	statusDB string
}

func newStatusRunner(ctx context.Context) *statusRunner {
	r := &statusRunner{ctx: ctx}
	c := &cobra.Command{
		Use:   "status",
		Short: "Show the last update of every mirror",
		Args:  cobra.NoArgs,
		RunE:  r.runE,
	}
	c.Flags().StringVar(&r.root, "root", ".", "directory holding the status store")
	c.Flags().StringVar(&r.statusDB, "status-db", "", "status store path (default <root>/"+status.DefaultFileName+")")
	r.Command = c
	return r
}

func (r *statusRunner) runE(cmd *cobra.Command, _ []string) error {
	path := r.statusDB
	if path == "" {
		path = filepath.Join(r.root, status.DefaultFileName)
	}
	store, err := status.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	records, err := store.List()
	if err != nil {
		return err
	}
	render.StatusTable(cmd.OutOrStdout(), records)
	return nil
}
