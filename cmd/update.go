package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/doublegit-go/internal/git/backend"
	"github.com/thiagokokada/doublegit-go/internal/snapshot"
	"github.com/thiagokokada/doublegit-go/internal/status"
)

type updateRunner struct {
	ctx     context.Context
	Command *cobra.Command

	root     string
	backend  string
	statusDB string
}

func newUpdateRunner(ctx context.Context) *updateRunner {
	r := &updateRunner{ctx: ctx}
	c := &cobra.Command{
		Use:   "update [DIR...]",
		Short: "Fetch mirrors and record what changed",
		Long: `Fetch each mirror, record new, moved and deleted refs in its ledger and
keep every observed commit reachable. Directories without a doublegit.json
marker are skipped.`,
		Example: `  doublegit update /srv/mirrors/doublegit
  doublegit update --root /srv/mirrors --backend gitcli`,
		RunE: r.runE,
	}
	c.Flags().StringVar(&r.root, "root", "", "update every sub-directory of this directory")
	c.Flags().StringVar(&r.backend, "backend", "", "force the git backend: native or gitcli")
	c.Flags().StringVar(&r.statusDB, "status-db", "", "status store path (default <root>/"+status.DefaultFileName+" with --root)")
	r.Command = c
	return r
}

func (r *updateRunner) runE(cmd *cobra.Command, args []string) error {
	engine, err := newEngine(r.backend)
	if err != nil {
		return err
	}
	dirs := args
	if r.root != "" {
		found, err := candidateDirs(r.root)
		if err != nil {
			return err
		}
		dirs = append(dirs, found...)
	}
	if len(dirs) == 0 {
		dirs = []string{"."}
	}

	store, err := openStatusStore(r.statusDB, r.root)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}
	return updateDirs(r.ctx, engine, dirs, store, cmd.OutOrStdout())
}

func newEngine(rawBackend string) (*snapshot.Engine, error) {
	var kind backend.Kind
	if rawBackend != "" {
		var err error
		if kind, err = backend.ParseKind(rawBackend); err != nil {
			return nil, err
		}
	}
	return snapshot.New(snapshot.Options{Backend: kind}), nil
}

// candidateDirs lists the non-hidden sub-directories of root.
func candidateDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", root, err)
	}
	var dirs []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		dirs = append(dirs, filepath.Join(root, entry.Name()))
	}
	return dirs, nil
}

// openStatusStore returns nil when there is nowhere to record runs.
func openStatusStore(path, root string) (*status.Store, error) {
	if path == "" && root != "" {
		path = filepath.Join(root, status.DefaultFileName)
	}
	if path == "" {
		return nil, nil
	}
	return status.Open(path)
}

// updateDirs runs every directory, prints one line per result and records it
// in store when not nil. It fails when at least one run failed.
func updateDirs(ctx context.Context, engine *snapshot.Engine, dirs []string, store *status.Store, out io.Writer) error {
	var storeErrs []error
	runErr := engine.RunAll(ctx, dirs, func(result snapshot.Result, err error) {
		record := statusRecord(result, err)
		fmt.Fprintln(out, summary(record))
		if store != nil && record.Repo != "" {
			if err := store.Put(ctx, record); err != nil {
				storeErrs = append(storeErrs, err)
			}
		}
	})
	return errors.Join(append([]error{runErr}, storeErrs...)...)
}

func statusRecord(result snapshot.Result, err error) status.Record {
	record := status.Record{
		Repo:           result.Repo,
		At:             result.At,
		New:            len(result.Diff.New),
		Changed:        len(result.Diff.Changed),
		Removed:        len(result.Diff.Removed),
		KeepersCreated: len(result.Report.Created),
		KeepersDeleted: len(result.Report.Deleted),
	}
	var runErr *snapshot.RunError
	switch {
	case err != nil:
		record.Outcome = status.OutcomeFailed
		record.Error = err.Error()
		if errors.As(err, &runErr) && record.Repo == "" {
			record.Repo = runErr.Repo
		}
	case result.Outcome == snapshot.OutcomeSkipped:
		record.Outcome = status.OutcomeSkipped
	default:
		record.Outcome = status.OutcomeOK
	}
	return record
}

func summary(r status.Record) string {
	switch r.Outcome {
	case status.OutcomeFailed:
		return fmt.Sprintf("%s\t%s\t%s", r.Outcome, r.Repo, r.Error)
	case status.OutcomeSkipped:
		return fmt.Sprintf("%s\t%s", r.Outcome, r.Repo)
	default:
		return fmt.Sprintf("%s\t%s\tnew=%d changed=%d removed=%d kept=%d dropped=%d",
			r.Outcome, r.Repo, r.New, r.Changed, r.Removed, r.KeepersCreated, r.KeepersDeleted)
	}
}
