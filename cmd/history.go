package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/doublegit-go/internal/ledger"
	"github.com/thiagokokada/doublegit-go/internal/render"
)

type historyRunner struct {
	ctx     context.Context
	Command *cobra.Command

	ref      string
	openOnly bool
}

func newHistoryRunner(ctx context.Context) *historyRunner {
	r := &historyRunner{ctx: ctx}
	c := &cobra.Command{
		Use:   "history REPO",
		Short: "Show the recorded intervals of every ref",
		Args:  cobra.ExactArgs(1),
		RunE:  r.runE,
	}
	c.Flags().StringVar(&r.ref, "ref", "", "only show this branch or tag name")
	c.Flags().BoolVar(&r.openOnly, "open", false, "only show refs that still exist upstream")
	r.Command = c
	return r
}

func (r *historyRunner) runE(cmd *cobra.Command, args []string) error {
	l, err := openExistingLedger(r.ctx, args[0])
	if err != nil {
		return err
	}
	defer l.Close()
	rows, err := l.History(r.ctx, ledger.HistoryFilter{Name: r.ref, OpenOnly: r.openOnly})
	if err != nil {
		return err
	}
	render.HistoryTable(cmd.OutOrStdout(), rows)
	return nil
}

// openExistingLedger refuses to create a ledger from a read-only command.
func openExistingLedger(ctx context.Context, repo string) (*ledger.Ledger, error) {
	path := ledger.Path(repo)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s has no ledger; run update first", repo)
	}
	return ledger.Open(ctx, repo)
}

// parseInstant accepts the ledger layout, RFC 3339 or a bare date, in UTC
// unless a zone is given.
func parseInstant(raw string) (time.Time, error) {
	for _, layout := range []string{ledger.TimeLayout, time.RFC3339, "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q (want %q, RFC 3339 or YYYY-MM-DD)", raw, ledger.TimeLayout)
}
