package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/uptrace/bun"

	"github.com/thiagokokada/doublegit-go/internal/git"
)

// Tx is the single ledger transaction of a snapshot run. Nothing is visible
// to other readers until Commit.
type Tx struct {
	tx bun.Tx
}

// OpenRefs returns the refs that currently have an open interval, i.e. the
// state recorded by the last committed run.
func (t *Tx) OpenRefs(ctx context.Context) ([]git.RefState, error) {
	var models []refModel
	err := t.tx.NewSelect().
		Model(&models).
		Where("to_date IS NULL").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("read open rows: %w", err)
	}
	states := make([]git.RefState, 0, len(models))
	for _, m := range models {
		ref := git.Branch(m.Name)
		if m.Tag {
			ref = git.Tag(m.Name)
		}
		states = append(states, git.RefState{Ref: ref, Hash: m.SHA})
	}
	slices.SortFunc(states, func(a, b git.RefState) int { return git.CompareRefs(a.Ref, b.Ref) })
	return states, nil
}

// Close ends the latest interval of every ref at the given instant. A ref
// without an open latest interval is an ErrNoOpenRow error.
func (t *Tx) Close(ctx context.Context, refs []git.Ref, at time.Time) error {
	stamp := formatTime(at)
	for _, ref := range refs {
		var latest refModel
		err := t.tx.NewSelect().
			Model(&latest).
			Where("name = ?", ref.Name).
			Where("tag = ?", ref.IsTag()).
			OrderExpr("from_date DESC, id DESC").
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("close %s: %w", ref, ErrNoOpenRow)
		}
		if err != nil {
			return fmt.Errorf("close %s: %w", ref, err)
		}
		if latest.ToDate != nil {
			return fmt.Errorf("close %s: latest row ended at %s: %w", ref, *latest.ToDate, ErrNoOpenRow)
		}
		_, err = t.tx.NewUpdate().
			Model((*refModel)(nil)).
			Set("to_date = ?", stamp).
			Where("id = ?", latest.ID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("close %s: %w", ref, err)
		}
		slog.Debug("ledger close", slog.String("ref", ref.FullName()), slog.String("to", stamp))
	}
	return nil
}

// Open starts a new interval for every ref at the given instant, pointing at
// the commit returned by resolve.
func (t *Tx) Open(ctx context.Context, refs []git.Ref, at time.Time, resolve func(git.Ref) (string, error)) error {
	stamp := formatTime(at)
	for _, ref := range refs {
		sha, err := resolve(ref)
		if err != nil {
			return fmt.Errorf("open %s: %w", ref, err)
		}
		model := &refModel{Name: ref.Name, FromDate: stamp, SHA: sha, Tag: ref.IsTag()}
		if _, err := t.tx.NewInsert().Model(model).Exec(ctx); err != nil {
			return fmt.Errorf("open %s: %w", ref, err)
		}
		slog.Debug("ledger open",
			slog.String("ref", ref.FullName()),
			slog.String("from", stamp),
			slog.String("sha", sha),
		)
	}
	return nil
}

func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger transaction: %w", err)
	}
	return nil
}

// Rollback discards the transaction. It is a no-op after Commit.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback ledger transaction: %w", err)
	}
	return nil
}
