package ledger

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/uptrace/bun"

	"github.com/thiagokokada/doublegit-go/internal/git"
)

type HistoryFilter struct {
	// Name restricts the result to one ref name (branch or tag).
	Name string
	// OpenOnly keeps only rows without an end date.
	OpenOnly bool
}

// History returns committed rows ordered by start date then name.
func (l *Ledger) History(ctx context.Context, filter HistoryFilter) ([]Row, error) {
	var models []refModel
	q := l.db.NewSelect().Model(&models).OrderExpr("from_date ASC, name ASC, id ASC")
	if filter.Name != "" {
		q = q.Where("name = ?", filter.Name)
	}
	if filter.OpenOnly {
		q = q.Where("to_date IS NULL")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	rows := make([]Row, 0, len(models))
	for _, m := range models {
		r, err := m.row()
		if err != nil {
			return nil, err
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// StateAt returns the refs whose interval contains the instant: started at or
// before it and not yet ended.
func (l *Ledger) StateAt(ctx context.Context, at time.Time) ([]git.RefState, error) {
	stamp := formatTime(at)
	var models []refModel
	err := l.db.NewSelect().
		Model(&models).
		Where("from_date <= ?", stamp).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("to_date IS NULL").WhereOr("to_date > ?", stamp)
		}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("read state at %s: %w", stamp, err)
	}
	states := make([]git.RefState, 0, len(models))
	for _, m := range models {
		r, err := m.row()
		if err != nil {
			return nil, err
		}
		states = append(states, git.RefState{Ref: r.Ref(), Hash: r.CommitID})
	}
	slices.SortFunc(states, func(a, b git.RefState) int { return git.CompareRefs(a.Ref, b.Ref) })
	return states, nil
}
