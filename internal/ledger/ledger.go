// Package ledger stores the history of every tracked ref as time intervals in
// a per-repository SQLite database.
//
// A row is opened when a ref starts pointing at a commit and closed when it
// stops. Rows are never deleted and a closed row is never modified again; a
// unique partial index keeps at most one open row per ref.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"

	"github.com/thiagokokada/doublegit-go/internal/git"
)

// FileName is the ledger database inside a mirror repository.
const FileName = "gitarchive.sqlite3"

// TimeLayout is how instants are persisted, always in UTC.
const TimeLayout = "2006-01-02 15:04:05"

// ErrNoOpenRow reports a ref that should have an open interval but does not,
// which means the ledger was modified concurrently or is corrupted.
var ErrNoOpenRow = errors.New("no open history row")

type refModel struct {
	bun.BaseModel `bun:"table:refs"`

	ID       int64   `bun:"id,pk,autoincrement"`
	Name     string  `bun:"name,type:text,notnull"`
	FromDate string  `bun:"from_date,type:text,notnull"`
	ToDate   *string `bun:"to_date,type:text"`
	SHA      string  `bun:"sha,type:text,notnull"`
	Tag      bool    `bun:"tag,notnull"`
}

// Row is one interval of the history of a ref.
type Row struct {
	Name     string
	FromDate time.Time
	ToDate   *time.Time
	CommitID string
	IsTag    bool
}

func (r Row) Ref() git.Ref {
	if r.IsTag {
		return git.Tag(r.Name)
	}
	return git.Branch(r.Name)
}

func (r Row) IsOpen() bool {
	return r.ToDate == nil
}

type Ledger struct {
	db   *bun.DB
	path string
}

// Path returns the ledger location for a mirror repository.
func Path(repoPath string) string {
	return filepath.Join(repoPath, FileName)
}

// Open opens the ledger of a mirror repository, creating the schema on first
// use.
func Open(ctx context.Context, repoPath string) (*Ledger, error) {
	return OpenFile(ctx, Path(repoPath))
}

func OpenFile(ctx context.Context, path string) (*Ledger, error) {
	_, statErr := os.Stat(path)
	created := errors.Is(statErr, os.ErrNotExist)

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_txlock=immediate", path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	sqlDB.SetMaxOpenConns(1)
	l := &Ledger{db: bun.NewDB(sqlDB, sqlitedialect.New()), path: path}
	if created {
		slog.Warn("ledger doesn't exist, creating tables", slog.String("path", path))
	}
	if err := l.bootstrap(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("bootstrap ledger %s: %w", path, err), l.db.Close())
	}
	return l, nil
}

func (l *Ledger) bootstrap(ctx context.Context) error {
	for _, model := range []any{(*refModel)(nil), (*issueModel)(nil), (*commentModel)(nil)} {
		if _, err := l.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	// At most one open interval per ref, enforced by the store itself.
	_, err := l.db.NewCreateIndex().
		Model((*refModel)(nil)).
		Index("refs_open_idx").
		Unique().
		IfNotExists().
		Column("name", "tag").
		Where("to_date IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}
	_, err = l.db.NewCreateIndex().
		Model((*refModel)(nil)).
		Index("refs_name_idx").
		IfNotExists().
		Column("name", "tag", "from_date").
		Exec(ctx)
	return err
}

func (l *Ledger) Path() string {
	return l.path
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// Begin starts the transaction of one snapshot run.
func (l *Ledger) Begin(ctx context.Context) (*Tx, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin ledger transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, s, time.UTC)
}

func (m refModel) row() (Row, error) {
	from, err := parseTime(m.FromDate)
	if err != nil {
		return Row{}, fmt.Errorf("row %d: from_date: %w", m.ID, err)
	}
	r := Row{Name: m.Name, FromDate: from, CommitID: m.SHA, IsTag: m.Tag}
	if m.ToDate != nil {
		to, err := parseTime(*m.ToDate)
		if err != nil {
			return Row{}, fmt.Errorf("row %d: to_date: %w", m.ID, err)
		}
		r.ToDate = &to
	}
	return r, nil
}
