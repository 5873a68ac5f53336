// Package snapshot runs one update of a mirror repository: fetch, record
// what moved in the ledger, keep every observed commit reachable and prune
// redundant keepers.
//
// The ledger transaction is committed last. Keeper mutations happen on the
// repository itself and are not rolled back when a later step fails. Refs
// are diffed against the ledger's open rows rather than against the previous
// fetch, so the run after a failed one observes the same changes again and
// repeats the (idempotent) keeper work.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/thiagokokada/doublegit-go/internal/config"
	"github.com/thiagokokada/doublegit-go/internal/git"
	"github.com/thiagokokada/doublegit-go/internal/git/backend"
	"github.com/thiagokokada/doublegit-go/internal/ledger"
	"github.com/thiagokokada/doublegit-go/internal/platform"
	"github.com/thiagokokada/doublegit-go/internal/retention"
)

type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeSkipped Outcome = "skipped"
)

// Result describes a successful or skipped run.
type Result struct {
	Repo    string
	Outcome Outcome
	At      time.Time
	Diff    git.RefDiff
	Report  retention.Report
}

type Options struct {
	// Backend overrides the backend chosen by the marker file.
	Backend backend.Kind
	// Now stamps every ledger row touched by a run. Defaults to time.Now.
	Now func() time.Time
	// OpenBackend defaults to backend.Open.
	OpenBackend func(kind backend.Kind, repoPath string) (backend.Backend, error)
}

type Engine struct {
	opts Options
}

func New(opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.OpenBackend == nil {
		opts.OpenBackend = backend.Open
	}
	return &Engine{opts: opts}
}

// Run updates the repository in dir. Untracked directories yield
// OutcomeSkipped and no error. Failures are *RunError.
func (e *Engine) Run(ctx context.Context, dir string) (Result, error) {
	repo, err := filepath.Abs(dir)
	if err != nil {
		return Result{}, &RunError{Repo: dir, Kind: KindConfig, Op: "resolve path", Err: err}
	}
	// Ledger timestamps have one second resolution.
	at := e.opts.Now().UTC().Truncate(time.Second)
	result := Result{Repo: repo, At: at}
	fail := func(kind Kind, op string, err error) (Result, error) {
		return result, &RunError{Repo: repo, Kind: kind, Op: op, Err: err}
	}

	cfg, err := config.Load(repo)
	if errors.Is(err, config.ErrNotTracked) {
		slog.Info("skipping untracked directory", slog.String("repo", repo))
		result.Outcome = OutcomeSkipped
		return result, nil
	}
	if err != nil {
		return fail(KindConfig, "load config", err)
	}
	project, err := platform.NewProject(cfg.Type, cfg.Settings)
	if err != nil {
		return fail(KindConfig, "load config", err)
	}
	if err := checkBareRepository(repo); err != nil {
		return fail(KindConfig, "open repository", err)
	}
	kind, err := cfg.ResolveBackend(e.opts.Backend)
	if err != nil {
		return fail(KindConfig, "select backend", err)
	}
	b, err := e.opts.OpenBackend(kind, repo)
	if err != nil {
		return fail(KindBackend, "open repository", err)
	}

	slog.Info("updating repository",
		slog.String("repo", repo),
		slog.String("backend", string(kind)),
		slog.String("type", cfg.Type),
	)

	l, err := ledger.Open(ctx, repo)
	if err != nil {
		return fail(KindLedger, "open ledger", err)
	}
	result, err = e.update(ctx, b, l, project, result)
	if closeErr := l.Close(); closeErr != nil {
		err = errors.Join(err, &RunError{Repo: repo, Kind: KindLedger, Op: "close ledger", Err: closeErr})
	}
	return result, err
}

func (e *Engine) update(ctx context.Context, b backend.Backend, l *ledger.Ledger, project platform.Project, result Result) (Result, error) {
	repo := result.Repo
	at := result.At
	fail := func(kind Kind, op string, err error) (Result, error) {
		return result, &RunError{Repo: repo, Kind: kind, Op: op, Err: err}
	}

	tx, err := l.Begin(ctx)
	if err != nil {
		return fail(KindLedger, "begin", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil {
			slog.Error("ledger rollback", slog.String("repo", repo), slog.Any("error", err))
		}
	}()

	if err := b.Fetch(ctx); err != nil {
		return fail(KindBackend, "fetch", err)
	}
	observed, err := b.ListRemoteRefs(ctx)
	if err != nil {
		return fail(KindBackend, "list refs", err)
	}
	previous, err := tx.OpenRefs(ctx)
	if err != nil {
		return fail(KindLedger, "read open refs", err)
	}
	diff := git.DiffRefs(previous, observed)
	result.Diff = diff
	slog.Info("fetched",
		slog.String("repo", repo),
		slog.Int("new", len(diff.New)),
		slog.Int("changed", len(diff.Changed)),
		slog.Int("removed", len(diff.Removed)),
	)

	if err := tx.Close(ctx, diff.Closing(), at); err != nil {
		if errors.Is(err, ledger.ErrNoOpenRow) {
			return fail(KindInvariant, "close refs", err)
		}
		return fail(KindLedger, "close refs", err)
	}
	hashes := make(map[git.Ref]string, len(observed))
	for _, state := range observed {
		hashes[state.Ref] = state.Hash
	}
	resolve := func(ref git.Ref) (string, error) {
		if hash, ok := hashes[ref]; ok {
			return hash, nil
		}
		return b.Resolve(ctx, ref.RefName())
	}
	if err := tx.Open(ctx, diff.Frontier(), at, resolve); err != nil {
		return fail(KindLedger, "open refs", err)
	}

	report, err := retention.New(b).Run(ctx, diff.Frontier())
	result.Report = report
	if err != nil {
		return fail(KindBackend, "keep refs", err)
	}

	if err := project.Issues(ctx, tx.Recorder(at), ""); err != nil && !errors.Is(err, platform.ErrNotSupported) {
		return fail(KindBackend, "import issues", err)
	}

	if err := tx.Commit(); err != nil {
		return fail(KindLedger, "commit", err)
	}
	result.Outcome = OutcomeOK
	slog.Info("repository updated",
		slog.String("repo", repo),
		slog.Int("keepers_created", len(report.Created)),
		slog.Int("keepers_deleted", len(report.Deleted)),
	)
	return result, nil
}

// checkBareRepository accepts directories laid out like a bare repository.
func checkBareRepository(dir string) error {
	for _, sub := range []string{"refs", "objects"} {
		info, err := os.Stat(filepath.Join(dir, sub))
		if err != nil || !info.IsDir() {
			return fmt.Errorf("%s: %w", dir, ErrNotRepository)
		}
	}
	return nil
}

// RunAll runs every directory in order, calling report after each one. A
// failure does not stop the loop; all failures are joined.
func (e *Engine) RunAll(ctx context.Context, dirs []string, report func(Result, error)) error {
	var errs []error
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		result, err := e.Run(ctx, dir)
		if err != nil {
			slog.Error("update failed", slog.String("repo", dir), slog.Any("error", err))
			errs = append(errs, err)
		}
		if report != nil {
			report(result, err)
		}
	}
	return errors.Join(errs...)
}
