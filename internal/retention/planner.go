// Package retention keeps every commit ever observed on a remote reachable
// from a local keeper ref, and prunes keepers made redundant by others.
//
// Keepers are named after the commit they hold (see git.KeeperBranch), so the
// same commit seen through several refs never yields two keepers. After Prune
// the surviving keeper branches form an antichain: none is an ancestor of
// another. Tag keepers are never pruned.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/thiagokokada/doublegit-go/internal/git"
	"github.com/thiagokokada/doublegit-go/internal/git/backend"
)

// Report lists the keeper refs a planner run touched, in mutation order.
type Report struct {
	Created []string
	Deleted []string
}

func (r Report) Empty() bool {
	return len(r.Created) == 0 && len(r.Deleted) == 0
}

type Planner struct {
	backend backend.Backend
}

func New(b backend.Backend) *Planner {
	return &Planner{backend: b}
}

// target is what a frontier ref currently points at.
type target struct {
	ref       git.Ref
	hash      string
	annotated bool
}

func (p *Planner) resolve(ctx context.Context, ref git.Ref) (target, error) {
	hash, err := p.backend.Resolve(ctx, ref.RefName())
	if err != nil {
		return target{}, fmt.Errorf("resolve %s: %w", ref, err)
	}
	t := target{ref: ref, hash: hash}
	if ref.IsTag() {
		annotated, err := p.backend.IsAnnotatedTag(ctx, hash)
		if err != nil {
			return target{}, fmt.Errorf("inspect %s: %w", ref, err)
		}
		t.annotated = annotated
	}
	return t, nil
}

// Run synthesizes keepers for the frontier then prunes redundant ones. A
// failure stops the run; mutations already applied are kept.
func (p *Planner) Run(ctx context.Context, frontier []git.Ref) (Report, error) {
	var report Report
	if err := p.Synthesize(ctx, frontier, &report); err != nil {
		return report, err
	}
	if err := p.Prune(ctx, frontier, &report); err != nil {
		return report, err
	}
	return report, nil
}

// Synthesize creates one keeper per frontier ref: a tag keeper for annotated
// tags, a branch keeper otherwise. Existing keepers are overwritten in place.
func (p *Planner) Synthesize(ctx context.Context, frontier []git.Ref, report *Report) error {
	for _, ref := range frontier {
		t, err := p.resolve(ctx, ref)
		if err != nil {
			return err
		}
		if t.annotated {
			name := git.KeeperTagRef(t.hash)
			slog.Info("making ref", slog.String("ref", ref.FullName()), slog.String("keeper", name))
			if err := p.backend.CreateRef(ctx, name, t.hash); err != nil {
				return fmt.Errorf("keep %s: %w", ref, err)
			}
			report.Created = append(report.Created, name)
			continue
		}
		name := git.KeeperBranch(t.hash)
		slog.Info("making branch", slog.String("ref", ref.FullName()), slog.String("keeper", name))
		if err := p.backend.CreateBranch(ctx, name, t.hash); err != nil {
			return fmt.Errorf("keep %s: %w", ref, err)
		}
		report.Created = append(report.Created, name)
	}
	return nil
}

// Prune deletes keeper branches subsumed by a frontier ref. Keepers whose tip
// is an ancestor of the ref's commit are collapsed into the ref's own keeper,
// and the ref's own keeper goes away when another keeper already contains it.
// The self check is skipped for annotated tags.
func (p *Planner) Prune(ctx context.Context, frontier []git.Ref, report *Report) error {
	for _, ref := range frontier {
		t, err := p.resolve(ctx, ref)
		if err != nil {
			return err
		}
		own := git.KeeperBranch(t.hash)

		included, err := p.keepers(ctx, p.backend.IncludedBranches, t.hash)
		if err != nil {
			return fmt.Errorf("prune ancestors of %s: %w", ref, err)
		}
		for _, name := range included {
			if name == own {
				continue
			}
			if err := p.delete(ctx, ref, name, report); err != nil {
				return err
			}
		}

		if t.annotated {
			continue
		}
		including, err := p.keepers(ctx, p.backend.IncludingBranches, t.hash)
		if err != nil {
			return fmt.Errorf("check %s: %w", ref, err)
		}
		if len(including) > 1 && slices.Contains(including, own) {
			if err := p.delete(ctx, ref, own, report); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Planner) delete(ctx context.Context, ref git.Ref, name string, report *Report) error {
	slog.Info("deleting branch", slog.String("ref", ref.FullName()), slog.String("keeper", name))
	if err := p.backend.DeleteBranch(ctx, name); err != nil {
		return fmt.Errorf("drop %s for %s: %w", name, ref, err)
	}
	report.Deleted = append(report.Deleted, name)
	return nil
}

// keepers runs a branch query and keeps only keeper branches.
func (p *Planner) keepers(ctx context.Context, query func(context.Context, string) ([]string, error), hash string) ([]string, error) {
	branches, err := query(ctx, hash)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(branches, func(name string) bool { return !git.IsKeeperBranch(name) }), nil
}
