package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/thiagokokada/doublegit-go/internal/git"
)

// maxTagChain bounds tag-of-tag peeling.
const maxTagChain = 8

type native struct {
	path string
	repo *gitlib.Repository
}

// OpenNative opens the mirror with go-git; no git executable is needed except
// for fetching over the file transport.
func OpenNative(repoPath string) (Backend, error) {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	repo, err := gitlib.PlainOpen(abs)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return &native{path: abs, repo: repo}, nil
}

func (n *native) RepoPath() string {
	return n.path
}

func (n *native) Fetch(ctx context.Context) error {
	remote, err := n.repo.Remote(git.RemoteName)
	if err != nil {
		return fmt.Errorf("fetch: remote %s: %w", git.RemoteName, err)
	}
	advertised, err := remote.ListContext(ctx, &gitlib.ListOptions{})
	if err != nil && !errors.Is(err, transport.ErrEmptyRemoteRepository) {
		return fmt.Errorf("fetch: list %s: %w", git.RemoteName, err)
	}
	err = n.repo.FetchContext(ctx, &gitlib.FetchOptions{
		RemoteName: git.RemoteName,
		Tags:       gitlib.AllTags,
		Force:      true,
	})
	switch {
	case err == nil:
	case errors.Is(err, gitlib.NoErrAlreadyUpToDate), errors.Is(err, transport.ErrEmptyRemoteRepository):
		slog.Debug("fetch: nothing to update", slog.String("repo", n.path))
	default:
		return fmt.Errorf("fetch %s: %w", git.RemoteName, err)
	}
	return n.pruneRemoteBranches(advertised)
}

// pruneRemoteBranches removes remote-tracking branches whose upstream branch
// is no longer advertised, like `git fetch --prune`.
func (n *native) pruneRemoteBranches(advertised []*plumbing.Reference) error {
	upstream := make(map[string]struct{}, len(advertised))
	for _, ref := range advertised {
		if ref.Name().IsBranch() {
			upstream[ref.Name().Short()] = struct{}{}
		}
	}
	refs, err := n.repo.References()
	if err != nil {
		return fmt.Errorf("prune: %w", err)
	}
	var stale []plumbing.ReferenceName
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		tracked, ok := git.ParseRefName(ref.Name().String())
		if !ok || tracked.IsTag() {
			return nil
		}
		if _, ok := upstream[tracked.Name]; !ok {
			stale = append(stale, ref.Name())
		}
		return nil
	})
	refs.Close()
	if err != nil {
		return fmt.Errorf("prune: %w", err)
	}
	for _, name := range stale {
		slog.Debug("prune remote-tracking branch", slog.String("ref", name.String()))
		if err := n.repo.Storer.RemoveReference(name); err != nil {
			return fmt.Errorf("prune %s: %w", name, err)
		}
	}
	return nil
}

func (n *native) ListRemoteRefs(ctx context.Context) ([]git.RefState, error) {
	refs, err := n.repo.References()
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	defer refs.Close()
	var states []git.RefState
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		tracked, ok := git.ParseRefName(ref.Name().String())
		if !ok {
			return nil
		}
		states = append(states, git.RefState{Ref: tracked, Hash: ref.Hash().String()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	slices.SortFunc(states, func(a, b git.RefState) int { return git.CompareRefs(a.Ref, b.Ref) })
	return states, nil
}

func (n *native) Resolve(_ context.Context, refName string) (string, error) {
	ref, err := n.repo.Reference(plumbing.ReferenceName(refName), true)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", refName, err)
	}
	return ref.Hash().String(), nil
}

func (n *native) IsAnnotatedTag(_ context.Context, hash string) (bool, error) {
	_, err := n.repo.TagObject(plumbing.NewHash(hash))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, plumbing.ErrObjectNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("read object %s: %w", hash, err)
	}
}

func (n *native) CreateRef(_ context.Context, refName string, hash string) error {
	ref := plumbing.NewHashReference(plumbing.ReferenceName(refName), plumbing.NewHash(hash))
	if err := n.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("create ref %s: %w", refName, err)
	}
	return nil
}

func (n *native) CreateBranch(ctx context.Context, name string, hash string) error {
	return n.CreateRef(ctx, plumbing.NewBranchReferenceName(name).String(), hash)
}

func (n *native) DeleteBranch(_ context.Context, name string) error {
	refName := plumbing.NewBranchReferenceName(name)
	if _, err := n.repo.Reference(refName, false); err != nil {
		return fmt.Errorf("delete branch %s: %w", name, err)
	}
	if err := n.repo.Storer.RemoveReference(refName); err != nil {
		return fmt.Errorf("delete branch %s: %w", name, err)
	}
	return nil
}

func (n *native) IncludedBranches(ctx context.Context, hash string) ([]string, error) {
	target, err := n.peelCommit(plumbing.NewHash(hash))
	if err != nil {
		return nil, err
	}
	return n.branchesWhere(ctx, func(tip *object.Commit) (bool, error) {
		return tip.IsAncestor(target)
	})
}

func (n *native) IncludingBranches(ctx context.Context, hash string) ([]string, error) {
	target, err := n.peelCommit(plumbing.NewHash(hash))
	if err != nil {
		return nil, err
	}
	return n.branchesWhere(ctx, func(tip *object.Commit) (bool, error) {
		return target.IsAncestor(tip)
	})
}

func (n *native) branchesWhere(ctx context.Context, match func(tip *object.Commit) (bool, error)) ([]string, error) {
	branches, err := n.repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	defer branches.Close()
	var names []string
	err = branches.ForEach(func(ref *plumbing.Reference) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		tip, err := n.peelCommit(ref.Hash())
		if err != nil {
			return fmt.Errorf("branch %s: %w", ref.Name().Short(), err)
		}
		ok, err := match(tip)
		if err != nil {
			return fmt.Errorf("branch %s: %w", ref.Name().Short(), err)
		}
		if ok {
			names = append(names, ref.Name().Short())
		}
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return nil, err
	}
	slices.Sort(names)
	return names, nil
}

// peelCommit follows annotated tags down to the commit they name.
func (n *native) peelCommit(hash plumbing.Hash) (*object.Commit, error) {
	cur := hash
	for range maxTagChain {
		obj, err := n.repo.Object(plumbing.AnyObject, cur)
		if err != nil {
			return nil, fmt.Errorf("read object %s: %w", cur, err)
		}
		switch o := obj.(type) {
		case *object.Commit:
			return o, nil
		case *object.Tag:
			cur = o.Target
		default:
			return nil, fmt.Errorf("object %s is a %s, not a commit", cur, obj.Type())
		}
	}
	return nil, fmt.Errorf("tag chain from %s is too deep", hash)
}
