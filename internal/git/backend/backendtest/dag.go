// Package backendtest provides an in-memory backend.Backend over a
// hand-built commit graph, for tests that need exact control of ancestry.
package backendtest

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/thiagokokada/doublegit-go/internal/git"
	"github.com/thiagokokada/doublegit-go/internal/git/backend"
)

// DAG is a fake mirror. Commits and annotated tag objects are plain strings;
// upstream refs are set with SetRemote and DropRemote and become visible
// after Fetch, like a real remote.
type DAG struct {
	mu sync.Mutex

	path    string
	parents map[string][]string
	tags    map[string]string // annotated tag object -> target object

	upstream map[string]string // fully qualified ref -> hash, on the remote
	remote   map[string]string // fetched copy of upstream
	branches map[string]string // local branches
	refs     map[string]string // other refs created through CreateRef

	// Fail, when set, is consulted before every call. A non-nil error is
	// returned instead of performing the operation.
	Fail func(op string, arg string) error

	mutations []string
}

var _ backend.Backend = (*DAG)(nil)

func New(path string) *DAG {
	return &DAG{
		path:     path,
		parents:  map[string][]string{},
		tags:     map[string]string{},
		upstream: map[string]string{},
		remote:   map[string]string{},
		branches: map[string]string{},
		refs:     map[string]string{},
	}
}

// Commit adds a commit with the given parents.
func (d *DAG) Commit(hash string, parents ...string) *DAG {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.parents[hash] = parents
	return d
}

// AnnotatedTag adds a tag object pointing at target.
func (d *DAG) AnnotatedTag(hash string, target string) *DAG {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tags[hash] = target
	return d
}

// SetRemote points an upstream ref at hash.
func (d *DAG) SetRemote(ref git.Ref, hash string) *DAG {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.upstream[ref.RefName()] = hash
	return d
}

func (d *DAG) DropRemote(ref git.Ref) *DAG {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.upstream, ref.RefName())
	return d
}

// Branches returns local branch names, sorted.
func (d *DAG) Branches() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Sorted(maps.Keys(d.branches))
}

// Refs returns the refs created through CreateRef, sorted.
func (d *DAG) Refs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Sorted(maps.Keys(d.refs))
}

// Mutations returns every applied mutation as "create <name>" or
// "delete <name>", then forgets them.
func (d *DAG) Mutations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.mutations
	d.mutations = nil
	return out
}

func (d *DAG) RepoPath() string { return d.path }

func (d *DAG) Fetch(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("fetch", ""); err != nil {
		return err
	}
	d.remote = maps.Clone(d.upstream)
	return nil
}

func (d *DAG) ListRemoteRefs(context.Context) ([]git.RefState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("list", ""); err != nil {
		return nil, err
	}
	states := make([]git.RefState, 0, len(d.remote))
	for name, hash := range d.remote {
		ref, ok := git.ParseRefName(name)
		if !ok {
			continue
		}
		states = append(states, git.RefState{Ref: ref, Hash: hash})
	}
	slices.SortFunc(states, func(a, b git.RefState) int { return git.CompareRefs(a.Ref, b.Ref) })
	return states, nil
}

func (d *DAG) Resolve(_ context.Context, refName string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("resolve", refName); err != nil {
		return "", err
	}
	if hash, ok := d.remote[refName]; ok {
		return hash, nil
	}
	if hash, ok := d.refs[refName]; ok {
		return hash, nil
	}
	if hash, ok := d.branches[strings.TrimPrefix(refName, "refs/heads/")]; ok {
		return hash, nil
	}
	return "", fmt.Errorf("unknown ref %s", refName)
}

func (d *DAG) IsAnnotatedTag(_ context.Context, hash string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("is-annotated", hash); err != nil {
		return false, err
	}
	_, ok := d.tags[hash]
	return ok, nil
}

func (d *DAG) CreateRef(_ context.Context, refName string, hash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("create-ref", refName); err != nil {
		return err
	}
	if !d.exists(hash) {
		return fmt.Errorf("unknown object %s", hash)
	}
	d.refs[refName] = hash
	d.mutations = append(d.mutations, "create "+refName)
	return nil
}

func (d *DAG) CreateBranch(_ context.Context, name string, hash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("create-branch", name); err != nil {
		return err
	}
	commit, err := d.peel(hash)
	if err != nil {
		return err
	}
	d.branches[name] = commit
	d.mutations = append(d.mutations, "create "+name)
	return nil
}

func (d *DAG) DeleteBranch(_ context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("delete-branch", name); err != nil {
		return err
	}
	if _, ok := d.branches[name]; !ok {
		return fmt.Errorf("branch %s not found", name)
	}
	delete(d.branches, name)
	d.mutations = append(d.mutations, "delete "+name)
	return nil
}

func (d *DAG) IncludedBranches(_ context.Context, hash string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("included", hash); err != nil {
		return nil, err
	}
	commit, err := d.peel(hash)
	if err != nil {
		return nil, err
	}
	return d.branchesWhere(func(tip string) bool { return d.isAncestor(tip, commit) }), nil
}

func (d *DAG) IncludingBranches(_ context.Context, hash string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("including", hash); err != nil {
		return nil, err
	}
	commit, err := d.peel(hash)
	if err != nil {
		return nil, err
	}
	return d.branchesWhere(func(tip string) bool { return d.isAncestor(commit, tip) }), nil
}

// IsAncestor reports whether a is reachable from b, b included.
func (d *DAG) IsAncestor(a, b string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isAncestor(a, b)
}

func (d *DAG) fail(op, arg string) error {
	if d.Fail == nil {
		return nil
	}
	return d.Fail(op, arg)
}

func (d *DAG) exists(hash string) bool {
	if _, ok := d.parents[hash]; ok {
		return true
	}
	_, ok := d.tags[hash]
	return ok
}

func (d *DAG) peel(hash string) (string, error) {
	for range 8 {
		target, ok := d.tags[hash]
		if !ok {
			break
		}
		hash = target
	}
	if _, ok := d.parents[hash]; !ok {
		return "", errors.New("unknown commit " + hash)
	}
	return hash, nil
}

func (d *DAG) isAncestor(a, b string) bool {
	seen := map[string]bool{}
	stack := []string{b}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == a {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		stack = append(stack, d.parents[cur]...)
	}
	return false
}

func (d *DAG) branchesWhere(keep func(tip string) bool) []string {
	var out []string
	for name, tip := range d.branches {
		if keep(tip) {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}
