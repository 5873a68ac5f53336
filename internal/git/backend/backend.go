package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/thiagokokada/doublegit-go/internal/git"
)

// Backend is the version-control store of one mirror repository.
//
// Every call blocks until the store answers. The snapshot engine never reads
// or writes repository objects except through this interface, so an
// implementation may use go-git or shell out to the git executable.
type Backend interface {
	RepoPath() string

	// Fetch synchronizes with the tracked remote, pruning remote-tracking
	// branches that disappeared upstream and fetching all tags.
	Fetch(ctx context.Context) error
	// ListRemoteRefs returns remote-tracking branches and tags with their
	// unpeeled object ids.
	ListRemoteRefs(ctx context.Context) ([]git.RefState, error)

	Resolve(ctx context.Context, refName string) (string, error)
	IsAnnotatedTag(ctx context.Context, hash string) (bool, error)

	CreateRef(ctx context.Context, refName string, hash string) error
	// CreateBranch creates or moves a local branch.
	CreateBranch(ctx context.Context, name string, hash string) error
	DeleteBranch(ctx context.Context, name string) error

	// IncludedBranches returns local branches whose tip is reachable from hash.
	IncludedBranches(ctx context.Context, hash string) ([]string, error)
	// IncludingBranches returns local branches whose tip reaches hash.
	IncludingBranches(ctx context.Context, hash string) ([]string, error)
}

type Kind string

const (
	KindNative Kind = "native"
	KindGitCLI Kind = "gitcli"
)

func ParseKind(raw string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case "", KindNative:
		return KindNative, nil
	case KindGitCLI:
		return KindGitCLI, nil
	default:
		return "", fmt.Errorf("unknown backend %q (want %s or %s)", raw, KindNative, KindGitCLI)
	}
}

func Open(kind Kind, repoPath string) (Backend, error) {
	switch kind {
	case KindGitCLI:
		return OpenCLI(repoPath)
	case KindNative, "":
		return OpenNative(repoPath)
	default:
		return nil, fmt.Errorf("unknown backend %q", kind)
	}
}
