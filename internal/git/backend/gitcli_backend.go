package backend

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/thiagokokada/doublegit-go/internal/git"
)

func (g *gitCLI) Fetch(ctx context.Context) error {
	_, err := g.runGitCommand(
		ctx,
		[]string{"fetch", "--quiet", "--prune", "--tags", "--force", git.RemoteName},
		false,
		"git fetch",
	)
	return err
}

func (g *gitCLI) ListRemoteRefs(ctx context.Context) ([]git.RefState, error) {
	out, err := g.runGitCommand(ctx, []string{"--no-pager", "show-ref"}, true, "git show-ref")
	if err != nil {
		return nil, err
	}
	return parseRemoteRefsFromShowRef(out)
}

func (g *gitCLI) Resolve(ctx context.Context, refName string) (string, error) {
	refName = strings.TrimSpace(refName)
	if refName == "" {
		return "", fmt.Errorf("ref not specified")
	}
	out, err := g.runGitCommand(ctx, []string{"rev-parse", "--verify", "--quiet", refName}, true, "git rev-parse")
	if err != nil {
		return "", err
	}
	hash := strings.TrimSpace(out)
	if hash == "" {
		return "", fmt.Errorf("git rev-parse: unknown ref %q", refName)
	}
	return hash, nil
}

func (g *gitCLI) IsAnnotatedTag(ctx context.Context, hash string) (bool, error) {
	out, err := g.runGitCommand(ctx, []string{"cat-file", "-t", hash}, false, "git cat-file")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "tag", nil
}

func (g *gitCLI) CreateRef(ctx context.Context, refName string, hash string) error {
	_, err := g.runGitCommand(ctx, []string{"update-ref", refName, hash}, false, "git update-ref")
	return err
}

func (g *gitCLI) CreateBranch(ctx context.Context, name string, hash string) error {
	_, err := g.runGitCommand(ctx, []string{"branch", "-f", name, hash}, false, "git branch")
	return err
}

func (g *gitCLI) DeleteBranch(ctx context.Context, name string) error {
	_, err := g.runGitCommand(ctx, []string{"branch", "-D", name}, false, "git branch")
	return err
}

func (g *gitCLI) IncludedBranches(ctx context.Context, hash string) ([]string, error) {
	return g.filteredBranches(ctx, "--merged", hash)
}

func (g *gitCLI) IncludingBranches(ctx context.Context, hash string) ([]string, error) {
	return g.filteredBranches(ctx, "--contains", hash)
}

func (g *gitCLI) filteredBranches(ctx context.Context, filter string, hash string) ([]string, error) {
	out, err := g.runGitCommand(
		ctx,
		[]string{"for-each-ref", "--format=%(refname:lstrip=2)", filter + "=" + hash, "refs/heads/"},
		false,
		"git for-each-ref",
	)
	if err != nil {
		return nil, err
	}
	return parseBranchList(out), nil
}

func parseBranchList(out string) []string {
	var branches []string
	for rawLine := range strings.SplitSeq(out, "\n") {
		name := strings.TrimSpace(rawLine)
		if name == "" {
			continue
		}
		branches = append(branches, name)
	}
	slices.Sort(branches)
	return branches
}

func parseRemoteRefsFromShowRef(out string) ([]git.RefState, error) {
	var refs []git.RefState
	for rawLine := range strings.SplitSeq(out, "\n") {
		line := strings.TrimRight(rawLine, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, fmt.Errorf("unexpected show-ref output line: %q", rawLine)
		}
		hash, refName := parts[0], parts[1]
		if strings.HasSuffix(refName, "^{}") {
			// peeled entries only appear with --dereference; ids stay unpeeled
			continue
		}
		ref, ok := git.ParseRefName(refName)
		if !ok {
			continue
		}
		refs = append(refs, git.RefState{Ref: ref, Hash: hash})
	}
	slices.SortFunc(refs, func(a, b git.RefState) int { return git.CompareRefs(a.Ref, b.Ref) })
	return refs, nil
}
