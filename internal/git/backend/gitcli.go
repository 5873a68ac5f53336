package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

type gitCLI struct {
	path string
}

func OpenCLI(repoPath string) (Backend, error) {
	if err := ensureMinGitVersion(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	tmp := &gitCLI{path: abs}
	gitDir, err := tmp.runGitCommand(context.Background(), []string{"rev-parse", "--absolute-git-dir"}, false, "git rev-parse")
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	if strings.TrimSpace(gitDir) == "" {
		return nil, fmt.Errorf("open repository: git rev-parse returned empty git dir")
	}
	return tmp, nil
}

func (g *gitCLI) RepoPath() string {
	if g == nil {
		return ""
	}
	return g.path
}

func (g *gitCLI) runGitCommand(ctx context.Context, args []string, allowExit1 bool, label string) (string, error) {
	if g == nil || g.path == "" {
		return "", fmt.Errorf("repository root not set")
	}
	cmdArgs := append([]string{"-C", g.path}, args...)
	cmd := exec.CommandContext(ctx, "git", cmdArgs...)
	// Never block a batch run on a credential prompt.
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if allowExit1 && errors.As(err, &exitErr) && exitErr.ExitCode() == 1 && stderr.Len() == 0 {
			// exit code 1 without output means "nothing found" for show-ref and rev-parse --quiet
		} else {
			if stderr.Len() > 0 {
				return "", fmt.Errorf("%s: %v: %s", label, err, strings.TrimSpace(stderr.String()))
			}
			return "", fmt.Errorf("%s: %w", label, err)
		}
	}
	return stdout.String(), nil
}
