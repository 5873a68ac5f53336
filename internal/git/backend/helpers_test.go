package backend

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git executable not available")
	}
}

// runGit runs git in dir with a fixed identity and returns trimmed stdout.
func runGit(t *testing.T, dir string, env []string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", dir, "-c", "commit.gpgsign=false", "-c", "tag.gpgsign=false"}, args...)...)
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=doublegit",
		"GIT_AUTHOR_EMAIL=doublegit@example.com",
		"GIT_COMMITTER_NAME=doublegit",
		"GIT_COMMITTER_EMAIL=doublegit@example.com",
		"GIT_CONFIG_NOSYSTEM=1",
		"HOME="+dir,
	)
	cmd.Env = append(cmd.Env, env...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// mirrorPair creates an origin work tree on branch main and an empty bare
// mirror whose origin remote points at it.
func mirrorPair(t *testing.T) (origin string, mirror string) {
	t.Helper()
	requireGit(t)
	root := t.TempDir()
	origin = filepath.Join(root, "origin")
	mirror = filepath.Join(root, "mirror")
	for _, dir := range []string{origin, mirror} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	runGit(t, origin, nil, "init", "-q")
	runGit(t, origin, nil, "checkout", "-q", "-b", "main")
	runGit(t, mirror, nil, "init", "-q", "--bare")
	runGit(t, mirror, nil, "remote", "add", "origin", origin)
	return origin, mirror
}

func commitFile(t *testing.T, dir string, contents string, msg string) string {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "f"), []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	runGit(t, dir, nil, "add", "f")
	runGit(t, dir, nil, "commit", "-q", "-m", msg)
	return runGit(t, dir, nil, "rev-parse", "HEAD")
}
