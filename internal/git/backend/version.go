package backend

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// Minimum supported git version for the CLI backend. for-each-ref needs
// %(refname:lstrip=N) and --merged/--contains filters.
var minGitVersion = gitVersion{major: 2, minor: 13, patch: 0}

type gitVersion struct {
	major int
	minor int
	patch int
}

func MinGitVersion() string {
	return minGitVersion.String()
}

func (v gitVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.major, v.minor, v.patch)
}

func (v gitVersion) less(other gitVersion) bool {
	if v.major != other.major {
		return v.major < other.major
	}
	if v.minor != other.minor {
		return v.minor < other.minor
	}
	return v.patch < other.patch
}

// parseGitVersionOutput accepts "git version 2.44.0", vendor suffixes such as
// "2.39.3 (Apple Git-146)" or "2.39.3.windows.1", and a bare "2.42".
func parseGitVersionOutput(out string) (gitVersion, bool) {
	s := strings.TrimSpace(out)
	if idx := strings.Index(s, "git version"); idx >= 0 {
		s = s[idx+len("git version"):]
	}
	start := strings.IndexAny(s, "0123456789")
	if start < 0 {
		return gitVersion{}, false
	}
	s = s[start:]
	end := 0
	for end < len(s) && (s[end] == '.' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}
	parts := strings.Split(strings.Trim(s[:end], "."), ".")
	if len(parts) < 2 {
		return gitVersion{}, false
	}
	var nums [3]int
	for i := 0; i < len(parts) && i < len(nums); i++ {
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			if i == 2 {
				break
			}
			return gitVersion{}, false
		}
		nums[i] = n
	}
	return gitVersion{major: nums[0], minor: nums[1], patch: nums[2]}, true
}

func validateGitVersionOutput(out string) error {
	got, ok := parseGitVersionOutput(out)
	if !ok {
		return fmt.Errorf("unable to parse git version output: %q", strings.TrimSpace(out))
	}
	if got.less(minGitVersion) {
		return fmt.Errorf("git %s is too old; doublegit requires git >= %s", got, minGitVersion)
	}
	return nil
}

var (
	gitVersionOnce sync.Once
	gitVersionOut  string
	gitVersionErr  error
)

// GitVersion returns the raw `git --version` output, cached for the process.
func GitVersion() (string, error) {
	gitVersionOnce.Do(func() {
		outBytes, err := exec.Command("git", "--version").CombinedOutput()
		gitVersionOut = strings.TrimSpace(string(outBytes))
		if err != nil {
			if gitVersionOut != "" {
				gitVersionErr = fmt.Errorf("git --version: %v: %s", err, gitVersionOut)
				return
			}
			gitVersionErr = fmt.Errorf("git --version: %w", err)
		}
	})
	return gitVersionOut, gitVersionErr
}

func ensureMinGitVersion() error {
	out, err := GitVersion()
	if err != nil {
		return err
	}
	return validateGitVersionOutput(out)
}
