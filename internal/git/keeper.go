package git

import "strings"

const (
	// KeeperBranchPrefix prefixes branch-style keepers: keep-<hash>.
	KeeperBranchPrefix = "keep-"
	// KeeperTagNamespace holds tag-style keepers, outside refs/tags so they
	// never collide with upstream tags.
	KeeperTagNamespace = "refs/kept-tags/"
)

// KeeperBranch returns the branch name preserving hash.
func KeeperBranch(hash string) string {
	return KeeperBranchPrefix + hash
}

// KeeperTagRef returns the fully qualified ref preserving an annotated tag
// object.
func KeeperTagRef(hash string) string {
	return KeeperTagNamespace + "tag-" + hash
}

func IsKeeperBranch(name string) bool {
	return strings.HasPrefix(name, KeeperBranchPrefix) && len(name) > len(KeeperBranchPrefix)
}
