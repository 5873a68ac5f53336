package git

import (
	"cmp"
	"fmt"
	"strings"
)

// RemoteName is the only remote whose branches are tracked.
const RemoteName = "origin"

const (
	remoteRefPrefix = "refs/remotes/" + RemoteName + "/"
	tagRefPrefix    = "refs/tags/"
)

type RefKind uint8

const (
	RefKindBranch RefKind = iota
	RefKindTag
)

func (k RefKind) String() string {
	switch k {
	case RefKindBranch:
		return "branch"
	case RefKindTag:
		return "tag"
	default:
		return fmt.Sprintf("RefKind(%d)", uint8(k))
	}
}

// Ref identifies a tracked upstream name. Two refs are the same iff both the
// name and the kind match.
type Ref struct {
	Name string // short name: main, v1
	Kind RefKind
}

func Branch(name string) Ref { return Ref{Name: name, Kind: RefKindBranch} }

func Tag(name string) Ref { return Ref{Name: name, Kind: RefKindTag} }

func (r Ref) IsTag() bool { return r.Kind == RefKindTag }

// FullName is the name as git users see it: origin/main for branches, v1 for
// tags.
func (r Ref) FullName() string {
	if r.IsTag() {
		return r.Name
	}
	return RemoteName + "/" + r.Name
}

// RefName is the fully qualified reference in the mirror.
func (r Ref) RefName() string {
	if r.IsTag() {
		return tagRefPrefix + r.Name
	}
	return remoteRefPrefix + r.Name
}

func (r Ref) String() string {
	return r.FullName()
}

// ParseRemoteBranch parses origin/<branch>. Any other remote is rejected.
func ParseRemoteBranch(name string) (Ref, error) {
	remote, branch, ok := strings.Cut(name, "/")
	if !ok {
		return Ref{}, fmt.Errorf("invalid remote ref %q", name)
	}
	if remote != RemoteName {
		return Ref{}, fmt.Errorf("remote ref %q has invalid remote %q", name, remote)
	}
	if branch == "" {
		return Ref{}, fmt.Errorf("invalid remote ref %q", name)
	}
	return Branch(branch), nil
}

// ParseRefName maps a fully qualified reference from the mirror to a tracked
// Ref. Symbolic remote HEADs and anything outside the tracked namespaces are
// reported as not ok.
func ParseRefName(refName string) (Ref, bool) {
	switch {
	case strings.HasPrefix(refName, remoteRefPrefix):
		short := strings.TrimPrefix(refName, remoteRefPrefix)
		if short == "" || short == "HEAD" {
			return Ref{}, false
		}
		return Branch(short), true
	case strings.HasPrefix(refName, tagRefPrefix):
		short := strings.TrimPrefix(refName, tagRefPrefix)
		if short == "" {
			return Ref{}, false
		}
		return Tag(short), true
	default:
		return Ref{}, false
	}
}

// CompareRefs orders branches before tags, then by name.
func CompareRefs(a, b Ref) int {
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}
	return cmp.Compare(a.Name, b.Name)
}
