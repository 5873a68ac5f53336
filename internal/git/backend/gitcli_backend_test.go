package backend

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/thiagokokada/doublegit-go/internal/git"
)

func TestParseRemoteRefsFromShowRef(t *testing.T) {
	t.Parallel()

	const (
		commit1 = "1111111111111111111111111111111111111111"
		commit2 = "2222222222222222222222222222222222222222"
		tagObj  = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	)

	in := strings.Join([]string{
		commit1 + " refs/heads/keep-" + commit1,
		commit1 + " refs/remotes/origin/main",
		commit1 + " refs/remotes/origin/HEAD",
		commit2 + " refs/remotes/origin/devel",
		commit2 + " refs/remotes/upstream/devel",
		commit2 + " refs/tags/v1.0",
		tagObj + " refs/tags/v2.0",
		commit1 + " refs/tags/v2.0^{}",
		tagObj + " refs/kept-tags/tag-" + tagObj,
		"",
	}, "\n")

	got, err := parseRemoteRefsFromShowRef(in)
	if err != nil {
		t.Fatalf("parseRemoteRefsFromShowRef() error = %v", err)
	}
	want := []git.RefState{
		{Ref: git.Branch("devel"), Hash: commit2},
		{Ref: git.Branch("main"), Hash: commit1},
		{Ref: git.Tag("v1.0"), Hash: commit2},
		// annotated tags keep the tag object id
		{Ref: git.Tag("v2.0"), Hash: tagObj},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("parseRemoteRefsFromShowRef() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRemoteRefsFromShowRef_InvalidLine(t *testing.T) {
	t.Parallel()

	_, err := parseRemoteRefsFromShowRef("refs/heads/main\n")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestParseBranchList(t *testing.T) {
	t.Parallel()

	got := parseBranchList("keep-b\n\n  keep-a\r\nmain\n")
	if diff := cmp.Diff([]string{"keep-a", "keep-b", "main"}, got); diff != "" {
		t.Fatalf("parseBranchList() mismatch (-want +got):\n%s", diff)
	}
	if got := parseBranchList(""); got != nil {
		t.Fatalf("parseBranchList(\"\") = %#v, want nil", got)
	}
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{in: "", want: KindNative},
		{in: "native", want: KindNative},
		{in: " GitCLI ", want: KindGitCLI},
		{in: "libgit2", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
