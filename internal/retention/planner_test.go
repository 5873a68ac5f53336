package retention

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/thiagokokada/doublegit-go/internal/git"
	"github.com/thiagokokada/doublegit-go/internal/git/backend/backendtest"
)

// step fetches the fake remote and runs the planner over the refs passed in,
// which stand for the frontier the snapshot engine would compute.
func step(t *testing.T, dag *backendtest.DAG, frontier ...git.Ref) Report {
	t.Helper()
	ctx := context.Background()
	if err := dag.Fetch(ctx); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	report, err := New(dag).Run(ctx, frontier)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return report
}

func assertKeepers(t *testing.T, dag *backendtest.DAG, want ...string) {
	t.Helper()
	if diff := cmp.Diff(want, dag.Branches()); diff != "" {
		t.Fatalf("keeper branches mismatch (-want +got):\n%s", diff)
	}
}

// assertAntichain checks no surviving keeper is an ancestor of another.
func assertAntichain(t *testing.T, dag *backendtest.DAG) {
	t.Helper()
	ctx := context.Background()
	branches := dag.Branches()
	for _, a := range branches {
		for _, b := range branches {
			if a == b {
				continue
			}
			ha, _ := dag.Resolve(ctx, "refs/heads/"+a)
			hb, _ := dag.Resolve(ctx, "refs/heads/"+b)
			if dag.IsAncestor(ha, hb) {
				t.Fatalf("keeper %s is an ancestor of %s", a, b)
			}
		}
	}
}

func TestFirstObservationAndFastForward(t *testing.T) {
	t.Parallel()

	dag := backendtest.New("/mirror").Commit("s1").Commit("s2", "s1")
	master := git.Branch("master")

	dag.SetRemote(master, "s1")
	report := step(t, dag, master)
	assertKeepers(t, dag, "keep-s1")
	if diff := cmp.Diff(Report{Created: []string{"keep-s1"}}, report); diff != "" {
		t.Fatalf("first report mismatch (-want +got):\n%s", diff)
	}

	dag.SetRemote(master, "s2")
	report = step(t, dag, master)
	assertKeepers(t, dag, "keep-s2")
	want := Report{Created: []string{"keep-s2"}, Deleted: []string{"keep-s1"}}
	if diff := cmp.Diff(want, report); diff != "" {
		t.Fatalf("fast-forward report mismatch (-want +got):\n%s", diff)
	}
}

// Mirrors a history where br1 moves c1 -> c2, is force-pushed back to c1,
// then disappears while br2 grows a sibling of c2 from c1.
func TestForcePushAndSiblingBranch(t *testing.T) {
	t.Parallel()

	dag := backendtest.New("/mirror").
		Commit("c1").
		Commit("c2", "c1").
		Commit("c3", "c1")
	br1 := git.Branch("br1")
	br2 := git.Branch("br2")

	dag.SetRemote(br1, "c1")
	step(t, dag, br1)
	assertKeepers(t, dag, "keep-c1")

	dag.SetRemote(br1, "c2")
	step(t, dag, br1)
	assertKeepers(t, dag, "keep-c2")

	dag.SetRemote(br1, "c1")
	report := step(t, dag, br1)
	assertKeepers(t, dag, "keep-c2")
	want := Report{Created: []string{"keep-c1"}, Deleted: []string{"keep-c1"}}
	if diff := cmp.Diff(want, report); diff != "" {
		t.Fatalf("force-push report mismatch (-want +got):\n%s", diff)
	}

	dag.DropRemote(br1).SetRemote(br2, "c3")
	step(t, dag, br2)
	assertKeepers(t, dag, "keep-c2", "keep-c3")
	assertAntichain(t, dag)
}

func TestSameCommitThroughTwoRefs(t *testing.T) {
	t.Parallel()

	dag := backendtest.New("/mirror").Commit("c1")
	main := git.Branch("main")
	v1 := git.Tag("v1")
	dag.SetRemote(main, "c1").SetRemote(v1, "c1")

	step(t, dag, main, v1)
	assertKeepers(t, dag, "keep-c1")
	if refs := dag.Refs(); len(refs) != 0 {
		t.Fatalf("lightweight tags must not get tag keepers, got %v", refs)
	}
}

func TestEmptyFrontierDoesNothing(t *testing.T) {
	t.Parallel()

	dag := backendtest.New("/mirror").Commit("c1")
	dag.SetRemote(git.Branch("main"), "c1")
	step(t, dag, git.Branch("main"))
	dag.Mutations()

	report := step(t, dag)
	if !report.Empty() {
		t.Fatalf("expected empty report, got %+v", report)
	}
	if m := dag.Mutations(); len(m) != 0 {
		t.Fatalf("expected no mutations, got %v", m)
	}
}

func TestAnnotatedTagKeeper(t *testing.T) {
	t.Parallel()

	dag := backendtest.New("/mirror").
		Commit("c1").
		Commit("c2", "c1").
		AnnotatedTag("t1", "c1")
	main := git.Branch("main")
	v1 := git.Tag("v1")

	dag.SetRemote(main, "c2")
	step(t, dag, main)
	assertKeepers(t, dag, "keep-c2")

	// The tag points into history already held by keep-c2. It still gets its
	// own tag keeper, which is never pruned.
	dag.SetRemote(v1, "t1")
	report := step(t, dag, v1)
	assertKeepers(t, dag, "keep-c2")
	if diff := cmp.Diff([]string{git.KeeperTagRef("t1")}, dag.Refs()); diff != "" {
		t.Fatalf("tag keepers mismatch (-want +got):\n%s", diff)
	}
	if len(report.Deleted) != 0 {
		t.Fatalf("annotated tag must not prune its own keeper: %+v", report)
	}
}

func TestAnnotatedTagCollapsesAncestors(t *testing.T) {
	t.Parallel()

	dag := backendtest.New("/mirror").
		Commit("c1").
		Commit("c2", "c1").
		AnnotatedTag("t2", "c2")
	dag.SetRemote(git.Branch("old"), "c1")
	step(t, dag, git.Branch("old"))
	assertKeepers(t, dag, "keep-c1")

	dag.SetRemote(git.Tag("v2"), "t2")
	report := step(t, dag, git.Tag("v2"))
	assertKeepers(t, dag)
	want := Report{Created: []string{git.KeeperTagRef("t2")}, Deleted: []string{"keep-c1"}}
	if diff := cmp.Diff(want, report); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestNonKeeperBranchesAreLeftAlone(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dag := backendtest.New("/mirror").Commit("c1").Commit("c2", "c1")
	if err := dag.CreateBranch(ctx, "main", "c1"); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	dag.SetRemote(git.Branch("main"), "c2")
	step(t, dag, git.Branch("main"))
	assertKeepers(t, dag, "keep-c2", "main")
}

func TestFailureAbortsRemainingWork(t *testing.T) {
	t.Parallel()

	dag := backendtest.New("/mirror").Commit("c1").Commit("c2", "c1")
	dag.SetRemote(git.Branch("a"), "c1").SetRemote(git.Branch("b"), "c2")
	boom := errors.New("boom")
	dag.Fail = func(op, arg string) error {
		if op == "included" {
			return boom
		}
		return nil
	}
	ctx := context.Background()
	if err := dag.Fetch(ctx); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	report, err := New(dag).Run(ctx, []git.Ref{git.Branch("a"), git.Branch("b")})
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want boom", err)
	}
	// Keepers from the synthesis pass stay in place.
	if diff := cmp.Diff([]string{"keep-c1", "keep-c2"}, report.Created); diff != "" {
		t.Fatalf("created mismatch (-want +got):\n%s", diff)
	}
	assertKeepers(t, dag, "keep-c1", "keep-c2")
}

func TestResolveFailure(t *testing.T) {
	t.Parallel()

	dag := backendtest.New("/mirror").Commit("c1")
	_, err := New(dag).Run(context.Background(), []git.Ref{git.Branch("missing")})
	if err == nil {
		t.Fatal("expected resolve error")
	}
	if m := dag.Mutations(); len(m) != 0 {
		t.Fatalf("expected no mutations, got %v", m)
	}
}
