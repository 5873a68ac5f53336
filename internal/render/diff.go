package render

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/thiagokokada/doublegit-go/internal/git"
)

// StateLines renders one line per ref, "<name> <kind> <hash>", in ref order
// so that two states diff line by line.
func StateLines(states []git.RefState) []string {
	lines := make([]string, 0, len(states))
	for _, s := range states {
		lines = append(lines, fmt.Sprintf("%s %s %s\n", s.Ref.FullName(), s.Ref.Kind, s.Hash))
	}
	return lines
}

// UnifiedStateDiff returns the unified diff between two ref states, or ""
// when they are identical.
func UnifiedStateDiff(from, to []git.RefState, fromLabel, toLabel string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        StateLines(from),
		B:        StateLines(to),
		FromFile: fromLabel,
		ToFile:   toLabel,
		Context:  3,
	})
}
