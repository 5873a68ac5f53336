package git

import "slices"

// RefState pairs a tracked ref with the object id it points at.
type RefState struct {
	Ref
	Hash string
}

// RefDiff classifies observed refs against the previously recorded set.
// The three sets are disjoint.
type RefDiff struct {
	New     []Ref
	Changed []Ref
	Removed []Ref
}

func (d RefDiff) Empty() bool {
	return len(d.New) == 0 && len(d.Changed) == 0 && len(d.Removed) == 0
}

// Closing lists the refs whose open interval ends this run: removed then
// changed.
func (d RefDiff) Closing() []Ref {
	return concatRefs(d.Removed, d.Changed)
}

// Frontier lists the refs that point somewhere new this run: changed then new.
func (d RefDiff) Frontier() []Ref {
	return concatRefs(d.Changed, d.New)
}

// DiffRefs compares the previous and the observed states. A ref present in
// both with a different hash is changed. Duplicated refs in either input keep
// their last hash. Output slices are sorted with CompareRefs.
func DiffRefs(previous, observed []RefState) RefDiff {
	prev := indexStates(previous)
	next := indexStates(observed)

	var diff RefDiff
	for ref, hash := range next {
		old, ok := prev[ref]
		switch {
		case !ok:
			diff.New = append(diff.New, ref)
		case old != hash:
			diff.Changed = append(diff.Changed, ref)
		}
	}
	for ref := range prev {
		if _, ok := next[ref]; !ok {
			diff.Removed = append(diff.Removed, ref)
		}
	}
	slices.SortFunc(diff.New, CompareRefs)
	slices.SortFunc(diff.Changed, CompareRefs)
	slices.SortFunc(diff.Removed, CompareRefs)
	return diff
}

func indexStates(states []RefState) map[Ref]string {
	m := make(map[Ref]string, len(states))
	for _, s := range states {
		m[s.Ref] = s.Hash
	}
	return m
}

func concatRefs(a, b []Ref) []Ref {
	out := make([]Ref, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
