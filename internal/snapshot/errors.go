package snapshot

import (
	"errors"
	"fmt"
)

// ErrNotRepository is returned for tracked directories that are not bare git
// repositories.
var ErrNotRepository = errors.New("not a bare git repository")

// Kind classifies why a run failed.
type Kind string

const (
	// KindBackend covers fetch, ref queries and keeper mutations.
	KindBackend Kind = "backend"
	// KindLedger covers opening the ledger and every statement against it.
	KindLedger Kind = "ledger"
	// KindConfig covers the marker file, the platform settings and the
	// repository layout.
	KindConfig Kind = "config"
	// KindInvariant reports a ledger whose state contradicts the previous
	// run, such as a ref expected to be open that is not.
	KindInvariant Kind = "invariant"
)

type RunError struct {
	Repo string
	Kind Kind
	Op   string
	Err  error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s: %s error: %s: %v", e.Repo, e.Kind, e.Op, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first RunError in err's chain.
func KindOf(err error) (Kind, bool) {
	var runErr *RunError
	if errors.As(err, &runErr) {
		return runErr.Kind, true
	}
	return "", false
}
