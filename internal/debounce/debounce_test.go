package debounce

import (
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeTimers replaces afterFunc so tests decide when callbacks run.
func fakeTimers(t *testing.T) *[]func() {
	t.Helper()
	orig := afterFunc
	t.Cleanup(func() { afterFunc = orig })

	var callbacks []func()
	afterFunc = func(_ time.Duration, f func()) *time.Timer {
		callbacks = append(callbacks, f)
		timer := time.NewTimer(time.Hour)
		timer.Stop()
		return timer
	}
	return &callbacks
}

func TestDebouncerIgnoresStaleTimerCallback(t *testing.T) {
	callbacks := fakeTimers(t)

	var calls [][]string
	d := New(time.Second, func(keys []string) {
		calls = append(calls, keys)
	})

	d.Trigger("/srv/b")
	d.Trigger("/srv/a")
	d.Trigger("/srv/b")

	if len(*callbacks) != 3 {
		t.Fatalf("expected 3 scheduled callbacks, got %d", len(*callbacks))
	}
	for _, cb := range *callbacks {
		cb()
	}

	if len(calls) != 1 {
		t.Fatalf("expected only latest callback to run, got %d calls", len(calls))
	}
	if !slices.Equal(calls[0], []string{"/srv/a", "/srv/b"}) {
		t.Fatalf("keys = %v", calls[0])
	}
}

func TestDebouncerStopIgnoresPendingTimerCallback(t *testing.T) {
	callbacks := fakeTimers(t)

	var called atomic.Int32
	d := New(time.Second, func([]string) {
		called.Add(1)
	})

	d.Trigger("/srv/a")
	d.Stop()

	if len(*callbacks) != 1 {
		t.Fatalf("expected a scheduled callback")
	}
	(*callbacks)[0]()

	if got := called.Load(); got != 0 {
		t.Fatalf("expected callback to be ignored after stop, got %d calls", got)
	}
}

func TestDebouncerBatchesAreSeparate(t *testing.T) {
	callbacks := fakeTimers(t)

	var calls [][]string
	d := New(time.Second, func(keys []string) {
		calls = append(calls, keys)
	})

	d.Trigger("/srv/a")
	(*callbacks)[0]()
	d.Trigger("/srv/b")
	(*callbacks)[1]()

	if len(calls) != 2 || !slices.Equal(calls[0], []string{"/srv/a"}) || !slices.Equal(calls[1], []string{"/srv/b"}) {
		t.Fatalf("calls = %v", calls)
	}
}

func TestDebouncerTriggerOnce(t *testing.T) {
	var (
		mu   sync.Mutex
		got  [][]string
		done = make(chan struct{})
	)
	d := New(10*time.Millisecond, func(keys []string) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, keys)
		close(done)
	})
	d.Trigger("/srv/a")
	d.Trigger("/srv/a")
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("debouncer did not fire")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || !slices.Equal(got[0], []string{"/srv/a"}) {
		t.Fatalf("expected one invocation with one key, got %v", got)
	}
}

func TestDebouncerStop(t *testing.T) {
	var count atomic.Int32
	d := New(20*time.Millisecond, func([]string) {
		count.Add(1)
	})
	d.Trigger("/srv/a")
	d.Stop()
	time.Sleep(40 * time.Millisecond)
	if count.Load() != 0 {
		t.Fatalf("expected no invocations after stop, got %d", count.Load())
	}
}

func TestEnsureReusesDebouncer(t *testing.T) {
	var called atomic.Int32
	var d *Debouncer
	first := Ensure(&d, 5*time.Millisecond, func([]string) { called.Add(1) })
	if first == nil || d != first {
		t.Fatal("Ensure should initialize and store the debouncer")
	}
	second := Ensure(&d, 5*time.Millisecond, func([]string) { called.Add(10) })
	if first != second {
		t.Fatal("Ensure should not allocate a new debouncer when already set")
	}
	first.Trigger("/srv/a")
	time.Sleep(50 * time.Millisecond)
	if called.Load() != 1 {
		t.Fatalf("expected the original handler once, got %d", called.Load())
	}
}
