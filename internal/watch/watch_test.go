package watch

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/thiagokokada/doublegit-go/internal/config"
)

func TestAffectedRepo(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mirror := filepath.Join(root, "mirror")
	if err := os.Mkdir(mirror, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		ev      fsnotify.Event
		want    string
		wantNew bool
		wantOK  bool
	}{
		{name: "marker written", ev: fsnotify.Event{Name: filepath.Join(mirror, config.FileName), Op: fsnotify.Write}, want: mirror, wantOK: true},
		{name: "marker created", ev: fsnotify.Event{Name: filepath.Join(mirror, config.FileName), Op: fsnotify.Create}, want: mirror, wantOK: true},
		{name: "marker chmod", ev: fsnotify.Event{Name: filepath.Join(mirror, config.FileName), Op: fsnotify.Chmod}},
		{name: "new mirror directory", ev: fsnotify.Event{Name: mirror, Op: fsnotify.Create}, want: mirror, wantNew: true, wantOK: true},
		{name: "new file in root", ev: fsnotify.Event{Name: filepath.Join(root, "notes.txt"), Op: fsnotify.Create}},
		{name: "ledger write", ev: fsnotify.Event{Name: filepath.Join(mirror, "gitarchive.sqlite3-journal"), Op: fsnotify.Create}},
		{name: "hidden directory", ev: fsnotify.Event{Name: filepath.Join(root, ".cache"), Op: fsnotify.Create}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, isNew, ok := affectedRepo(root, tt.ev)
			if got != tt.want || isNew != tt.wantNew || ok != tt.wantOK {
				t.Fatalf("affectedRepo() = %q, %v, %v; want %q, %v, %v", got, isNew, ok, tt.want, tt.wantNew, tt.wantOK)
			}
		})
	}
}

func TestRunUpdatesOnMarkerChange(t *testing.T) {
	root := t.TempDir()
	root, err := filepath.EvalSymlinks(root)
	if err != nil {
		t.Fatal(err)
	}
	existing := filepath.Join(root, "existing")
	if err := os.Mkdir(existing, 0o755); err != nil {
		t.Fatal(err)
	}

	var (
		mu    sync.Mutex
		calls [][]string
	)
	updated := make(chan struct{}, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Options{
			Root:     root,
			Debounce: 20 * time.Millisecond,
			Candidates: func(string) ([]string, error) {
				return []string{existing}, nil
			},
			Update: func(_ context.Context, dirs []string) error {
				mu.Lock()
				calls = append(calls, dirs)
				mu.Unlock()
				updated <- struct{}{}
				return nil
			},
		})
	}()

	wait := func() {
		t.Helper()
		select {
		case <-updated:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for an update")
		}
	}

	wait() // initial full run
	if err := os.WriteFile(filepath.Join(existing, config.FileName), []byte(`{"type": "git"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	wait()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(calls) < 2 || !slices.Equal(calls[0], []string{existing}) || !slices.Equal(calls[1], []string{existing}) {
		t.Fatalf("calls = %v", calls)
	}
}
