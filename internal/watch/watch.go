// Package watch keeps a directory of mirrors updated: periodically, and
// whenever a mirror gains or changes its doublegit.json marker.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/thiagokokada/doublegit-go/internal/config"
	"github.com/thiagokokada/doublegit-go/internal/debounce"
)

const DefaultDebounce = 2 * time.Second

type Options struct {
	Root string
	// Interval between full updates. Zero disables them; a full update still
	// runs once at start.
	Interval time.Duration
	Debounce time.Duration
	// Candidates lists the mirrors under Root.
	Candidates func(root string) ([]string, error)
	// Update is never called concurrently with itself.
	Update func(ctx context.Context, dirs []string) error
}

// Run blocks until ctx is done. Update failures are logged and do not stop
// the loop.
func Run(ctx context.Context, opts Options) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			slog.Error("watcher close", slog.Any("error", err))
		}
	}()

	dirs, err := opts.Candidates(root)
	if err != nil {
		return err
	}
	for _, path := range append([]string{root}, dirs...) {
		slog.Debug("adding path to FS watcher", slog.String("path", path))
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
	}

	batches := make(chan []string, 1)
	d := debounce.New(opts.Debounce, func(keys []string) {
		select {
		case batches <- keys:
		case <-ctx.Done():
		}
	})
	defer d.Stop()

	var tick <-chan time.Time
	if opts.Interval > 0 {
		ticker := time.NewTicker(opts.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	update := func(dirs []string) {
		if len(dirs) == 0 {
			return
		}
		if err := opts.Update(ctx, dirs); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("update failed", slog.Any("error", err))
		}
	}
	updateAll := func() {
		dirs, err := opts.Candidates(root)
		if err != nil {
			slog.Error("list mirrors", slog.String("root", root), slog.Any("error", err))
			return
		}
		update(dirs)
	}

	updateAll()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			slog.Debug("periodic update")
			updateAll()
		case keys := <-batches:
			slog.Debug("marker changes", slog.Any("repos", keys))
			update(keys)
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			repo, isNewDir, ok := affectedRepo(root, ev)
			if !ok {
				continue
			}
			slog.Debug("fsnotify event",
				slog.String("op", ev.Op.String()),
				slog.String("path", ev.Name),
			)
			if isNewDir {
				if err := watcher.Add(repo); err != nil {
					slog.Error("watch new directory", slog.String("path", repo), slog.Any("error", err))
				}
			}
			d.Trigger(repo)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("fsnotify error", slog.Any("error", err))
		}
	}
}

// affectedRepo maps an event to the mirror it concerns. Only marker file
// changes and directories created directly under root count; the mirrors'
// own writes during an update are ignored.
func affectedRepo(root string, ev fsnotify.Event) (repo string, isNewDir bool, ok bool) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
		return "", false, false
	}
	if filepath.Base(ev.Name) == config.FileName {
		return filepath.Dir(ev.Name), false, true
	}
	if !ev.Has(fsnotify.Create) || filepath.Dir(ev.Name) != root || strings.HasPrefix(filepath.Base(ev.Name), ".") {
		return "", false, false
	}
	info, err := os.Stat(ev.Name)
	if err != nil || !info.IsDir() {
		return "", false, false
	}
	return ev.Name, true, true
}
