// Package watch reruns a callback when files change on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

const tick = 50 * time.Millisecond

// Watcher calls OnChange once changes to any of its files have settled for
// the debounce duration. Directories are watched rather than the files
// themselves so editors that replace files on save are still seen.
type Watcher struct {
	files    map[string]bool
	debounce time.Duration
	log      *zap.Logger
	watcher  *fsnotify.Watcher
}

func New(debounce time.Duration, logger *zap.Logger, files ...string) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		files:    make(map[string]bool, len(files)),
		debounce: debounce,
		log:      logger,
		watcher:  fw,
	}
	dirs := map[string]bool{}
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			fw.Close()
			return nil, err
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("failed to watch '%s': %w", dir, err)
		}
	}
	return w, nil
}

// Run blocks until ctx is done or onChange fails. Every file changed since
// the last call is passed together, sorted, once no event arrived for the
// debounce duration. Events arriving while onChange runs are coalesced into
// the next call.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, changed []string) error) error {
	defer w.watcher.Close()

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	pending := map[string]bool{}
	var lastEvent time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !w.files[abs] {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			w.log.Debug("file changed", zap.String("path", abs), zap.String("op", event.Op.String()))
			pending[abs] = true
			lastEvent = time.Now()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))

		case now := <-ticker.C:
			if len(pending) == 0 || now.Sub(lastEvent) < w.debounce {
				continue
			}
			settled := make([]string, 0, len(pending))
			for path := range pending {
				settled = append(settled, path)
			}
			slices.Sort(settled)
			clear(pending)
			if err := onChange(ctx, settled); err != nil {
				return err
			}
		}
	}
}
