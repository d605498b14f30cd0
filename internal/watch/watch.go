// Package watch regenerates the build description whenever the source tree
// changes.
package watch

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/samkaj/maker/internal/msg"
)

const DefaultDebounce = 200 * time.Millisecond

// Watcher calls Regenerate once per settled burst of changes in the
// directories listed by Dirs.
type Watcher struct {
	// Dirs lists the directories to watch. It is called again after every
	// regeneration so new sub-directories are picked up.
	Dirs       func() ([]string, error)
	Regenerate func() error
	// Ignore drops events for paths such as the generated file itself.
	Ignore   func(path string) bool
	Debounce time.Duration
}

// Run watches until ctx is done. A failed regeneration is reported and
// watching goes on.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	watched := make(map[string]bool)
	if err := w.sync(fw, watched); err != nil {
		return err
	}

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			msg.Debug("watch: %s %s", event.Op, event.Name)
			pending = true
			timer.Reset(debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			msg.Warn("watch: %v", err)

		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			if err := w.Regenerate(); err != nil {
				msg.Error("%v", err)
			}
			if err := w.sync(fw, watched); err != nil {
				msg.Error("watch: %v", err)
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return false // chmod
	}
	return w.Ignore == nil || !w.Ignore(event.Name)
}

// sync makes the watched set equal to Dirs().
func (w *Watcher) sync(fw *fsnotify.Watcher, watched map[string]bool) error {
	dirs, err := w.Dirs()
	if err != nil {
		return err
	}

	current := make(map[string]bool, len(dirs))
	for _, dir := range dirs {
		current[dir] = true
		if watched[dir] {
			continue
		}
		if err := fw.Add(dir); err != nil {
			return err
		}
		watched[dir] = true
	}
	for dir := range watched {
		if !current[dir] {
			// the directory may already be gone, which removes the watch
			_ = fw.Remove(dir)
			delete(watched, dir)
		}
	}
	return nil
}
