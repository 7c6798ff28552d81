package lists

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watch reloads the source whenever its file changes on disk and blocks
// until stop is closed. Because tiers are recomputed on every inventory
// refresh, a reload propagates to the UI without re-scanning any device.
//
// The parent directory is watched rather than the file itself: editors and
// list updaters typically replace the file via rename, which drops a watch
// on the file node.
func (s *Source) Watch(stop <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create list watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	target := filepath.Clean(s.path)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := s.Reload(); err != nil {
				log.Error().Err(err).Msg("debloat list reload failed, keeping previous entries")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("list watcher error")
		case <-stop:
			return nil
		}
	}
}
