package tdp

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	log "github.com/golang/glog"
)

// WatchPolicy reloads the policy file at path into store whenever it changes,
// until ctx is done. A file that fails to parse or validate is logged and the
// previous policy stays live.
func WatchPolicy(ctx context.Context, path string, store *PolicyStore) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	// editors replace files on save, so watch the directory
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	target := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			p, err := LoadPolicy(path)
			if err != nil {
				log.Errorf("Error %s when reloading policy %s, keeping previous policy", err, path)
				continue
			}
			store.Set(p)
			log.Infof("reloaded sensitivity policy from %s (%d queries)", path, len(p.Rules))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Errorf("Error %s from policy watcher", err)
		}
	}
}
