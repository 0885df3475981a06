package gazelle

import (
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// SettingsWatcher watches a settings file and re-applies it to a running
// CursorManager when it changes, driving the settings-driven reassignment
// path without a restart.
type SettingsWatcher struct {
	watcher *fsnotify.Watcher
	manager *CursorManager
	path    string
	Errors  chan error
	closeCh chan struct{}
	once    sync.Once
}

// WatchSettings starts watching the settings file's directory. Events for
// other files in the directory are ignored; rapid rewrites are debounced.
func WatchSettings(path string, manager *CursorManager) (*SettingsWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, err
	}

	watcher := &SettingsWatcher{
		watcher: w,
		manager: manager,
		path:    filepath.Clean(path),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
	}
	go watcher.run()
	return watcher, nil
}

// Close stops the watcher. Safe to call more than once.
func (w *SettingsWatcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
	})
	return err
}

func (w *SettingsWatcher) run() {
	var last time.Time
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != w.path || !isSettingsFile(event.Name) {
				continue
			}
			now := time.Now()
			if now.Sub(last) < 100*time.Millisecond {
				continue
			}
			last = now
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
				log.Printf("gazelle: settings watch: %v", err)
			}
		case <-w.closeCh:
			return
		}
	}
}

// reload parses the file and applies it. A file mid-write can fail to
// parse; that is reported, never applied.
func (w *SettingsWatcher) reload() {
	settings, err := LoadSettingsFile(w.path)
	if err != nil {
		select {
		case w.Errors <- err:
		default:
			log.Printf("gazelle: settings reload: %v", err)
		}
		return
	}
	settings.Apply(w.manager)
}

func isSettingsFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
