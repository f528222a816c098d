package prefabs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Settle is how long a file has to stay quiet before its change is reported.
const Settle = 100 * time.Millisecond

type ChangeKind int

const (
	PrefabChanged ChangeKind = iota
	ScriptChanged
)

func (k ChangeKind) String() string {
	if k == ScriptChanged {
		return "script"
	}
	return "prefab"
}

// Change is one settled edit to a catalog file.
type Change struct {
	Path    string
	Kind    ChangeKind
	Removed bool
}

// CatalogWatcher reports edits to the prefab YAML files of a catalog
// directory and to the placement scripts in its scripts/ subdirectory.
// A burst of writes to one file is reported once, Settle after the last.
type CatalogWatcher struct {
	fsw     *fsnotify.Watcher
	Changes chan Change
	Errors  chan error
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// WatchCatalog starts watching root. The scripts/ subdirectory is watched
// too when it exists.
func WatchCatalog(root string) (*CatalogWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("prefabs: watch: %w", err)
	}
	dirs := []string{root}
	if info, err := os.Stat(filepath.Join(root, "scripts")); err == nil && info.IsDir() {
		dirs = append(dirs, filepath.Join(root, "scripts"))
	}
	for _, dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("prefabs: watch %s: %w", dir, err)
		}
	}

	w := &CatalogWatcher{
		fsw:     fsw,
		Changes: make(chan Change, 16),
		Errors:  make(chan error, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Close stops the watcher and closes Changes and Errors. It is safe to call
// more than once.
func (w *CatalogWatcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.stop)
		err = w.fsw.Close()
		<-w.done
		close(w.Changes)
		close(w.Errors)
	})
	return err
}

type settling struct {
	change Change
	due    time.Time
}

func (w *CatalogWatcher) run() {
	defer close(w.done)
	pending := make(map[string]settling)
	timer := time.NewTimer(Settle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			kind, ok := classify(ev.Name)
			if !ok || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			removed := ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0
			pending[ev.Name] = settling{
				change: Change{Path: ev.Name, Kind: kind, Removed: removed},
				due:    time.Now().Add(Settle),
			}
			timer.Reset(Settle)
		case <-timer.C:
			if !w.flush(pending, timer) {
				return
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
			}
		case <-w.stop:
			return
		}
	}
}

// flush sends every pending change that is due and re-arms timer for the
// rest. It returns false when the watcher is stopping.
func (w *CatalogWatcher) flush(pending map[string]settling, timer *time.Timer) bool {
	now := time.Now()
	var next time.Duration
	for path, s := range pending {
		if wait := s.due.Sub(now); wait > 0 {
			if next == 0 || wait < next {
				next = wait
			}
			continue
		}
		delete(pending, path)
		select {
		case w.Changes <- s.change:
		case <-w.stop:
			return false
		}
	}
	if next > 0 {
		timer.Reset(next)
	}
	return true
}

func classify(path string) (ChangeKind, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return PrefabChanged, true
	case ".tengo":
		return ScriptChanged, true
	}
	return 0, false
}
