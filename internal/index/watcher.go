package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/storage"
)

// Event kinds passed to EventCallback.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

const (
	// settleDelay coalesces the Create/Write bursts of a single save.
	settleDelay    = 50 * time.Millisecond
	reconcileDelay = 200 * time.Millisecond
)

// EventCallback is called after a watcher-driven index change.
// kind is one of KindCreated, KindUpdated, KindDeleted.
type EventCallback func(kind string, path string)

// debounce is a resettable one-shot timer whose channel is nil while idle.
type debounce struct {
	d     time.Duration
	timer *time.Timer
	C     <-chan time.Time
}

func (t *debounce) schedule() {
	if t.timer == nil {
		t.timer = time.NewTimer(t.d)
		t.C = t.timer.C
		return
	}
	t.timer.Reset(t.d)
}

func (t *debounce) stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
}

type watcher struct {
	fs     *fsnotify.Watcher
	db     *DB
	store  storage.Provider
	root   string
	logger *slog.Logger
	cb     EventCallback

	// known maps each document path to the checksum last reported, so a
	// repeated event for unchanged content is silent and the event kind
	// does not depend on the fsnotify op an atomic rename produces.
	known map[string]string
	dirty map[string]struct{}
}

// Watch follows document files under root until ctx is cancelled, calling
// cb (if non-nil) after each index mutation. Directories created at runtime
// are watched too; renames trigger a debounced reconcile against disk.
func Watch(ctx context.Context, db *DB, store storage.Provider, root string, logger *slog.Logger, cb EventCallback) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := addDirsRecursive(fw, root); err != nil {
		return err
	}
	known, err := db.AllChecksums()
	if err != nil {
		return err
	}

	w := &watcher{
		fs:     fw,
		db:     db,
		store:  store,
		root:   root,
		logger: logger,
		cb:     cb,
		known:  known,
		dirty:  make(map[string]struct{}),
	}
	settle := &debounce{d: settleDelay}
	reconcile := &debounce{d: reconcileDelay}
	defer settle.stop()
	defer reconcile.stop()

	logger.Info("watcher: started", slog.String("root", root))

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case <-settle.C:
			w.flush()

		case <-reconcile.C:
			w.reconcile()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 && w.addDir(ev.Name) {
				settle.schedule()
				continue
			}
			if !storage.IsDocument(ev.Name) {
				continue
			}
			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				w.dirty[rel] = struct{}{}
				settle.schedule()
			case ev.Op&fsnotify.Remove != 0:
				w.remove(rel)
			case ev.Op&fsnotify.Rename != 0:
				// Rename fires on the old path only; the new path arrives
				// as a Create if it stays inside a watched dir.
				w.remove(rel)
				reconcile.schedule()
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (w *watcher) emit(kind, path string) {
	w.logger.Debug("watcher: "+kind, slog.String("path", path))
	if w.cb != nil {
		w.cb(kind, path)
	}
}

// addDir starts watching a newly created directory and queues the documents
// already inside it. It reports false when path is not a directory.
func (w *watcher) addDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	if err := addDirsRecursive(w.fs, path); err != nil {
		w.logger.Warn("watcher: add new dir failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !storage.IsDocument(p) {
			return nil
		}
		if rel, relErr := filepath.Rel(w.root, p); relErr == nil {
			w.dirty[rel] = struct{}{}
		}
		return nil
	})
	return true
}

// flush indexes every path written since the last settle.
func (w *watcher) flush() {
	for rel := range w.dirty {
		delete(w.dirty, rel)
		data, err := w.store.Read(rel)
		if err != nil {
			// Gone again before it settled; Remove or Rename handles it.
			continue
		}
		w.index(rel, data)
	}
}

func (w *watcher) index(rel string, data []byte) {
	sum := checksum.Sum(data)
	prev, seen := w.known[rel]
	if seen && prev == sum {
		return
	}
	if err := IndexFile(w.db, rel, data, time.Time{}); err != nil {
		w.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	w.known[rel] = sum
	if seen {
		w.emit(KindUpdated, rel)
	} else {
		w.emit(KindCreated, rel)
	}
}

func (w *watcher) remove(rel string) {
	delete(w.dirty, rel)
	if err := w.db.DeleteDocument(rel); err != nil {
		w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if _, ok := w.known[rel]; ok {
		delete(w.known, rel)
		w.emit(KindDeleted, rel)
	}
}

// reconcile compares the library on disk with what the watcher knows:
// vanished paths are dropped and new or changed files are indexed.
func (w *watcher) reconcile() {
	metas, err := w.store.List("")
	if err != nil {
		w.logger.Warn("watcher: reconcile list failed", slog.String("error", err.Error()))
		return
	}
	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}
		if w.known[m.Path] == m.Checksum {
			continue
		}
		if data, readErr := w.store.Read(m.Path); readErr == nil {
			w.index(m.Path, data)
		}
	}
	for p := range w.known {
		if _, ok := disk[p]; !ok {
			w.remove(p)
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
