package localization

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// ResourceLoader is the orchestrator's only coupling to storage: given
// a locale and a resource id, produce FTL source.
type ResourceLoader interface {
	Load(localeCode, resourceID string) (string, error)
}

// FSLoader loads resources from a filesystem laid out as
// <root>/<locale>/<resource-id>.
type FSLoader struct {
	fsys fs.FS
}

// NewFSLoader wraps any fs.FS.
func NewFSLoader(fsys fs.FS) *FSLoader {
	return &FSLoader{fsys: fsys}
}

// NewDirLoader opens a directory root.
func NewDirLoader(root string) *FSLoader {
	return &FSLoader{fsys: os.DirFS(root)}
}

// Load reads one resource. Resource ids must stay inside the root:
// path traversal in an id is rejected, not resolved.
func (l *FSLoader) Load(localeCode, resourceID string) (string, error) {
	rel := path.Join(localeCode, resourceID)
	if !fs.ValidPath(rel) || strings.Contains(resourceID, "..") {
		return "", fmt.Errorf("localization: invalid resource path %q", resourceID)
	}
	data, err := fs.ReadFile(l.fsys, rel)
	if err != nil {
		return "", fmt.Errorf("localization: read %s: %w", rel, err)
	}
	return string(data), nil
}

// Watcher invalidates bundles when their backing files change, so
// long-running processes pick up translation edits without a restart.
type Watcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Watch starts watching the per-locale directories under root and
// invalidates the owning locale's bundle on any write, create, or
// remove. Stop with Close.
func Watch(l *Localization, root string, log logrus.FieldLogger) (*Watcher, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("localization: %w", err)
	}
	for _, localeCode := range l.Locales() {
		dir := filepath.Join(root, localeCode)
		if err := fw.Add(dir); err != nil {
			log.WithField("dir", dir).WithError(err).Warn("cannot watch locale directory")
		}
	}

	w := &Watcher{watcher: fw, done: make(chan struct{})}
	go func() {
		for {
			select {
			case event, ok := <-fw.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				localeCode := filepath.Base(filepath.Dir(event.Name))
				log.WithFields(logrus.Fields{
					"locale": localeCode,
					"file":   event.Name,
				}).Info("resource changed, invalidating bundle")
				l.Invalidate(localeCode)
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("watcher error")
			case <-w.done:
				return
			}
		}
	}()
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
