// Package filesystem loads source files from a local directory tree and
// watches it for changes.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"unicode/utf8"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/repochat/internal/core/domain"
	"github.com/custodia-labs/repochat/internal/core/ports/driven"
	"github.com/custodia-labs/repochat/internal/logger"
)

// Ensure Loader implements the interfaces.
var (
	_ driven.DocumentSource  = (*Loader)(nil)
	_ driven.WatchableSource = (*Loader)(nil)
)

// DefaultMaxFileSize skips files larger than 1 MiB.
const DefaultMaxFileSize = 1 << 20

// Options configures a Loader.
type Options struct {
	// MaxFileSize is the largest file loaded, in bytes. Zero means DefaultMaxFileSize.
	MaxFileSize int64
}

// Loader reads supported text files under a root directory.
type Loader struct {
	maxFileSize int64

	mu       sync.Mutex
	closed   bool
	watchers []*fsnotify.Watcher
}

// New creates a filesystem loader.
func New(opts Options) *Loader {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	return &Loader{maxFileSize: opts.MaxFileSize}
}

// Load walks root in lexical order and returns every accepted file.
// Document sources are slash-separated paths relative to root.
func (l *Loader) Load(ctx context.Context, root string) ([]domain.Document, error) {
	root, err := checkRoot(LocalPath(root))
	if err != nil {
		return nil, err
	}

	var docs []domain.Document
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			logger.Warnw("skipping unreadable path", "path", path, "error", walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && SkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !AcceptFile(d.Name()) {
			return nil
		}

		doc, ok := l.readDocument(root, path)
		if ok {
			docs = append(docs, doc)
		}
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: walk %s: %w", domain.ErrSourceUnavailable, root, err)
	}

	logger.Debugw("loaded documents", "root", root, "count", len(docs))
	return docs, nil
}

// readDocument reads one file. Oversized, unreadable or non-UTF-8 files are skipped.
func (l *Loader) readDocument(root, path string) (domain.Document, bool) {
	info, err := os.Stat(path)
	if err != nil {
		logger.Warnw("skipping file", "path", path, "error", err)
		return domain.Document{}, false
	}
	if info.Size() > l.maxFileSize {
		logger.Debugw("skipping large file", "path", path, "size", info.Size())
		return domain.Document{}, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warnw("skipping file", "path", path, "error", err)
		return domain.Document{}, false
	}
	if !utf8.Valid(data) {
		logger.Debugw("skipping non-UTF-8 file", "path", path)
		return domain.Document{}, false
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	return domain.Document{
		Source:  filepath.ToSlash(rel),
		Content: string(data),
		Metadata: map[string]any{
			"path": path,
			"size": info.Size(),
		},
	}, true
}

// checkRoot resolves root to an absolute directory.
func checkRoot(root string) (string, error) {
	if root == "" {
		return "", fmt.Errorf("%w: root path is required", domain.ErrInvalidInput)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("%w: root path error: %w", domain.ErrSourceUnavailable, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: root path error: %w", domain.ErrSourceUnavailable, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: root path error: %s is not a directory", domain.ErrSourceUnavailable, abs)
	}
	return abs, nil
}

// Watch streams changes to accepted files under root until ctx is cancelled.
// New subdirectories are watched as they appear.
func (l *Loader) Watch(ctx context.Context, root string) (<-chan driven.DocumentChange, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, errors.New("filesystem loader is closed")
	}
	l.mu.Unlock()

	root, err := checkRoot(LocalPath(root))
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: create watcher: %w", domain.ErrSourceUnavailable, err)
	}
	if err := addTree(watcher, root); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("%w: watch %s: %w", domain.ErrSourceUnavailable, root, err)
	}

	l.mu.Lock()
	l.watchers = append(l.watchers, watcher)
	l.mu.Unlock()

	changes := make(chan driven.DocumentChange)
	go func() {
		defer close(changes)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !SkipDir(info.Name()) {
						if err := addTree(watcher, event.Name); err != nil {
							logger.Warnw("cannot watch new directory", "path", event.Name, "error", err)
						}
						continue
					}
				}
				change := l.handleFsEvent(root, event)
				if change == nil {
					continue
				}
				select {
				case changes <- *change:
				case <-ctx.Done():
					return
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warnw("watch error", "root", root, "error", err)
			}
		}
	}()
	return changes, nil
}

// addTree watches dir and every accepted directory below it.
func addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && SkipDir(d.Name()) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// handleFsEvent converts an fsnotify event into a change, or nil when the
// path is filtered out or the operation is not relevant.
func (l *Loader) handleFsEvent(root string, event fsnotify.Event) *driven.DocumentChange {
	rel, err := filepath.Rel(root, event.Name)
	if err != nil || !AcceptPath(rel) {
		return nil
	}
	source := filepath.ToSlash(rel)

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return &driven.DocumentChange{
			Document: domain.Document{Source: source, Metadata: map[string]any{"path": event.Name}},
			Removed:  true,
		}

	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		doc, ok := l.readDocument(root, event.Name)
		if !ok {
			return nil
		}
		return &driven.DocumentChange{Document: doc}

	default:
		return nil
	}
}

// Close stops all active watchers. It is idempotent.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	var errs []error
	for _, w := range l.watchers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	l.watchers = nil
	return errors.Join(errs...)
}
