package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/kelmah/sessionkit/logger"
)

const (
	fileMode = 0o600
	dirMode  = 0o700
)

// File persists the token in a single file and caches it in memory. The
// parent directory is watched so writes by other processes (a login from a
// second terminal, a logout) invalidate the cache.
type File struct {
	path string
	log  *logger.Logger

	mu     sync.Mutex
	cached string
	ok     bool
	fresh  bool

	watcher   *fsnotify.Watcher
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
	onEvent   func(fsnotify.Event)
}

// FileOption configures a File store.
type FileOption func(*File)

// WithFileLogger sets the store logger.
func WithFileLogger(l *logger.Logger) FileOption {
	return func(f *File) { f.log = l }
}

// WithChangeHook is called after the cache is invalidated by a file event.
func WithChangeHook(fn func(fsnotify.Event)) FileOption {
	return func(f *File) { f.onEvent = fn }
}

// NewFile opens a file store at path, creating the parent directory.
func NewFile(path string, opts ...FileOption) (*File, error) {
	path = filepath.Clean(path)
	f := &File{
		path: path,
		log:  logger.Get("tokenstore"),
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}

	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return nil, fmt.Errorf("tokenstore: create dir: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("tokenstore: create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("tokenstore: watch %s: %w", filepath.Dir(path), err)
	}
	f.watcher = w

	f.wg.Add(1)
	go f.watch()
	return f, nil
}

// Path returns the token file path.
func (f *File) Path() string { return f.path }

func (f *File) Get(_ context.Context) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fresh {
		return f.cached, f.ok, nil
	}

	data, err := os.ReadFile(f.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		f.cached, f.ok = "", false
	case err != nil:
		return "", false, fmt.Errorf("tokenstore: read %s: %w", f.path, err)
	default:
		token := strings.TrimSpace(string(data))
		f.cached, f.ok = token, token != ""
	}
	f.fresh = true
	return f.cached, f.ok, nil
}

// Set writes the token through a temp file and rename so readers never see
// a partial token.
func (f *File) Set(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".token-*")
	if err != nil {
		return fmt.Errorf("tokenstore: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(fileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("tokenstore: chmod: %w", err)
	}
	if _, err := tmp.WriteString(token); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("tokenstore: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tokenstore: close temp: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("tokenstore: rename: %w", err)
	}

	f.cached, f.ok, f.fresh = token, true, true
	return nil
}

func (f *File) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("tokenstore: remove %s: %w", f.path, err)
	}
	f.cached, f.ok, f.fresh = "", false, true
	return nil
}

// Close stops the watcher. It is safe to call more than once.
func (f *File) Close() error {
	f.closeOnce.Do(func() {
		close(f.done)
		f.closeErr = f.watcher.Close()
		f.wg.Wait()
	})
	return f.closeErr
}

func (f *File) watch() {
	defer f.wg.Done()
	for {
		select {
		case <-f.done:
			return
		case ev, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != f.path {
				continue
			}
			f.invalidate()
			f.log.Debug("token file changed", logger.Fields(
				logger.FieldOperation, ev.Op.String(),
				logger.FieldPath, f.path,
			))
			if f.onEvent != nil {
				f.onEvent(ev)
			}
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.invalidate()
			f.log.Warn("token file watcher error", logger.ErrorFields("watch", err))
		}
	}
}

func (f *File) invalidate() {
	f.mu.Lock()
	f.fresh = false
	f.mu.Unlock()
}
