package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/kelmah/sessionkit/logger"
)

// Watcher reloads an AppConfig file whenever it is written.
type Watcher struct {
	path     string
	opts     []LoaderOption
	onChange func(*AppConfig, error)
	log      *logger.Logger

	watcher *fsnotify.Watcher
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// Watch starts watching the config file at path. onChange receives the
// reloaded configuration with defaults applied, or the load or validation
// error. It runs on the watcher goroutine.
func Watch(path string, onChange func(*AppConfig, error), opts ...LoaderOption) (*Watcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("config: watch callback is required")
	}
	path = filepath.Clean(path)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create watcher: %w", err)
	}
	// Editors replace files by rename, so the directory is watched.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("config: watch %s: %w", filepath.Dir(path), err)
	}

	w := &Watcher{
		path:     path,
		opts:     append(opts, WithConfigFile(path)),
		onChange: onChange,
		log:      logger.Get("config"),
		watcher:  fw,
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

// Close stops the watcher and waits for the callback goroutine to exit.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			w.log.Info("config file changed, reloading", logger.Fields("file", w.path))
			w.onChange(w.reload())
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watcher error", logger.ErrorFields("watch", err))
		}
	}
}

func (w *Watcher) reload() (*AppConfig, error) {
	var cfg AppConfig
	if err := LoadConfig(DefaultServiceName, &cfg, w.opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
