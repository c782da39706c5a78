package provider

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Iron-Ham/homeclock/internal/logging"
)

// reloadDebounce collapses the burst of events editors emit for one save.
const reloadDebounce = 50 * time.Millisecond

// Watcher reloads a Registry whenever its file changes.
type Watcher struct {
	registry *Registry
	watcher  *fsnotify.Watcher
	logger   *logging.Logger

	mu       sync.Mutex
	onReload func(error)

	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewWatcher watches the directory containing the registry file. Watching
// the directory survives editors that replace the file on save.
func NewWatcher(r *Registry, logger *logging.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(r.Path())); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return &Watcher{
		registry: r,
		watcher:  fw,
		logger:   logger.WithComponent("registry_watcher"),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// OnReload installs fn to run after each reload attempt with its error.
func (w *Watcher) OnReload(fn func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = fn
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() {
	go w.watchLoop()
}

// Stop stops watching and releases the underlying watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		_ = w.watcher.Close()
	})
	<-w.done
}

func (w *Watcher) watchLoop() {
	defer close(w.done)

	debounce := time.NewTimer(0)
	<-debounce.C
	pending := false
	target := filepath.Clean(w.registry.Path())

	for {
		select {
		case <-w.stopCh:
			debounce.Stop()
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			pending = true
			debounce.Reset(reloadDebounce)

		case <-debounce.C:
			if !pending {
				continue
			}
			pending = false
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("registry watch error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	err := w.registry.Reload()
	if err != nil {
		w.logger.Warn("registry reload failed, keeping previous entries", "error", err)
	} else {
		w.logger.Info("registry reloaded", "providers", len(w.registry.Entries()))
	}

	w.mu.Lock()
	fn := w.onReload
	w.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}
