package config

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces editor write bursts into one reload.
const watchDebounce = 500 * time.Millisecond

// Watcher reloads a configuration file when it changes on disk and hands
// each result to the onReload callback. Callers keep using Snapshot for the
// last good config; a failed reload never clobbers it.
type Watcher struct {
	path     string
	onReload func(Config, error)

	fw      *fsnotify.Watcher
	mu      sync.RWMutex
	current Config
	reloads atomic.Uint32
}

// NewWatcher loads path once, then watches it for writes. The callback runs
// on the watcher goroutine after each reload attempt.
func NewWatcher(path string, onReload func(Config, error)) (*Watcher, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(path); err != nil {
		_ = fw.Close()
		return nil, err
	}
	w := &Watcher{path: path, onReload: onReload, fw: fw, current: cfg}
	go w.watch()
	return w, nil
}

// Close stops watching. Pending debounced reloads may still fire.
func (w *Watcher) Close() error {
	return w.fw.Close()
}

// Snapshot returns the last successfully loaded config.
func (w *Watcher) Snapshot() Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// ReloadCount returns how many reload attempts have run.
func (w *Watcher) ReloadCount() uint32 {
	return w.reloads.Load()
}

func (w *Watcher) watch() {
	var timer *time.Timer
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			// Editors often truncate+write or rename into place.
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, w.reload)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.Printf("config event=watch_error path=%q err=%v", w.path, err)
		}
	}
}

func (w *Watcher) reload() {
	count := w.reloads.Add(1)
	cfg, err := Load(w.path)
	if err != nil {
		log.Printf("config event=reload_error path=%q count=%d err=%v", w.path, count, err)
		if w.onReload != nil {
			w.onReload(Config{}, err)
		}
		return
	}
	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()
	log.Printf("config event=reloaded path=%q count=%d", w.path, count)
	if w.onReload != nil {
		w.onReload(cfg, nil)
	}
}
