package engine

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces editor save bursts into one rebuild.
const reloadDebounce = 250 * time.Millisecond

// Reloader watches a rules directory and swaps in a freshly built engine
// when its documents change. A rebuild failure keeps the previous engine
// serving, so callers never observe a half-loaded rule set.
type Reloader struct {
	dir     string
	logger  *slog.Logger
	watcher *fsnotify.Watcher
	done    chan struct{}
	onSwap  func(*Engine)

	mu     sync.RWMutex
	engine *Engine
}

// NewReloader loads the rules directory once and starts watching it.
// The initial load must succeed; later failures only log. onSwap, when
// non-nil, runs after each successful swap with the new engine.
func NewReloader(dir string, logger *slog.Logger, onSwap func(*Engine)) (*Reloader, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	eng, err := Load(dir, logger)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	r := &Reloader{
		dir:     dir,
		logger:  logger,
		watcher: watcher,
		done:    make(chan struct{}),
		onSwap:  onSwap,
		engine:  eng,
	}
	go r.loop()
	return r, nil
}

// Engine returns the current engine. The returned value stays valid after a
// reload; callers holding it simply keep the older rule set.
func (r *Reloader) Engine() *Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.engine
}

// Close stops watching. The last engine remains available.
func (r *Reloader) Close() error {
	close(r.done)
	return r.watcher.Close()
}

func (r *Reloader) loop() {
	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case <-r.done:
			return
		case ev, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if !isRuleDocument(ev.Name) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			pending = timer.C
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("rules watcher error", "error", err)
		case <-pending:
			pending = nil
			r.reload()
		}
	}
}

func (r *Reloader) reload() {
	eng, err := Load(r.dir, r.logger)
	if err != nil {
		r.logger.Error("rules reload failed, keeping previous rule set",
			"dir", r.dir, "error", err)
		return
	}

	r.mu.Lock()
	r.engine = eng
	r.mu.Unlock()
	r.logger.Info("rules reloaded", "dir", r.dir)
	if r.onSwap != nil {
		r.onSwap(eng)
	}
}

func isRuleDocument(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
