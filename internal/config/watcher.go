package config

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Watcher polls the config file and reports content changes through a
// callback. Polling instead of inotify keeps the dependency surface flat and
// behaves identically on bind-mounted files, where rename-based editors
// defeat watch descriptors anyway.
//
// Invalid or unparseable revisions are logged and skipped; Current keeps
// returning the last good config.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(old, new *Config)
	log      *slog.Logger

	mu       sync.Mutex
	current  *Config
	done     chan struct{}
	stopOnce sync.Once

	// Last seen file state, used to skip reloading untouched files.
	prevModTime time.Time
	prevSum     [sha256.Size]byte
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is 5 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher loads path immediately and starts a background poller. The
// initial load must succeed; after that, bad revisions are tolerated.
func NewWatcher(path string, onChange func(old, new *Config), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: 5 * time.Second,
		onChange: onChange,
		log:      slog.Default().With("component", "config-watcher"),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, sum, mtime, err := w.load()
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current = cfg
	w.prevSum = sum
	w.prevModTime = mtime

	go w.poll()
	return w, nil
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop ends polling. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
}

func (w *Watcher) poll() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

// check reloads the file when its mtime moved and its content hash actually
// changed, then fires onChange with the old and new configs.
func (w *Watcher) check() {
	info, err := os.Stat(w.path)
	if err != nil {
		w.log.Warn("cannot stat config file", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	mtime := w.prevModTime
	w.mu.Unlock()

	if info.ModTime().Equal(mtime) {
		return
	}

	cfg, sum, newMtime, err := w.load()
	if err != nil {
		w.log.Warn("keeping previous config", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	if sum == w.prevSum {
		// Touched but unchanged (editors often rewrite identical bytes).
		w.prevModTime = newMtime
		w.mu.Unlock()
		return
	}
	old := w.current
	w.current = cfg
	w.prevSum = sum
	w.prevModTime = newMtime
	w.mu.Unlock()

	w.log.Info("configuration reloaded", "path", w.path)

	// Outside the lock so the callback may call Current.
	if w.onChange != nil {
		w.onChange(old, cfg)
	}
}

// load reads, hashes, and validates the config file in one pass.
func (w *Watcher) load() (*Config, [sha256.Size]byte, time.Time, error) {
	var zero [sha256.Size]byte

	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, zero, time.Time{}, err
	}

	info, err := os.Stat(w.path)
	if err != nil {
		return nil, zero, time.Time{}, err
	}

	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, zero, time.Time{}, err
	}

	return cfg, sha256.Sum256(data), info.ModTime(), nil
}
