package config

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stagehand-audio/ampctld/internal/models"
)

const (
	configFileName = "house.json"
	debounceDelay  = 1 * time.Second
)

// JSONStore is an atomic JSON file store. By default writes are debounced
// (coalesced after 1s of inactivity) so rapid zone/group updates don't each
// trigger a disk write; pass delaySaves=false for synchronous writes, used
// by tests and tools that need Save to be durable before it returns.
type JSONStore struct {
	mu           sync.Mutex
	path         string
	delaySaves   bool
	timer        *time.Timer
	pending      *models.State
	lastSelfWrite time.Time
	watcher      *fsnotify.Watcher
}

// NewJSONStore creates a new debounced JSON store in the given config directory.
func NewJSONStore(configDir string) *JSONStore {
	return &JSONStore{
		path:       filepath.Join(configDir, configFileName),
		delaySaves: true,
	}
}

// NewJSONStoreWithOptions creates a JSON store with explicit debounce control.
func NewJSONStoreWithOptions(configDir string, delaySaves bool) *JSONStore {
	return &JSONStore{
		path:       filepath.Join(configDir, configFileName),
		delaySaves: delaySaves,
	}
}

// Path returns the file path used by this store.
func (s *JSONStore) Path() string { return s.path }

// Load reads the state from disk. Returns DefaultState on ENOENT or parse errors.
func (s *JSONStore) Load() (*models.State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			def := models.DefaultState()
			return &def, nil
		}
		return nil, err
	}

	var state models.State
	if err := json.Unmarshal(data, &state); err != nil {
		slog.Warn("config: corrupt JSON config, using defaults", "path", s.path, "err", err)
		def := models.DefaultState()
		return &def, nil
	}

	migrateState(&state)
	return &state, nil
}

// Save persists the state. If delaySaves is set (the default), the write is
// debounced: it happens after debounceDelay of no further Save calls. If
// unset, Save writes synchronously and its error return is meaningful.
// A failed write is retried once before the error is returned or logged.
func (s *JSONStore) Save(state *models.State) error {
	s.mu.Lock()

	// Take a copy so we don't hold a reference to the caller's state
	cp := state.DeepCopy()
	s.pending = &cp

	if !s.delaySaves {
		st := s.pending
		s.mu.Unlock()
		err := s.writeAtomic(st)
		if err != nil {
			err = s.writeAtomic(st)
		}
		return err
	}

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(debounceDelay, func() {
		s.mu.Lock()
		st := s.pending
		s.mu.Unlock()
		if st != nil {
			err := s.writeAtomic(st)
			if err != nil {
				err = s.writeAtomic(st)
			}
			if err != nil {
				slog.Error("config: failed to write state", "path", s.path, "err", err)
			}
		}
	})
	s.mu.Unlock()
	return nil
}

// Flush forces an immediate write of any pending state.
func (s *JSONStore) Flush() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	st := s.pending
	s.mu.Unlock()
	if st == nil {
		return nil
	}
	return s.writeAtomic(st)
}

func (s *JSONStore) writeAtomic(state *models.State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	// Write to temp file, then rename (atomic on Linux)
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	s.mu.Lock()
	s.lastSelfWrite = time.Now()
	s.mu.Unlock()
	return os.Rename(tmpPath, s.path)
}

// selfWriteWindow is how long after our own writeAtomic call an fsnotify
// event for the config file is assumed to be an echo of that write rather
// than an external edit.
const selfWriteWindow = 500 * time.Millisecond

// Watch starts watching the config directory for external edits to the
// config file (e.g. factory tooling writing house.json directly) and calls
// onChange whenever one is detected. Writes made by this JSONStore's own
// Save/Flush are not reported. Watch is a no-op if a watcher is already
// running; callers should call it at most once per store.
func (s *JSONStore) Watch(onChange func()) error {
	s.mu.Lock()
	if s.watcher != nil {
		s.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.watcher = watcher
	s.mu.Unlock()

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != s.path || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
					continue
				}
				s.mu.Lock()
				recent := time.Since(s.lastSelfWrite) < selfWriteWindow
				s.mu.Unlock()
				if recent {
					continue
				}
				slog.Info("config: external edit detected, reloading", "path", s.path)
				onChange()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("config: watcher error", "err", err)
			}
		}
	}()
	return nil
}

// StopWatching closes the fsnotify watcher started by Watch, if any.
func (s *JSONStore) StopWatching() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
}
