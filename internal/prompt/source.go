package prompt

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Source supplies the system prompt. With a template file configured, the
// file is watched and reloaded on change so the prompt can be tuned while a
// session is running; otherwise the inline text from config is used as-is.
//
// Session-scoped settings stay immutable for the session's lifetime; the
// prompt text is deliberately not one of them.
type Source struct {
	mu      sync.RWMutex
	system  string
	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewSource creates a static source for inline system prompt text.
func NewSource(system string) *Source {
	return &Source{system: system}
}

// NewFileSource creates a source backed by a template file, falling back to
// fallback text while the file is missing or unreadable. The file's
// directory is watched, which also catches editors that replace the file.
func NewFileSource(path, fallback string) (*Source, error) {
	s := &Source{system: fallback, path: path, done: make(chan struct{})}
	s.load()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create prompt watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch prompt directory: %w", err)
	}
	s.watcher = watcher

	go s.watch()
	return s, nil
}

// System returns the current system prompt.
func (s *Source) System() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.system
}

func (s *Source) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		slog.Warn("prompt template unreadable, keeping current prompt",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
		return
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return
	}

	s.mu.Lock()
	s.system = text
	s.mu.Unlock()
	slog.Info("prompt template loaded", slog.String("path", s.path))
}

func (s *Source) watch() {
	filename := filepath.Base(s.path)
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				s.load()
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("prompt watcher error", slog.String("error", err.Error()))
		}
	}
}

// Close stops the file watcher, if any.
func (s *Source) Close() error {
	if s.watcher == nil {
		return nil
	}
	close(s.done)
	return s.watcher.Close()
}
