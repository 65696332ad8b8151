package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/fakeyudi/intervbot/internal/question"
)

// FileLoader reads a question set from disk and caches it until the file
// changes.
type FileLoader struct {
	path string
	log  zerolog.Logger

	mu      sync.Mutex
	cached  []question.Question
	modTime time.Time
	size    int64
	valid   bool
}

// NewFileLoader returns a loader for path.
func NewFileLoader(path string, log zerolog.Logger) *FileLoader {
	return &FileLoader{path: path, log: log.With().Str("component", "dataset").Logger()}
}

// Path returns the file being loaded.
func (l *FileLoader) Path() string { return l.path }

// Load returns the question set, re-reading the file only when its size or
// modification time changed or the cache was invalidated.
func (l *FileLoader) Load() ([]question.Question, error) {
	info, err := os.Stat(l.path)
	if err != nil {
		return nil, fmt.Errorf("reading question set: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.valid && info.ModTime().Equal(l.modTime) && info.Size() == l.size {
		return l.cached, nil
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("reading question set: %w", err)
	}
	qs, err := Decode(data, FormatFor(l.path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.path, err)
	}
	l.cached, l.modTime, l.size, l.valid = qs, info.ModTime(), info.Size(), true
	l.log.Debug().Str("path", l.path).Int("questions", len(qs)).Msg("question set loaded")
	return qs, nil
}

// Invalidate drops the cached set so the next Load reads the file.
func (l *FileLoader) Invalidate() {
	l.mu.Lock()
	l.valid = false
	l.cached = nil
	l.mu.Unlock()
}

// Watch invalidates the cache whenever the file is written, replaced or
// removed, until ctx is cancelled. The parent directory is watched so that
// editors that save by rename are noticed too. ready, if non-nil, is closed
// once the watch is in place.
func (l *FileLoader) Watch(ctx context.Context, ready chan<- struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	abs, err := filepath.Abs(l.path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	if ready != nil {
		close(ready)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				l.Invalidate()
				l.log.Debug().Str("event", event.Op.String()).Msg("question set changed")
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.log.Warn().Err(err).Msg("question set watcher error")
		}
	}
}
