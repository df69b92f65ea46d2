package formatter

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

const (
	watchErrInitBackoff = 100 * time.Millisecond
	watchErrMaxBackoff  = 5 * time.Second
)

// TemplateSource holds the current template for a long-running process
// and reloads it when the file changes on disk. An empty path serves the
// bundled template and never reloads.
type TemplateSource struct {
	path   string
	logger *log.Logger

	mu      sync.RWMutex
	tmpl    *Template
	err     error
	reloads int

	// notify, when set, receives every reload result.
	notify chan error
}

// NewTemplateSource loads path once. A load failure is kept and reported
// by Current until a later reload succeeds.
func NewTemplateSource(path string, logger *log.Logger) *TemplateSource {
	if logger == nil {
		logger = log.Default()
	}
	s := &TemplateSource{path: path, logger: logger.With("component", "template")}
	if path == "" {
		s.tmpl = DefaultTemplate()
		return s
	}
	s.reload()
	return s
}

// Path returns the watched file, empty for the bundled template.
func (s *TemplateSource) Path() string {
	return s.path
}

// Current returns the latest successfully parsed template, or the load
// error when there has never been one or the last reload failed.
func (s *TemplateSource) Current() (*Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.tmpl, nil
}

// Reloads returns how many times the file has been loaded.
func (s *TemplateSource) Reloads() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reloads
}

func (s *TemplateSource) reload() {
	tmpl, err := LoadTemplate(s.path)
	if err == nil {
		err = tmpl.Validate()
	}

	s.mu.Lock()
	s.reloads++
	if err != nil {
		s.err = err
	} else {
		s.tmpl, s.err = tmpl, nil
	}
	notify := s.notify
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("template unusable", "path", s.path, "error", err)
	} else {
		s.logger.Debug("template loaded", "path", s.path, "columns", len(tmpl.Header))
	}

	if notify != nil {
		select {
		case notify <- err:
		default:
		}
	}
}

// Watch reloads the template whenever its file is written, created or
// renamed into place, until ctx is cancelled. The parent directory is
// watched so editors that save via rename are picked up.
func (s *TemplateSource) Watch(ctx context.Context) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating template watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	name := filepath.Clean(s.path)
	backoff := watchErrInitBackoff

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != name {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
				s.reload()
			}
			backoff = watchErrInitBackoff

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("template watcher error", "error", werr, "backoff", backoff)

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, watchErrMaxBackoff)
		}
	}
}
