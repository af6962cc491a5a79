// Package prompts resolves instruction text for the pipeline specialists
// from a prompts directory. Files are cached in memory and the cache is
// invalidated by a filesystem watcher, so prompt edits take effect without
// restarting a long-running server.
package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/Antoine93/anki-doc-master/internal/core"
	"github.com/Antoine93/anki-doc-master/internal/logging"
)

// promptExtensions is the lookup order for prompt files.
var promptExtensions = []string{".md", ".txt"}

// Repository reads prompts from {root}/{specialist}/. The system prompt is
// system.md; module prompts live under modules/{module}.md with a flat
// {specialist}/{module}.md fallback. Specialist ids may carry a subpath,
// e.g. "generator/basic".
type Repository struct {
	root   string
	logger *logging.Logger

	mu      sync.RWMutex
	cache   map[string]string
	watcher *fsnotify.Watcher
}

var _ core.PromptRepository = (*Repository)(nil)

// New creates a repository over the prompts directory.
func New(root string, logger *logging.Logger) (*Repository, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, core.ErrPromptMissing(root, "").WithCause(err)
	}
	r := &Repository{
		root:   abs,
		logger: logger,
		cache:  make(map[string]string),
	}
	r.startWatcher()
	return r, nil
}

// SystemPrompt returns the specialist's system prompt.
func (r *Repository) SystemPrompt(specialistID string) (string, error) {
	return r.resolve(specialistID, "system", []string{
		filepath.Join(specialistID, "system"),
	})
}

// ModulePrompt returns the specialist's per-module prompt.
func (r *Repository) ModulePrompt(specialistID, moduleID string) (string, error) {
	return r.resolve(specialistID, moduleID, []string{
		filepath.Join(specialistID, "modules", moduleID),
		filepath.Join(specialistID, moduleID),
	})
}

// resolve tries each candidate path with each known extension, serving from
// cache when the file was read before.
func (r *Repository) resolve(specialistID, promptID string, candidates []string) (string, error) {
	for _, candidate := range candidates {
		for _, ext := range promptExtensions {
			rel := filepath.ToSlash(candidate) + ext

			r.mu.RLock()
			text, hit := r.cache[rel]
			r.mu.RUnlock()
			if hit {
				return text, nil
			}

			data, err := os.ReadFile(filepath.Join(r.root, filepath.FromSlash(rel)))
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return "", core.ErrPromptMissing(specialistID, promptID).WithCause(err)
			}
			text = strings.TrimSpace(string(data))
			if text == "" {
				continue
			}

			r.mu.Lock()
			r.cache[rel] = text
			r.mu.Unlock()
			r.watchDir(filepath.Dir(filepath.Join(r.root, filepath.FromSlash(rel))))
			return text, nil
		}
	}
	return "", core.ErrPromptMissing(specialistID, promptID)
}

// startWatcher begins cache invalidation. A watcher failure degrades to an
// uncached-on-change repository, not an error.
func (r *Repository) startWatcher() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		r.logger.Warn("prompt watcher unavailable, edits need a restart", "error", err)
		return
	}
	r.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					r.invalidate(event.Name)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.logger.Warn("prompt watcher error", "error", err)
			}
		}
	}()
}

func (r *Repository) watchDir(dir string) {
	if r.watcher == nil {
		return
	}
	if err := r.watcher.Add(dir); err != nil {
		r.logger.Warn("cannot watch prompt directory", "dir", dir, "error", err)
	}
}

// invalidate drops the cache entry for a changed file.
func (r *Repository) invalidate(path string) {
	rel, err := filepath.Rel(r.root, path)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cache[rel]; ok {
		delete(r.cache, rel)
		r.logger.Debug("prompt cache invalidated", "prompt", rel)
	}
}

// Close stops the watcher.
func (r *Repository) Close() error {
	if r.watcher == nil {
		return nil
	}
	return r.watcher.Close()
}
