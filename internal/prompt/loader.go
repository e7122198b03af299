// Package prompt resolves agent prompt templates from a directory.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DirLoader reads prompt files relative to a root directory and caches
// them after first load. Prompt files are static for a process
// lifetime.
type DirLoader struct {
	root string

	mu    sync.RWMutex
	cache map[string]string
}

// NewDirLoader builds a loader rooted at dir.
func NewDirLoader(dir string) *DirLoader {
	return &DirLoader{root: dir, cache: make(map[string]string)}
}

// Load returns the prompt text at path, relative to the loader root.
// Absolute paths and parent traversal are rejected.
func (l *DirLoader) Load(path string) (string, error) {
	if filepath.IsAbs(path) || strings.Contains(path, "..") {
		return "", fmt.Errorf("prompt: invalid path %q", path)
	}

	l.mu.RLock()
	cached, ok := l.cache[path]
	l.mu.RUnlock()
	if ok {
		return cached, nil
	}

	data, err := os.ReadFile(filepath.Join(l.root, path))
	if err != nil {
		return "", fmt.Errorf("prompt: load %s: %w", path, err)
	}
	text := string(data)

	l.mu.Lock()
	l.cache[path] = text
	l.mu.Unlock()
	return text, nil
}
