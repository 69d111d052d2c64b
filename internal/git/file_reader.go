package git

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// GitRefFileReader reads files as they are at a git ref, without checking
// the ref out. Contents are cached per path.
type GitRefFileReader struct {
	ref      string
	dir      string
	executor gitCommandExecutor

	mu    sync.Mutex
	cache map[string][]byte
}

func NewGitRefFileReader(ref string, dir string) *GitRefFileReader {
	return &GitRefFileReader{
		ref:      ref,
		dir:      dir,
		executor: newRealGitExecutor(dir),
	}
}

func (r *GitRefFileReader) Ref() string {
	return r.ref
}

// ReadFile reads path from the ref. Absolute paths under the repo dir are
// made relative to it.
func (r *GitRefFileReader) ReadFile(path string) ([]byte, error) {
	path = r.normalizePathForGit(path)

	r.mu.Lock()
	defer r.mu.Unlock()
	if content, ok := r.cache[path]; ok {
		return content, nil
	}
	output, err := r.executor.execute("git", "show", fmt.Sprintf("%s:%s", r.ref, path))
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s from ref %s: %w", path, r.ref, err)
	}
	if r.cache == nil {
		r.cache = make(map[string][]byte)
	}
	r.cache[path] = output
	return output, nil
}

func (r *GitRefFileReader) PathExists(path string) bool {
	path = r.normalizePathForGit(path)
	_, err := r.executor.execute("git", "cat-file", "-e", fmt.Sprintf("%s:%s", r.ref, path))
	return err == nil
}

func (r *GitRefFileReader) normalizePathForGit(path string) string {
	dir := filepath.Clean(r.dir)
	cleaned := filepath.Clean(path)
	if filepath.IsAbs(cleaned) && dir != "." {
		if rel, err := filepath.Rel(dir, cleaned); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return strings.TrimPrefix(filepath.ToSlash(cleaned), "/")
}
