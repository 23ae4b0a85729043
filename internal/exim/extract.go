package exim

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrPathEscapes  = errors.New("archive entry escapes extraction directory")
	ErrAbsolutePath = errors.New("absolute archive entry paths are not allowed")
	ErrEmptyPath    = errors.New("empty archive entry name")
)

// extractRoot confines writes of archive entries to one directory using
// os.Root, so a crafted entry name cannot write outside it.
type extractRoot struct {
	root *os.Root
}

func openExtractRoot(dir string) (*extractRoot, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create extraction directory: %w", err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open extraction directory: %w", err)
	}
	return &extractRoot{root: root}, nil
}

func (r *extractRoot) Close() error {
	return r.root.Close()
}

// normalizeEntry validates a zip entry name and returns it as a local path
func normalizeEntry(name string) (string, error) {
	if name == "" {
		return "", ErrEmptyPath
	}
	// zip names always use forward slashes
	platform := filepath.FromSlash(strings.TrimSuffix(name, "/"))
	if strings.HasPrefix(name, "/") || filepath.IsAbs(platform) {
		return "", fmt.Errorf("%w: %s", ErrAbsolutePath, name)
	}
	if !filepath.IsLocal(platform) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, name)
	}
	return filepath.Clean(platform), nil
}

// Mkdir creates dir and its parents inside the root
func (r *extractRoot) Mkdir(dir string) error {
	if dir == "." || dir == "" {
		return nil
	}
	var current string
	for _, part := range strings.Split(dir, string(filepath.Separator)) {
		current = filepath.Join(current, part)
		if err := r.root.Mkdir(current, 0700); err != nil && !errors.Is(err, fs.ErrExist) {
			return err
		}
	}
	return nil
}

// Create opens name for writing inside the root, creating parent
// directories. Existing files are truncated.
func (r *extractRoot) Create(name string) (*os.File, error) {
	local, err := normalizeEntry(name)
	if err != nil {
		return nil, err
	}
	if err := r.Mkdir(filepath.Dir(local)); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", name, err)
	}
	return r.root.OpenFile(local, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
}
