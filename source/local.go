package source

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Local reads a tree from the filesystem.
type Local struct {
	root   string
	filter Filter
}

var _ Source = (*Local)(nil)

// NewLocal creates a Source rooted at root, which must be a directory.
func NewLocal(root string, opts ...Option) (*Local, error) {
	if root == "" {
		return nil, ErrRootRequired
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("source root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source root %s is not a directory", root)
	}
	o := applyOptions(opts)
	return &Local{root: root, filter: o.filter}, nil
}

func (l *Local) List(ctx context.Context) ([]File, error) {
	var files []File
	err := filepath.WalkDir(l.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !l.filter.Match(rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, File{Path: rel, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", l.root, err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func (l *Local) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(l.Location(path))
}

// Location returns the filesystem path of a tree-relative path.
func (l *Local) Location(path string) string {
	return filepath.Join(l.root, filepath.FromSlash(path))
}
