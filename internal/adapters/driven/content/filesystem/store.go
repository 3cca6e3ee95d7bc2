// Package filesystem provides the on-disk vault: markdown files under a
// root directory, addressed by normalized relative IDs.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/vaultgraph/internal/core/domain"
	"github.com/custodia-labs/vaultgraph/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.ContentStore = (*Store)(nil)

// markdownExtensions are the file extensions treated as documents.
var markdownExtensions = map[string]struct{}{
	".md":       {},
	".markdown": {},
}

// Store reads vault documents from a root directory. Hidden directories
// (dot-prefixed) are not part of the vault.
type Store struct {
	root string
}

// NewStore creates a store rooted at dir. The directory must exist.
func NewStore(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve vault root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat vault root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault root %s: not a directory", abs)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute vault root directory.
func (s *Store) Root() string {
	return s.root
}

// path maps a normalized document ID to an absolute file path, rejecting
// IDs that would escape the root.
func (s *Store) path(id string) (string, error) {
	id = domain.NormalizeID(id)
	if id == "" || strings.HasPrefix(id, "..") {
		return "", fmt.Errorf("document id %q: %w", id, domain.ErrInvalidInput)
	}
	return filepath.Join(s.root, filepath.FromSlash(id)), nil
}

// resolve returns the on-disk path for an ID, falling back to a
// case-insensitive scan when the exact casing does not exist. The scan
// keeps the real on-disk path, since IDs are case-folded.
func (s *Store) resolve(ctx context.Context, id string) (string, error) {
	p, err := s.path(id)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(p); err == nil {
		return p, nil
	}

	want := domain.NormalizeID(id)
	var found string
	err = filepath.WalkDir(s.root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if entry.IsDir() {
			if p != s.root && strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		if domain.NormalizeID(filepath.ToSlash(rel)) == want {
			found = p
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", id, err)
	}
	if found == "" {
		return "", fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return found, nil
}

// Exists reports whether a document currently exists.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.resolve(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Read returns the raw bytes of a document.
func (s *Store) Read(ctx context.Context, id string) ([]byte, error) {
	p, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", id, err)
	}
	return data, nil
}

// Stat returns modification time and size for a document.
func (s *Store) Stat(ctx context.Context, id string) (*driven.FileInfo, error) {
	p, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("stat %s: %w", id, err)
	}
	return &driven.FileInfo{
		ModifiedAt: info.ModTime(),
		Size:       info.Size(),
	}, nil
}

// List returns every markdown document ID under the root, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	var ids []string
	err := filepath.WalkDir(s.root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		name := entry.Name()
		if entry.IsDir() {
			if p != s.root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := markdownExtensions[strings.ToLower(filepath.Ext(name))]; !ok {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		ids = append(ids, domain.NormalizeID(filepath.ToSlash(rel)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list vault: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// isNotFound reports whether an error chain contains ErrNotFound.
func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
