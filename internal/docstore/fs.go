package docstore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-research/internal/model"
)

// FS stores documents as files under a root directory.
type FS struct {
	root string
}

// NewFS creates the root directory if needed.
func NewFS(root string) (*FS, error) {
	if root == "" {
		return nil, eris.New("docstore: documents dir is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, eris.Wrapf(err, "docstore: create %s", root)
	}
	return &FS{root: root}, nil
}

func (s *FS) path(prospectID string, kind model.DocumentKind) string {
	return filepath.Join(s.root, filepath.FromSlash(Key(prospectID, kind)))
}

func (s *FS) Location(prospectID string, kind model.DocumentKind) string {
	return s.path(prospectID, kind)
}

func (s *FS) Exists(_ context.Context, prospectID string, kind model.DocumentKind) (bool, error) {
	if err := checkKey(prospectID, kind); err != nil {
		return false, err
	}
	info, err := os.Stat(s.path(prospectID, kind))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "docstore: stat %s", Key(prospectID, kind))
	}
	return info.Mode().IsRegular(), nil
}

func (s *FS) Read(_ context.Context, prospectID string, kind model.DocumentKind) (string, error) {
	if err := checkKey(prospectID, kind); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.path(prospectID, kind))
	if errors.Is(err, fs.ErrNotExist) {
		return "", eris.Wrapf(ErrNotFound, "docstore: read %s", Key(prospectID, kind))
	}
	if err != nil {
		return "", eris.Wrapf(err, "docstore: read %s", Key(prospectID, kind))
	}
	return string(data), nil
}

// Write puts content in a temp file beside the target and renames it into
// place, so readers see either the old document or the new one.
func (s *FS) Write(_ context.Context, prospectID string, kind model.DocumentKind, content string) (string, error) {
	if err := checkKey(prospectID, kind); err != nil {
		return "", err
	}
	target := s.path(prospectID, kind)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "docstore: create %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+string(kind)+"-*.tmp")
	if err != nil {
		return "", eris.Wrap(err, "docstore: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close() //nolint:errcheck
		return "", eris.Wrap(err, "docstore: write temp file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck
		return "", eris.Wrap(err, "docstore: sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return "", eris.Wrap(err, "docstore: close temp file")
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", eris.Wrap(err, "docstore: chmod temp file")
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", eris.Wrapf(err, "docstore: rename into %s", target)
	}
	return target, nil
}
