package uploads

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// LocalStore keeps uploads in a flat directory served under URLPrefix.
type LocalStore struct {
	Dir       string
	URLPrefix string
	now       func() time.Time
}

// NewLocalStore creates dir if it does not exist.
func NewLocalStore(dir, urlPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{Dir: dir, URLPrefix: urlPrefix, now: time.Now}, nil
}

func (s *LocalStore) Save(_ context.Context, originalName, _ string, r io.Reader) (Stored, error) {
	now := s.now()
	name, err := GeneratedName(now, originalName)
	if err != nil {
		return Stored{}, err
	}

	f, err := os.OpenFile(filepath.Join(s.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if os.IsExist(err) {
		name = fallbackName(now, originalName)
		f, err = os.OpenFile(filepath.Join(s.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	}
	if err != nil {
		return Stored{}, fmt.Errorf("create upload: %w", err)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(filepath.Join(s.Dir, name))
		return Stored{}, fmt.Errorf("write upload: %w", err)
	}
	return Stored{Name: name, Ref: s.RefFor(name), Size: n}, nil
}

func (s *LocalStore) RefFor(name string) string {
	return s.URLPrefix + name
}

func (s *LocalStore) List(_ context.Context) ([]StoredFile, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("read upload dir: %w", err)
	}
	files := make([]StoredFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsGeneratedName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, StoredFile{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func (s *LocalStore) Remove(_ context.Context, name string) error {
	base := cleanName(name)
	if base == "" || base != name {
		return fmt.Errorf("refusing to remove %q", name)
	}
	return os.Remove(filepath.Join(s.Dir, base))
}
