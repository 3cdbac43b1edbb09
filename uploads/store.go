// Package uploads stores report attachments under generated names and hands
// back the public reference saved on the report.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrFileTooLarge = errors.New("file too large")
	ErrEmptyName    = errors.New("attachment has no file name")
)

// Stored describes a file after it was written.
type Stored struct {
	Name string // generated name, unique within the store
	Ref  string // public reference saved as the report's image
	Size int64
}

type FileStore interface {
	Save(ctx context.Context, originalName, contentType string, r io.Reader) (Stored, error)
}

// StoredFile is a listing entry of a store that supports enumeration.
type StoredFile struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Lister is implemented by stores that can enumerate and delete their files.
type Lister interface {
	List(ctx context.Context) ([]StoredFile, error)
	Remove(ctx context.Context, name string) error
	RefFor(name string) string
}

var generatedNameRe = regexp.MustCompile(`^\d+-[^/]+$`)

// IsGeneratedName reports whether name has the shape GeneratedName and
// fallbackName produce. Listings skip everything else.
func IsGeneratedName(name string) bool {
	return generatedNameRe.MatchString(name)
}

// GeneratedName is "<unix-millis>-<base name>". Directory parts of the
// original name are dropped.
func GeneratedName(now time.Time, originalName string) (string, error) {
	base := cleanName(originalName)
	if base == "" {
		return "", ErrEmptyName
	}
	return fmt.Sprintf("%d-%s", now.UnixMilli(), base), nil
}

// fallbackName is used when GeneratedName already exists in the store.
func fallbackName(now time.Time, originalName string) string {
	return fmt.Sprintf("%d-%s-%s", now.UnixMilli(), uuid.NewString()[:8], cleanName(originalName))
}

func cleanName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := path.Base(strings.TrimSpace(name))
	switch base {
	case ".", "/", "..":
		return ""
	}
	return base
}
