// Package attachment stores uploaded images on the local filesystem, one directory per resource.
package attachment

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	tempPrefix     = ".upload-"
	maxOriginalLen = 100
)

var (
	ErrInvalidName = errors.New("invalid stored filename")
)

type Store struct {
	root    string
	dir     string
	baseURL string
}

type FileInfo struct {
	Name    string
	ModTime time.Time
}

// New returns a store writing into root/dir. Resolved URLs are prefixed with baseURL when it is set.
func New(root, dir, baseURL string) *Store {
	return &Store{
		root:    root,
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Dir is the public directory name, as it appears under /uploads/.
func (s *Store) Dir() string {
	return s.dir
}

// Path is the directory on disk.
func (s *Store) Path() string {
	return filepath.Join(s.root, s.dir)
}

// Save writes the content of r under a new unique name derived from originalName and returns that name.
// The file only becomes visible once it is completely written.
func (s *Store) Save(originalName string, r io.Reader) (name string, err error) {
	defer func() { observe("save", s.dir, err) }()

	if err := os.MkdirAll(s.Path(), 0o755); err != nil {
		return "", fmt.Errorf("could not create upload directory %s: %w", s.dir, err)
	}

	f, err := os.CreateTemp(s.Path(), tempPrefix+"*")
	if err != nil {
		return "", fmt.Errorf("could not create temp file: %w", err)
	}
	tmpPath := f.Name()

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("could not write upload: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("could not sync upload: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("could not close upload: %w", err)
	}

	// readable by the static file server regardless of umask
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("could not set upload permissions: %w", err)
	}

	name = storedName(originalName)
	if err := os.Rename(tmpPath, filepath.Join(s.Path(), name)); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("could not move upload into place: %w", err)
	}

	return name, nil
}

// Delete removes a stored file. A file that is already gone is not an error.
func (s *Store) Delete(name string) (err error) {
	defer func() { observe("delete", s.dir, err) }()

	if !validName(name) {
		return ErrInvalidName
	}

	err = os.Remove(filepath.Join(s.Path(), name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("could not delete %s/%s: %w", s.dir, name, err)
	}

	return nil
}

// Resolve turns a stored filename into the URL clients fetch it from.
func (s *Store) Resolve(name *string) *string {
	if name == nil {
		return nil
	}

	u := s.baseURL + "/uploads/" + s.dir + "/" + *name
	return &u
}

// List returns the completed files in the directory. A missing directory yields an empty list.
func (s *Store) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not list %s: %w", s.dir, err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || IsTemp(e.Name()) {
			continue
		}

		info, err := e.Info()
		if err != nil {
			// removed between ReadDir and Info
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}

		files = append(files, FileInfo{Name: e.Name(), ModTime: info.ModTime()})
	}

	return files, nil
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`) && !IsTemp(name)
}

// IsTemp reports whether name is a file still being written by Save.
func IsTemp(name string) bool {
	return strings.HasPrefix(name, tempPrefix)
}

// storedName produces <unix millis>-<short uuid>-<sanitized original>.
func storedName(originalName string) string {
	clean := Sanitize(filepath.Base(originalName))
	if len(clean) > maxOriginalLen {
		clean = clean[len(clean)-maxOriginalLen:]
	}

	return strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + uuid.NewString()[:8] + "-" + clean
}

// Sanitize replaces every character outside [A-Za-z0-9._-] with an underscore.
func Sanitize(s string) string {
	if s == "" || s == "." || s == ".." {
		return "file"
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	return b.String()
}
