// Package blobstore stores uploaded profile pictures. It defines the Store
// interface, a filesystem implementation, an in-memory implementation for
// tests, and an Echo handler that serves stored files.
package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var (
	ErrNotFound     = errors.New("file not found")
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")
	ErrInvalidName  = errors.New("invalid file name")
	ErrInvalidType  = errors.New("file type not allowed")
)

// AllowedImageExtensions are the accepted picture types.
var AllowedImageExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
}

// Object describes a stored file.
type Object struct {
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	ModTime     time.Time `json:"mod_time"`
}

// Store is the contract for picture storage backends. Names are flat: no
// directories, no path separators.
type Store interface {
	Put(ctx context.Context, name string, content io.Reader) (*Object, error)
	Open(ctx context.Context, name string) (io.ReadCloser, *Object, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]*Object, error)
}

// ---------------------------------------------------------------------------
// Names
// ---------------------------------------------------------------------------

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeFileName reduces name to a safe flat file name: directory parts
// are dropped, whitespace becomes "_", and anything outside [A-Za-z0-9_.-]
// is removed. Returns "" when nothing usable is left.
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base("/" + name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")
	if name == "" || name == "/" {
		return ""
	}
	return name
}

// Extension returns the lower-cased extension of name without the dot.
func Extension(name string) string {
	ext := filepath.Ext(name)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedImage reports whether name has a picture extension.
func IsAllowedImage(name string) bool {
	return AllowedImageExtensions[Extension(name)]
}

// UniqueName prefixes the sanitized original name with a random uuid.
func UniqueName(original string) (string, error) {
	clean := SanitizeFileName(original)
	if clean == "" {
		return "", ErrInvalidName
	}
	return uuid.NewString() + "_" + clean, nil
}

func validName(name string) bool {
	return name != "" && SanitizeFileName(name) == name
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// ---------------------------------------------------------------------------
// Filesystem implementation
// ---------------------------------------------------------------------------

// DiskStore keeps files in a single directory.
type DiskStore struct {
	root    string
	maxSize int64
}

// NewDiskStore creates root if needed.
func NewDiskStore(root string, maxSize int64) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", root, err)
	}
	return &DiskStore{root: root, maxSize: maxSize}, nil
}

func (s *DiskStore) path(name string) string {
	return filepath.Join(s.root, name)
}

// Put writes content to a temporary file and renames it into place so a
// reader never sees a partial picture.
func (s *DiskStore) Put(_ context.Context, name string, content io.Reader) (*Object, error) {
	if !validName(name) {
		return nil, ErrInvalidName
	}

	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, io.LimitReader(content, s.maxSize+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", name, err)
	}
	if n > s.maxSize {
		return nil, ErrFileTooLarge
	}

	if err := os.Rename(tmp.Name(), s.path(name)); err != nil {
		return nil, fmt.Errorf("store %s: %w", name, err)
	}
	return &Object{Name: name, Size: n, ContentType: contentTypeFor(name), ModTime: time.Now().UTC()}, nil
}

func (s *DiskStore) Open(_ context.Context, name string) (io.ReadCloser, *Object, error) {
	if !validName(name) {
		return nil, nil, ErrNotFound
	}
	f, err := os.Open(s.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("open %s: %w", name, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat %s: %w", name, err)
	}
	return f, &Object{Name: name, Size: info.Size(), ContentType: contentTypeFor(name), ModTime: info.ModTime()}, nil
}

func (s *DiskStore) Delete(_ context.Context, name string) error {
	if !validName(name) {
		return ErrNotFound
	}
	if err := os.Remove(s.path(name)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// List returns stored files, skipping in-flight temporary uploads.
func (s *DiskStore) List(_ context.Context) ([]*Object, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read upload dir: %w", err)
	}
	var out []*Object
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, &Object{Name: e.Name(), Size: info.Size(), ContentType: contentTypeFor(e.Name()), ModTime: info.ModTime()})
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// In-memory implementation
// ---------------------------------------------------------------------------

type storedFile struct {
	object  Object
	content []byte
}

// InMemoryStore is a thread-safe Store for tests and development.
type InMemoryStore struct {
	mu      sync.RWMutex
	files   map[string]*storedFile
	maxSize int64
}

func NewInMemoryStore(maxSize int64) *InMemoryStore {
	return &InMemoryStore{files: make(map[string]*storedFile), maxSize: maxSize}
}

func (s *InMemoryStore) Put(_ context.Context, name string, content io.Reader) (*Object, error) {
	if !validName(name) {
		return nil, ErrInvalidName
	}
	data, err := io.ReadAll(io.LimitReader(content, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, ErrFileTooLarge
	}

	obj := Object{Name: name, Size: int64(len(data)), ContentType: contentTypeFor(name), ModTime: time.Now().UTC()}
	s.mu.Lock()
	s.files[name] = &storedFile{object: obj, content: data}
	s.mu.Unlock()
	return &obj, nil
}

func (s *InMemoryStore) Open(_ context.Context, name string) (io.ReadCloser, *Object, error) {
	s.mu.RLock()
	f, ok := s.files[name]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, ErrNotFound
	}
	obj := f.object
	return io.NopCloser(bytes.NewReader(f.content)), &obj, nil
}

func (s *InMemoryStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[name]; !ok {
		return ErrNotFound
	}
	delete(s.files, name)
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Object, 0, len(s.files))
	for _, f := range s.files {
		obj := f.object
		out = append(out, &obj)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ---------------------------------------------------------------------------
// HTTP handler
// ---------------------------------------------------------------------------

// ServeHandler streams the file named by the :filename path param.
func ServeHandler(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		rc, obj, err := store.Open(c.Request().Context(), c.Param("filename"))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, "file not found")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to read file").SetInternal(err)
		}
		defer rc.Close()

		c.Response().Header().Set("Cache-Control", "public, max-age=86400")
		return c.Stream(http.StatusOK, obj.ContentType, rc)
	}
}
