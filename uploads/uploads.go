// Package uploads implements file upload storage for the relay: incoming
// files land under a root directory with collision-proof names and are
// served back by URL.
package uploads

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrSaveFailed wraps any failure to persist an uploaded file.
var ErrSaveFailed = errors.New("failed to save upload")

// Saved describes one stored upload.
type Saved struct {
	// Name is the sanitized original filename.
	Name string `json:"name"`

	// StoredName is the on-disk filename, prefixed against collisions.
	StoredName string `json:"stored_name"`

	// URL is the public path the file is served under.
	URL string `json:"url"`

	// ContentType is the client-declared MIME type, if any.
	ContentType string `json:"content_type,omitempty"`

	// Size is the stored byte count.
	Size int64 `json:"size"`
}

// Store persists uploads under a single root directory.
type Store struct {
	root string
}

// NewStore creates an upload store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	return &Store{root: dir}, nil
}

// Root returns the storage directory, for serving files from.
func (s *Store) Root() string {
	return s.root
}

// Save writes one upload and returns its stored identity. The filename is
// reduced to its base name and prefixed with random hex so concurrent
// uploads of the same name never collide. The write is atomic: a temp file
// renamed into place.
func (s *Store) Save(filename, contentType string, content io.Reader) (*Saved, error) {
	name := sanitize(filename)
	prefix, err := randomPrefix()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSaveFailed, name, err)
	}
	storedName := prefix + "_" + name
	path := filepath.Join(s.root, storedName)

	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSaveFailed, name, err)
	}
	tmpName := tmp.Name()

	size, err := io.Copy(tmp, content)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return nil, fmt.Errorf("%w: %s: %v", ErrSaveFailed, name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("%w: %s: %v", ErrSaveFailed, name, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("%w: %s: %v", ErrSaveFailed, name, err)
	}

	return &Saved{
		Name:        name,
		StoredName:  storedName,
		URL:         "/uploads/" + storedName,
		ContentType: contentType,
		Size:        size,
	}, nil
}

// Open returns the stored file for serving. The name is reduced to its
// base so path traversal cannot escape the root.
func (s *Store) Open(storedName string) (*os.File, error) {
	return os.Open(filepath.Join(s.root, filepath.Base(storedName)))
}

// sanitize strips any path components from a client-supplied filename.
func sanitize(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return "file"
	}
	return name
}

func randomPrefix() (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
