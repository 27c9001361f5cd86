package docstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a document location does not resolve to a
// stored document.
var ErrNotFound = errors.New("document not found")

// DocumentRef identifies a stored document. Location is opaque to callers
// and is the handle passed back for extraction.
type DocumentRef struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// Store keeps uploaded documents on local disk under a single root
// directory. Locations are minted ids, never caller-supplied paths, so the
// store cannot be used to read arbitrary files.
type Store struct {
	root   string
	logger *zap.Logger
}

// NewStore creates the root directory if needed.
func NewStore(root string, logger *zap.Logger) (*Store, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), "deepscout-docs")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create docstore root: %w", err)
	}
	return &Store{root: root, logger: logger}, nil
}

// Put stores the document content and returns a ref whose Location can be
// used as a document work-item payload.
func (s *Store) Put(name string, content io.Reader) (DocumentRef, error) {
	id := uuid.New().String()
	path := filepath.Join(s.root, id)

	f, err := os.Create(path)
	if err != nil {
		return DocumentRef{}, fmt.Errorf("store document: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, content); err != nil {
		os.Remove(path)
		return DocumentRef{}, fmt.Errorf("store document: %w", err)
	}

	s.logger.Debug("document stored",
		zap.String("name", name),
		zap.String("location", id),
	)
	return DocumentRef{Name: name, Location: id}, nil
}

// Extract returns the stored document's text. Binary content that is not
// valid UTF-8 is rejected the same way a missing document is reported to
// workers: as an error they turn into a failed work item.
func (s *Store) Extract(location string) (string, error) {
	if location == "" || strings.ContainsAny(location, "/\\") {
		return "", fmt.Errorf("%w: %q", ErrNotFound, location)
	}
	data, err := os.ReadFile(filepath.Join(s.root, location))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %q", ErrNotFound, location)
		}
		return "", fmt.Errorf("read document %q: %w", location, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("document %q is not extractable text", location)
	}
	return string(data), nil
}
