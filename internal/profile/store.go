// Package profile persists reference authorization profiles.
//
// Each provisioned variant lives in its own file, rap_<id>.json, and a
// bundle archive holds a byte-identical copy of every variant file. The
// active slot is the single file the validator compares against: either
// a configured variant file or the pinned slot rap.json.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/hostpin/internal/fsutil"
	"github.com/ppiankov/hostpin/internal/model"
)

const (
	// ActiveFile is the pinned active slot.
	ActiveFile = "rap.json"
	// BundleFile is the archive holding a copy of every variant file.
	BundleFile = "profiles.zip"

	variantPrefix = "rap_"
	variantSuffix = ".json"

	dirPerm  = 0o750
	filePerm = 0o600
)

// ErrNotFound means no usable reference exists: the file is missing or
// its content cannot be parsed. Callers treat it as "nothing pinned".
var ErrNotFound = errors.New("reference profile not found")

// PersistenceError wraps a file or archive failure.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("profile: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Store reads and writes reference profiles under one directory.
type Store struct {
	dir    string
	active string
}

// NewStore returns a store rooted at dir. active names the variant used
// as the active reference; empty selects the pinned slot rap.json.
func NewStore(dir, active string) *Store {
	return &Store{dir: dir, active: active}
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// Active returns the configured active variant id (empty for the pinned slot).
func (s *Store) Active() string { return s.active }

// VariantFile returns the file name of a variant.
func VariantFile(id string) string {
	return variantPrefix + id + variantSuffix
}

// VariantPath returns the full path of a variant file.
func (s *Store) VariantPath(id string) string {
	return filepath.Join(s.dir, VariantFile(id))
}

// ActivePath returns the path the validator reads.
func (s *Store) ActivePath() string {
	if s.active != "" {
		return s.VariantPath(s.active)
	}
	return filepath.Join(s.dir, ActiveFile)
}

// BundlePath returns the archive path.
func (s *Store) BundlePath() string {
	return filepath.Join(s.dir, BundleFile)
}

// Provision writes every variant to its own file and then rewrites the
// bundle. Existing content is replaced, never merged. All variants are
// validated before anything is written.
func (s *Store) Provision(variants map[string]model.Attributes) error {
	if len(variants) == 0 {
		return fmt.Errorf("profile: no variants to provision")
	}

	ids := make([]string, 0, len(variants))
	for id, attrs := range variants {
		if err := checkVariant(id, attrs); err != nil {
			return err
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if err := os.MkdirAll(s.dir, dirPerm); err != nil {
		return &PersistenceError{Op: "create directory", Path: s.dir, Err: err}
	}

	entries := make([]bundleEntry, 0, len(ids))
	for _, id := range ids {
		data, err := encode(variants[id])
		if err != nil {
			return &PersistenceError{Op: "encode", Path: s.VariantPath(id), Err: err}
		}
		path := s.VariantPath(id)
		if err := fsutil.WriteFileAtomic(path, data, filePerm); err != nil {
			return &PersistenceError{Op: "write", Path: path, Err: err}
		}
		entries = append(entries, bundleEntry{name: VariantFile(id), data: data})
	}

	archive, err := buildBundle(entries)
	if err != nil {
		return &PersistenceError{Op: "build archive", Path: s.BundlePath(), Err: err}
	}
	if err := fsutil.WriteFileAtomic(s.BundlePath(), archive, filePerm); err != nil {
		return &PersistenceError{Op: "write", Path: s.BundlePath(), Err: err}
	}
	return nil
}

// LoadActive reads the active reference. Missing and malformed files both
// return an error matching ErrNotFound.
func (s *Store) LoadActive() (model.Attributes, error) {
	return readReference(s.ActivePath())
}

// Load reads a provisioned variant.
func (s *Store) Load(id string) (model.Attributes, error) {
	if !model.ValidVariantID(id) {
		return nil, fmt.Errorf("%w: invalid variant id %q", ErrNotFound, id)
	}
	return readReference(s.VariantPath(id))
}

// Pin copies a provisioned variant into the pinned slot rap.json.
func (s *Store) Pin(id string) error {
	if _, err := s.Load(id); err != nil {
		return err
	}
	data, err := os.ReadFile(s.VariantPath(id))
	if err != nil {
		return &PersistenceError{Op: "read", Path: s.VariantPath(id), Err: err}
	}
	dst := filepath.Join(s.dir, ActiveFile)
	if err := fsutil.WriteFileAtomic(dst, data, filePerm); err != nil {
		return &PersistenceError{Op: "write", Path: dst, Err: err}
	}
	return nil
}

// List returns the ids of provisioned variants, sorted.
// A missing directory yields an empty list.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &PersistenceError{Op: "list", Path: s.dir, Err: err}
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, variantPrefix) || !strings.HasSuffix(name, variantSuffix) {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(name, variantPrefix), variantSuffix)
		if model.ValidVariantID(id) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func checkVariant(id string, attrs model.Attributes) error {
	if !model.ValidVariantID(id) {
		return fmt.Errorf("profile: invalid variant id %q", id)
	}
	if missing := attrs.Missing(); len(missing) > 0 {
		return fmt.Errorf("profile: variant %q missing fields %s", id, strings.Join(missing, ", "))
	}
	for k, v := range attrs {
		if !model.IsKey(k) {
			return fmt.Errorf("profile: variant %q has unknown field %q", id, k)
		}
		if !utf8.ValidString(v) {
			return fmt.Errorf("profile: variant %q field %s is not valid UTF-8", id, k)
		}
	}
	return nil
}

func encode(attrs model.Attributes) ([]byte, error) {
	data, err := json.MarshalIndent(map[string]string(attrs), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func readReference(path string) (model.Attributes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	var attrs map[string]string
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrNotFound, path, err)
	}
	if attrs == nil {
		return nil, fmt.Errorf("%w: %s is not a JSON object", ErrNotFound, path)
	}
	return model.Attributes(attrs), nil
}
