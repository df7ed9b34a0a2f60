package profile

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

type bundleEntry struct {
	name string
	data []byte
}

// buildBundle returns a zip archive with one entry per variant file.
func buildBundle(entries []bundleEntry) ([]byte, error) {
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	for _, e := range entries {
		f, err := w.Create(e.name)
		if err != nil {
			_ = w.Close()
			return nil, err
		}
		if _, err := f.Write(e.data); err != nil {
			_ = w.Close()
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadBundle returns the archive entries keyed by entry name.
func (s *Store) ReadBundle() (map[string][]byte, error) {
	path := s.BundlePath()
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, &PersistenceError{Op: "open archive", Path: path, Err: err}
	}
	defer r.Close()

	out := make(map[string][]byte, len(r.File))
	for _, f := range r.File {
		data, err := readEntry(f)
		if err != nil {
			return nil, &PersistenceError{Op: "read archive entry " + f.Name, Path: path, Err: err}
		}
		out[f.Name] = data
	}
	return out, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// VerifyBundle checks that every archive entry matches its standalone
// variant file byte for byte.
func (s *Store) VerifyBundle() error {
	entries, err := s.ReadBundle()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("profile: archive %s is empty", s.BundlePath())
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if filepath.Base(name) != name {
			return fmt.Errorf("profile: archive entry %q is not a plain file name", name)
		}
		onDisk, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return &PersistenceError{Op: "read", Path: name, Err: err}
		}
		if !bytes.Equal(onDisk, entries[name]) {
			return fmt.Errorf("profile: archive entry %s differs from standalone file", name)
		}
	}
	return nil
}
