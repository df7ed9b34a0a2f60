// Package fsutil holds the file write helpers shared by the state writers.
package fsutil

import "os"

// WriteFileAtomic writes data to a temp file next to path, syncs and
// closes it, then renames it into place. Readers see the old file or the
// new one whole, never a partial write.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = f.Write(data); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
