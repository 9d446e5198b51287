package filesystem

import (
	"fmt"
	"os"
	"path/filepath"

	"variant-server/internal/logging"
)

// WriteFileExclusive creates path with O_EXCL and writes data in one pass.
// If the file already exists it returns an error satisfying
// errors.Is(err, os.ErrExist) and leaves the existing file untouched.
//
// The exclusive create is what makes concurrent descriptor writers safe:
// the loser of the race sees ErrExist and treats the work as already queued.
func WriteFileExclusive(path string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		// A half-written descriptor is worse than none: remove it so the
		// next request can queue the work again.
		if rmErr := os.Remove(path); rmErr != nil {
			logging.Warn("failed to remove partial file %s: %v", path, rmErr)
		}
		return fmt.Errorf("writing %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			logging.Warn("failed to remove partial file %s: %v", path, rmErr)
		}
		return fmt.Errorf("closing %s: %w", path, err)
	}

	return nil
}

// WriteFileAtomic writes data to path via a temp file in the same directory
// followed by a rename. Concurrent readers either see the old content (or
// absence) or the complete new content, never a partial write. Last rename
// wins when two writers race on the same path, which is the intended
// resolution for duplicate generation.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		if rmErr := os.Remove(tmpName); rmErr != nil && !os.IsNotExist(rmErr) {
			logging.Warn("failed to remove temp file %s: %v", tmpName, rmErr)
		}
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("writing temp file %s: %w", tmpName, err)
	}

	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("closing temp file %s: %w", tmpName, err)
	}

	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return fmt.Errorf("setting mode on %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("publishing %s: %w", path, err)
	}

	return nil
}
