package fs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// AppendExclusive opens path in append mode, takes an exclusive advisory lock
// when the backing file is an OS file, writes data, and syncs to disk.
// Prior content is never truncated or rewritten.
func AppendExclusive(fsys afero.Fs, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	f, err := fsys.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s for append: %w", path, err)
	}
	defer f.Close()

	// Advisory lock guards against concurrent external writers.
	// Memory-backed filesystems (tests) have no file descriptor to lock.
	if osf, ok := f.(*os.File); ok {
		if err := flockExclusive(osf); err != nil {
			return fmt.Errorf("failed to lock %s: %w", path, err)
		}
		defer flockUnlock(osf)
	}

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}

	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}

	return nil
}

// LockFile acquires an exclusive advisory lock on a sidecar lock file and
// returns a release function. The lock scopes a single read-modify-write
// against concurrent external processes; it is held across no agent or gate
// invocation.
func LockFile(fsys afero.Fs, lockPath string) (release func() error, err error) {
	f, err := fsys.OpenFile(lockPath, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", lockPath, err)
	}

	osf, ok := f.(*os.File)
	if !ok {
		// No descriptor to lock (in-memory filesystem); closing is enough.
		return f.Close, nil
	}

	if err := flockExclusive(osf); err != nil {
		osf.Close()
		return nil, fmt.Errorf("failed to lock %s: %w", lockPath, err)
	}

	return func() error {
		if err := flockUnlock(osf); err != nil {
			osf.Close()
			return err
		}
		return osf.Close()
	}, nil
}

// CopyFile copies src to dst, creating parent directories as needed.
func CopyFile(fsys afero.Fs, src, dst string) error {
	data, err := afero.ReadFile(fsys, src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	if err := fsys.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dst, err)
	}
	if err := afero.WriteFile(fsys, dst, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return nil
}
