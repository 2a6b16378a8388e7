//go:build windows
// +build windows

package fs

import (
	"os"
)

// Windows has no flock(2); O_APPEND writes below a few KB are already
// atomic at the handle level, so locking is a no-op here.

func flockExclusive(f *os.File) error {
	return nil
}

func flockUnlock(f *os.File) error {
	return nil
}
