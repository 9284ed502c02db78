package build

import (
	"fmt"
	"io"
	"os"
)

// hardLinkOrCopy places from at to, preferring a hard link and falling back
// to a byte copy when linking fails (different filesystems, or one that does
// not support links). Any existing file at to is removed first so a previous
// cycle's link or copy never gets written through.
func hardLinkOrCopy(from, to string) (linked bool, err error) {
	if _, statErr := os.Lstat(to); statErr == nil {
		if err := os.Remove(to); err != nil {
			return false, fmt.Errorf("failed to remove stale output: %w", err)
		}
	}

	if err := os.Link(from, to); err == nil {
		return true, nil
	}

	if err := copyFile(from, to); err != nil {
		return false, err
	}
	return false, nil
}

func copyFile(from, to string) error {
	src, err := os.Open(from)
	if err != nil {
		return fmt.Errorf("failed to open asset: %w", err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat asset: %w", err)
	}

	dst, err := os.OpenFile(to, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("failed to copy asset: %w", err)
	}
	return dst.Close()
}

// removeDirForce removes a directory tree, succeeding silently when it does
// not exist.
func removeDirForce(path string) error {
	return os.RemoveAll(path)
}
