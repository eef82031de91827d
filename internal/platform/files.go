package platform

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// File permissions
const (
	DefaultDirPermissions = 0755
)

// InvalidFilenameChars are stripped from generated file names.
const InvalidFilenameChars = `<>:"/\|?*`

var multiSpacePattern = regexp.MustCompile(`\s+`)

// SanitizeFilename removes characters that are invalid on common
// filesystems and collapses whitespace.
func SanitizeFilename(filename string) string {
	for _, c := range InvalidFilenameChars {
		filename = strings.ReplaceAll(filename, string(c), "")
	}
	filename = multiSpacePattern.ReplaceAllString(filename, " ")
	return strings.Trim(filename, " .")
}

// EnsureDir creates a directory (and parents) if it does not exist.
func EnsureDir(dir string) error {
	if dir == "" {
		return nil
	}
	return os.MkdirAll(dir, DefaultDirPermissions)
}

// MoveFile renames src to dst, falling back to copy+remove when the
// rename crosses filesystems (temp dirs often live on another device).
func MoveFile(src, dst string) error {
	if err := EnsureDir(filepath.Dir(dst)); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
