// Package blob manages the on-disk namespace for uploaded recordings.
//
// Layout:
//
//	<root>/.temporary_uploads/<userID>/<originalName>   staging area
//	<root>/<userID>/<reportID>/<fileName><ext>          permanent location
//
// Uploads are first written to the staging area and then promoted with an
// atomic rename, so a partially written file never appears at the visible
// path. Promotion does not copy; staging and permanent locations must live
// on the same filesystem.
package blob

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// tempDirName is hidden from per-user directory listings by the leading dot.
const tempDirName = ".temporary_uploads"

// ErrBadName rejects file or identifier components that would escape the
// directory tree.
var ErrBadName = errors.New("invalid path component")

// Directory is a blob store rooted at a single local directory. It is safe
// for concurrent use; concurrent promotions of the same destination race on
// the rename itself (last rename wins, matching the documented manifest
// behavior).
type Directory struct {
	root string
}

// NewDirectory creates the root (and staging area) if missing and returns a
// Directory rooted there.
func NewDirectory(root string) (*Directory, error) {
	if root == "" {
		return nil, fmt.Errorf("blob root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve blob root: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(abs, tempDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &Directory{root: abs}, nil
}

// Root returns the absolute root of the blob tree.
func (d *Directory) Root() string {
	return d.root
}

// cleanComponent validates a single path component supplied by a client
// (user ID, report ID, file name). Anything that is empty, contains a path
// separator, or resolves to a different base name is rejected.
func cleanComponent(name string) (string, error) {
	if name == "" || name == "." || name == ".." {
		return "", ErrBadName
	}
	if strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return "", ErrBadName
	}
	return name, nil
}

// StageTemp writes src to the staging area under the user's namespace and
// returns the temporary path. An existing staged file with the same original
// name is overwritten.
func (d *Directory) StageTemp(userID, originalName string, src io.Reader) (string, error) {
	uid, err := cleanComponent(userID)
	if err != nil {
		return "", fmt.Errorf("user id: %w", err)
	}
	name, err := cleanComponent(originalName)
	if err != nil {
		return "", fmt.Errorf("file name: %w", err)
	}

	dir := filepath.Join(d.root, tempDirName, uid)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create staging directory: %w", err)
	}

	dst := filepath.Join(dir, name)
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create staged file: %w", err)
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("write staged file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("close staged file: %w", err)
	}
	return dst, nil
}

// Promote atomically relocates a staged file to its permanent location
// <root>/<userID>/<reportID>/<fileName> and returns the destination path,
// creating intervening directories as needed. An existing destination file
// is replaced.
func (d *Directory) Promote(tempPath, userID, reportID, fileName string) (string, error) {
	uid, err := cleanComponent(userID)
	if err != nil {
		return "", fmt.Errorf("user id: %w", err)
	}
	rid, err := cleanComponent(reportID)
	if err != nil {
		return "", fmt.Errorf("report id: %w", err)
	}
	name, err := cleanComponent(fileName)
	if err != nil {
		return "", fmt.Errorf("file name: %w", err)
	}

	dir := filepath.Join(d.root, uid, rid)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}

	dst := filepath.Join(dir, name)
	if err := os.Rename(tempPath, dst); err != nil {
		return "", fmt.Errorf("promote staged file: %w", err)
	}
	return dst, nil
}

// Discard removes a staged file, e.g. after its declared type was rejected.
// A file that is already gone is not an error.
func (d *Directory) Discard(tempPath string) error {
	if err := os.Remove(tempPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("discard staged file: %w", err)
	}
	return nil
}

// Open opens a stored file for reading, typically to relay it to the
// transcription engine.
func (d *Directory) Open(path string) (*os.File, error) {
	return os.Open(path)
}
