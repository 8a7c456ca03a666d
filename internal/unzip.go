package internal

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ExtractZip extracts the archive at zipPath into a fresh temporary
// directory and returns it. The caller removes the directory when done.
// Archives containing an entry that would land outside the directory are
// rejected before anything is written.
func ExtractZip(zipPath string) (string, error) {
	zr, err := zip.OpenReader(zipPath)
	if errors.Is(err, zip.ErrInsecurePath) {
		_ = zr.Close()
		return "", &ArchiveError{Path: zipPath, Op: "traversal", Err: err}
	}
	if err != nil {
		return "", &ArchiveError{Path: zipPath, Op: "open", Err: err}
	}
	defer zr.Close()

	return extractArchive(&zr.Reader, zipPath)
}

// ExtractZipBytes extracts an in-memory archive, e.g. an uploaded file
func ExtractZipBytes(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if errors.Is(err, zip.ErrInsecurePath) {
		return "", &ArchiveError{Path: "<memory>", Op: "traversal", Err: err}
	}
	if err != nil {
		return "", &ArchiveError{Path: "<memory>", Op: "open", Err: err}
	}
	return extractArchive(zr, "<memory>")
}

func extractArchive(zr *zip.Reader, name string) (string, error) {
	dest := filepath.Join(os.TempDir(), "chatvault-"+uuid.NewString())
	if err := os.MkdirAll(dest, 0755); err != nil {
		return "", &ArchiveError{Path: name, Op: "extract", Err: err}
	}

	for _, f := range zr.File {
		if _, err := safeJoin(dest, f.Name); err != nil {
			_ = os.RemoveAll(dest)
			return "", &ArchiveError{Path: name, Op: "traversal", Err: err}
		}
	}

	for _, f := range zr.File {
		if err := extractEntry(dest, f); err != nil {
			_ = os.RemoveAll(dest)
			return "", &ArchiveError{Path: name, Op: "extract", Err: err}
		}
	}

	LogDebug("Extracted %d entries from %s to %s", len(zr.File), name, dest)
	return dest, nil
}

// safeJoin resolves an archive entry name under dest
func safeJoin(dest, entry string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(entry))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(entry) {
		return "", fmt.Errorf("path traversal detected in ZIP: %s", entry)
	}
	return target, nil
}

func extractEntry(dest string, f *zip.File) error {
	target, err := safeJoin(dest, f.Name)
	if err != nil {
		return err
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to write %s: %w", f.Name, err)
	}
	return out.Close()
}
