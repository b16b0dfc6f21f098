package extractor

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Extractor populates a destination directory from a payload byte stream.
// Implementations own the atomicity of their writes; callers treat any
// error as a failed extraction.
type Extractor interface {
	Extract(ctx context.Context, src io.Reader, destinationDir string) error
}

// TarGz extracts gzip-compressed tar payloads. Regular files, directories
// and symlinks are materialized; other entry types are skipped.
type TarGz struct{}

const (
	// defaultDirMode is used for directories without an explicit mode and
	// for implicit parent directories.
	defaultDirMode os.FileMode = 0o755
)

var (
	// errUnsafePath is returned when an archive entry would escape the
	// destination directory.
	errUnsafePath = errors.New("archive entry escapes destination directory")
)

// NewTarGz creates a tar.gz payload extractor.
func NewTarGz() *TarGz {
	return &TarGz{}
}

// Extract unpacks the payload stream into destinationDir.
// The destination must already exist; entry paths are validated so a
// crafted payload cannot write outside of it.
func (e *TarGz) Extract(ctx context.Context, src io.Reader, destinationDir string) error {
	decompressor, err := gzip.NewReader(src)
	if err != nil {
		return fmt.Errorf("open payload compression: %w", err)
	}
	defer decompressor.Close() //nolint:errcheck // Read-only stream.

	archive := tar.NewReader(decompressor)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		header, err := archive.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("read payload entry: %w", err)
		}

		target, err := secureJoin(destinationDir, header.Name)
		if err != nil {
			return err
		}

		if err := e.writeEntry(archive, header, target); err != nil {
			return fmt.Errorf("extract %s: %w", header.Name, err)
		}
	}
}

// writeEntry materializes a single archive entry at target.
func (e *TarGz) writeEntry(archive *tar.Reader, header *tar.Header, target string) error {
	switch header.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(target, header.FileInfo().Mode().Perm())
	case tar.TypeReg:
		return writeFile(archive, target, header.FileInfo().Mode().Perm())
	case tar.TypeSymlink:
		if err := os.MkdirAll(filepath.Dir(target), defaultDirMode); err != nil {
			return err
		}

		// Replace a leftover link so repeated extraction stays idempotent.
		if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}

		return os.Symlink(header.Linkname, target)
	default:
		// Character devices, FIFOs etc. have no business in a payload.
		return nil
	}
}

// writeFile streams a regular file entry to disk with the entry's mode.
func writeFile(contents io.Reader, target string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), defaultDirMode); err != nil {
		return err
	}

	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, contents); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}

// secureJoin joins an archive entry name onto the destination and rejects
// names that resolve outside of it ("../../etc/passwd" style entries).
func secureJoin(destinationDir, name string) (string, error) {
	cleanDest := filepath.Clean(destinationDir)

	target := filepath.Join(cleanDest, filepath.FromSlash(name))
	if target != cleanDest && !strings.HasPrefix(target, cleanDest+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", errUnsafePath, name)
	}

	return target, nil
}
