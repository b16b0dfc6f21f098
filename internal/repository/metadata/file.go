package metadata

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Store defines persistence operations for installation metadata.
type Store interface {
	Load() (map[string]string, error)
	Save(values map[string]string) error
}

// FileStore persists installation metadata to a line-oriented key=value
// file colocated with the install root. Values are escaped so content
// containing shell-interpretable syntax round-trips as inert data.
type FileStore struct {
	// path is the filesystem location of the metadata file.
	path string
}

const (
	// Filename is the metadata file name inside the install root.
	Filename = ".install-metadata"

	// formatHeader is written as the first line so future format changes
	// can be detected on load.
	formatHeader = "# bundle-installer metadata format 1"

	// filePermissions restricts the metadata file to its owner.
	filePermissions = 0o600

	// dirPermissions is used when the install root has to be created
	// before the metadata file can be written.
	dirPermissions = 0o755
)

// errEmptyKey is returned when a metadata entry has no key.
var errEmptyKey = errors.New("metadata entry has an empty key")

// NewFileStore creates a store for the metadata file under the given install root.
func NewFileStore(installRoot string) *FileStore {
	return &FileStore{
		path: filepath.Join(filepath.Clean(installRoot), Filename),
	}
}

// Path returns the full path of the metadata file.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the metadata file and returns its entries. A missing file is
// not an error: it yields an empty map. A partially corrupt file yields
// every line that still parses together with an error describing the first
// problem, so callers can log and continue best-effort.
func (s *FileStore) Load() (map[string]string, error) {
	values := make(map[string]string)

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return values, nil
		}

		return values, fmt.Errorf("open metadata file: %w", err)
	}
	defer f.Close() //nolint:errcheck // Read-only file.

	var firstProblem error

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, rawValue, found := strings.Cut(line, "=")
		if !found || key == "" {
			if firstProblem == nil {
				firstProblem = fmt.Errorf("parse metadata line %q: %w", line, errEmptyKey)
			}

			continue
		}

		value, err := Unescape(rawValue)
		if err != nil {
			if firstProblem == nil {
				firstProblem = fmt.Errorf("decode metadata key %q: %w", key, err)
			}

			continue
		}

		values[key] = value
	}

	if err := scanner.Err(); err != nil && firstProblem == nil {
		firstProblem = fmt.Errorf("read metadata file: %w", err)
	}

	return values, firstProblem
}

// Save writes all entries to the metadata file, creating the install root
// if needed. Keys are sorted so the file is deterministic. A write failure
// is fatal to the caller: silently losing configuration defeats persistence.
func (s *FileStore) Save(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), dirPermissions); err != nil {
		return fmt.Errorf("create metadata directory: %w", err)
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	var b strings.Builder

	b.WriteString(formatHeader)
	b.WriteByte('\n')

	for _, key := range keys {
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(Escape(values[key]))
		b.WriteByte('\n')
	}

	if err := os.WriteFile(s.path, []byte(b.String()), filePermissions); err != nil {
		return fmt.Errorf("write metadata file: %w", err)
	}

	return nil
}

// Merge layers persisted metadata under the current invocation's values:
// every key present only in persisted is added, keys present in both keep
// the current value. The inputs are not modified.
func Merge(persisted, current map[string]string) map[string]string {
	merged := make(map[string]string, len(persisted)+len(current))

	for key, value := range persisted {
		merged[key] = value
	}

	for key, value := range current {
		merged[key] = value
	}

	return merged
}
