package installer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestPruneReleases_KeepsTwoNewest removes everything but the two most
// recent release directories.
func TestPruneReleases_KeepsTwoNewest(t *testing.T) {
	t.Parallel()

	releasesDir := t.TempDir()
	names := []string{
		"20240101000000",
		"20240102000000",
		"20240103000000",
		"20240104000000",
		"20240105000000",
	}
	for _, name := range names {
		require.NoError(t, os.MkdirAll(filepath.Join(releasesDir, name, "content"), 0o755))
	}

	pruneReleases(context.Background(), releasesDir)

	entries, err := os.ReadDir(releasesDir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "20240104000000", entries[0].Name())
	require.Equal(t, "20240105000000", entries[1].Name())
}

// TestPruneReleases_AgeBeatsName removes by creation order even when a
// user-supplied identifier sorts after the timestamped ones lexically.
func TestPruneReleases_AgeBeatsName(t *testing.T) {
	t.Parallel()

	releasesDir := t.TempDir()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// Oldest release carries a custom name that sorts last.
	ages := []struct {
		name string
		age  time.Time
	}{
		{"zzz-custom", base},
		{"20240101000000", base.Add(24 * time.Hour)},
		{"20240103000000", base.Add(48 * time.Hour)},
	}
	for _, r := range ages {
		path := filepath.Join(releasesDir, r.name)
		require.NoError(t, os.Mkdir(path, 0o755))
		require.NoError(t, os.Chtimes(path, r.age, r.age))
	}

	pruneReleases(context.Background(), releasesDir)

	entries, err := os.ReadDir(releasesDir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "20240101000000", entries[0].Name())
	require.Equal(t, "20240103000000", entries[1].Name())
}

// TestPruneReleases_TwoOrFewerUntouched leaves small histories alone.
func TestPruneReleases_TwoOrFewerUntouched(t *testing.T) {
	t.Parallel()

	releasesDir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(releasesDir, "a"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(releasesDir, "b"), 0o755))

	pruneReleases(context.Background(), releasesDir)

	entries, err := os.ReadDir(releasesDir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

// TestPruneReleases_MissingDirIsHarmless only logs when listing fails.
func TestPruneReleases_MissingDirIsHarmless(t *testing.T) {
	t.Parallel()
	pruneReleases(context.Background(), filepath.Join(t.TempDir(), "missing"))
}
