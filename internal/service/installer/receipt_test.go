package installer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// TestReceipt_WriteAndReload round-trips a receipt through YAML on disk.
func TestReceipt_WriteAndReload(t *testing.T) {
	t.Parallel()

	installDir := t.TempDir()
	plan := &Plan{
		InstallRoot: filepath.Dir(installDir),
		InstallDir:  installDir,
	}

	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	want := newReceipt(plan, "/tmp/app.tar.gz", "abc123", now)
	require.NoError(t, want.write(installDir))

	contents, err := os.ReadFile(filepath.Join(installDir, ReceiptFilename))
	require.NoError(t, err)

	var got Receipt
	require.NoError(t, yaml.Unmarshal(contents, &got))
	require.Equal(t, *want, got)
	require.Equal(t, filepath.Base(installDir), got.ReleaseID)
}

// TestNewReceipt_FlatModeHasNoReleaseID omits the release id in flat mode.
func TestNewReceipt_FlatModeHasNoReleaseID(t *testing.T) {
	t.Parallel()

	plan := &Plan{InstallRoot: "/opt/app", InstallDir: "/opt/app", Flat: true}
	receipt := newReceipt(plan, "app.tar.gz", "deadbeef", time.Now())
	require.Empty(t, receipt.ReleaseID)
}
