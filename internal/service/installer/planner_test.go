package installer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bundlekit/bundle-installer/internal/config"
)

// fixedNow returns a deterministic clock for planner tests.
func fixedNow(t *testing.T, value string) func() time.Time {
	t.Helper()

	ts, err := time.Parse(releaseIDTimeFormat, value)
	require.NoError(t, err)

	return func() time.Time { return ts }
}

// TestPlanInstall_FlatMode uses the install root itself as the target.
func TestPlanInstall_FlatMode(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "app")
	cfg := &config.Config{InstallRoot: root, Flat: true}

	plan, err := planInstall(cfg, time.Now)
	require.NoError(t, err)
	require.Equal(t, root, plan.InstallDir)
	require.Equal(t, root, plan.InstallRoot)
	require.True(t, plan.Flat)
	require.Empty(t, plan.CurrentLink)

	info, err := os.Stat(root)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

// TestPlanInstall_ReleaseMode_TimestampID generates a timestamp identifier
// when none is configured.
func TestPlanInstall_ReleaseMode_TimestampID(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "app")
	cfg := &config.Config{InstallRoot: root}

	plan, err := planInstall(cfg, fixedNow(t, "20240102030405"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "releases", "20240102030405"), plan.InstallDir)
	require.Equal(t, filepath.Join(root, "releases"), plan.ReleasesDir)
	require.Equal(t, filepath.Join(root, "current"), plan.CurrentLink)
	require.False(t, plan.Flat)

	info, err := os.Stat(plan.InstallDir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

// TestPlanInstall_RelativeRootIsAbsolutized resolves relative install roots
// (the default case: the payload's bare base name) so the plan's paths stay
// valid as hook environment and exec paths regardless of working directory.
func TestPlanInstall_RelativeRootIsAbsolutized(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg := &config.Config{InstallRoot: "app"}

	plan, err := planInstall(cfg, fixedNow(t, "20240102030405"))
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(plan.InstallRoot))
	require.True(t, filepath.IsAbs(plan.InstallDir))
	require.True(t, filepath.IsAbs(plan.CurrentLink))
	require.Equal(t, filepath.Join(dir, "app"), plan.InstallRoot)
}

// TestPlanInstall_CollisionAppendsTimestamp enforces the no-clobber guarantee.
func TestPlanInstall_CollisionAppendsTimestamp(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "app")
	cfg := &config.Config{InstallRoot: root, ReleaseID: "v1"}

	require.NoError(t, os.MkdirAll(filepath.Join(root, "releases", "v1"), 0o755))

	plan, err := planInstall(cfg, fixedNow(t, "20240102030405"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "releases", "v1-20240102030405"), plan.InstallDir)
}

// TestPlanInstall_SameSecondCollision falls back to a numeric suffix so two
// collisions within one second still get distinct directories.
func TestPlanInstall_SameSecondCollision(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "app")
	cfg := &config.Config{InstallRoot: root, ReleaseID: "v1"}
	now := fixedNow(t, "20240102030405")

	require.NoError(t, os.MkdirAll(filepath.Join(root, "releases", "v1"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "releases", "v1-20240102030405"), 0o755))

	plan, err := planInstall(cfg, now)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "releases", "v1-20240102030405-2"), plan.InstallDir)

	// And again: the counter keeps advancing.
	plan, err = planInstall(cfg, now)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "releases", "v1-20240102030405-3"), plan.InstallDir)
}

// TestPlanInstall_RepeatedInstallsAreDistinct is the no-clobber invariant
// over several runs with the same configuration.
func TestPlanInstall_RepeatedInstallsAreDistinct(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "app")
	cfg := &config.Config{InstallRoot: root, ReleaseID: "r"}
	now := fixedNow(t, "20240102030405")

	seen := make(map[string]bool)

	for range 4 {
		plan, err := planInstall(cfg, now)
		require.NoError(t, err)
		require.False(t, seen[plan.InstallDir], "directory %s reused", plan.InstallDir)

		seen[plan.InstallDir] = true
	}
}
