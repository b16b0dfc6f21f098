package installer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bundlekit/bundle-installer/internal/config"
)

// Plan holds the resolved filesystem layout for one installation.
// It is derived from configuration and current filesystem state, never persisted.
type Plan struct {
	// InstallRoot is the stable base path of the installation.
	InstallRoot string
	// InstallDir is the directory the payload is extracted into. Equals
	// InstallRoot in flat mode, or a release subdirectory otherwise.
	InstallDir string
	// ReleasesDir is the parent of all release directories (release mode only).
	ReleasesDir string
	// CurrentLink is the path of the "current" symlink (release mode only).
	CurrentLink string
	// Flat records which mode produced the plan.
	Flat bool
}

const (
	// ReleasesDirName is the subdirectory of the install root that holds releases.
	ReleasesDirName = "releases"

	// CurrentLinkName is the symlink inside the install root pointing at the
	// active release.
	CurrentLinkName = "current"

	// releaseIDTimeFormat is the one-second-granularity identifier used when
	// no release identifier is configured, and the collision suffix format.
	releaseIDTimeFormat = "20060102150405"

	// planDirPermissions is the mode for eagerly created install directories.
	planDirPermissions = 0o755

	// maxCollisionRetries bounds the suffix search; hitting it means the
	// filesystem is churning under us.
	maxCollisionRetries = 1000
)

// errNoFreeInstallDir is returned when collision disambiguation gives up.
var errNoFreeInstallDir = errors.New("unable to find a free install directory name")

// planInstall resolves the install layout for the given configuration and
// eagerly creates the install directory. A creation failure is fatal for
// the whole installation: nothing has been written yet, so there is no
// state to roll back.
//
// In release mode a directory that already exists gets a "-<timestamp>"
// suffix rather than being reused, so repeated installs never silently
// merge into a prior one. Two collisions within the same second are
// resolved by an incrementing numeric suffix instead of accepting the
// residual race.
func planInstall(cfg *config.Config, now func() time.Time) (*Plan, error) {
	// The plan's paths are handed to the hook as environment variables and
	// used as an exec path with the hook's working directory set to the
	// install directory, so relative roots (the default: the payload's bare
	// base name) must be absolutized here.
	root, err := filepath.Abs(cfg.InstallRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve install root: %w", err)
	}

	if cfg.Flat {
		if err := os.MkdirAll(root, planDirPermissions); err != nil {
			return nil, fmt.Errorf("create install root: %w", err)
		}

		return &Plan{
			InstallRoot: root,
			InstallDir:  root,
			Flat:        true,
		}, nil
	}

	releasesDir := filepath.Join(root, ReleasesDirName)

	releaseID := cfg.ReleaseID
	if releaseID == "" {
		releaseID = now().Format(releaseIDTimeFormat)
	}

	installDir, err := disambiguate(releasesDir, releaseID, now)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(installDir, planDirPermissions); err != nil {
		return nil, fmt.Errorf("create install directory: %w", err)
	}

	return &Plan{
		InstallRoot: root,
		InstallDir:  installDir,
		ReleasesDir: releasesDir,
		CurrentLink: filepath.Join(root, CurrentLinkName),
	}, nil
}

// disambiguate returns the first non-existing directory path for the
// release identifier, appending a timestamp and then a counter on collision.
func disambiguate(releasesDir, releaseID string, now func() time.Time) (string, error) {
	candidate := filepath.Join(releasesDir, releaseID)
	if !pathExists(candidate) {
		return candidate, nil
	}

	stamp := now().Format(releaseIDTimeFormat)

	candidate = filepath.Join(releasesDir, releaseID+"-"+stamp)
	if !pathExists(candidate) {
		return candidate, nil
	}

	for n := 2; n < maxCollisionRetries; n++ {
		candidate = filepath.Join(releasesDir, fmt.Sprintf("%s-%s-%d", releaseID, stamp, n))
		if !pathExists(candidate) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: %s", errNoFreeInstallDir, releaseID)
}

// pathExists reports whether anything exists at the given path.
func pathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
