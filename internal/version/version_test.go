package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestShort verifies Short returns only the semantic version.
func TestShort(t *testing.T) {
	t.Parallel()
	require.Equal(t, Version, Short())
}

// TestFull verifies Full includes version, commit and build time.
func TestFull(t *testing.T) {
	t.Parallel()

	full := Full()
	require.Contains(t, full, Version)
	require.Contains(t, full, Commit)
	require.Contains(t, full, BuildTime)
}
