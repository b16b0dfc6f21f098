package installer

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bundlekit/bundle-installer/internal/logger"
)

// keepReleases is how many release directories survive pruning: the one
// just installed plus one prior to fall back to.
const keepReleases = 2

// release pairs a directory name with its creation-order key for sorting.
type release struct {
	name    string
	modTime time.Time
}

// pruneReleases removes the oldest release directories until keepReleases
// remain. Age is the directory's modification time, with the name as a
// tiebreaker: identifiers can be user-supplied, so name order alone is not
// creation order. Failures are logged and swallowed: an already successful
// installation must not be failed by best-effort cleanup.
func pruneReleases(ctx context.Context, releasesDir string) {
	entries, err := os.ReadDir(releasesDir)
	if err != nil {
		logger.WarnKV(ctx, "Unable to list releases for pruning", "error", err)
		return
	}

	releases := make([]release, 0, len(entries))

	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			logger.WarnKV(ctx, "Unable to inspect release", "name", entry.Name(), "error", err)
			continue
		}

		releases = append(releases, release{name: entry.Name(), modTime: info.ModTime()})
	}

	sort.Slice(releases, func(i, j int) bool {
		if !releases[i].modTime.Equal(releases[j].modTime) {
			return releases[i].modTime.Before(releases[j].modTime)
		}

		return releases[i].name < releases[j].name
	})

	for len(releases) > keepReleases {
		oldest := filepath.Join(releasesDir, releases[0].name)
		releases = releases[1:]

		logger.InfoKV(ctx, "Removing old release", "path", oldest)

		if err := os.RemoveAll(oldest); err != nil {
			logger.WarnKV(ctx, "Unable to remove old release", "path", oldest, "error", err)
		}
	}
}
