package installer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strconv"

	"github.com/bundlekit/bundle-installer/internal/logger"
)

// applyOwner chowns the given paths (directories recursively) to the
// configured owner. Ownership is OS plumbing, not lifecycle state: every
// failure is logged and swallowed.
func applyOwner(ctx context.Context, owner string, paths ...string) {
	if owner == "" {
		return
	}

	uid, gid, err := lookupOwner(owner)
	if err != nil {
		logger.WarnKV(ctx, "Unable to resolve owner", "owner", owner, "error", err)
		return
	}

	for _, path := range paths {
		if err := chownTree(path, uid, gid); err != nil {
			logger.WarnKV(ctx, "Unable to change ownership",
				"path", path, "owner", owner, "error", err)
		}
	}
}

// lookupOwner resolves a username to numeric uid/gid.
func lookupOwner(owner string) (int, int, error) {
	u, err := user.Lookup(owner)
	if err != nil {
		return 0, 0, fmt.Errorf("lookup user: %w", err)
	}

	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return 0, 0, fmt.Errorf("parse uid %q: %w", u.Uid, err)
	}

	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return 0, 0, fmt.Errorf("parse gid %q: %w", u.Gid, err)
	}

	return uid, gid, nil
}

// chownTree changes ownership of path and, for directories, everything below it.
// Symlinks themselves are re-owned without following their targets.
func chownTree(path string, uid, gid int) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.Type()&fs.ModeSymlink != 0 {
			return os.Lchown(p, uid, gid)
		}

		return os.Chown(p, uid, gid)
	})
}
