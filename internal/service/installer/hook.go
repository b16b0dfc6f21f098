package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/bundlekit/bundle-installer/internal/config"
	"github.com/bundlekit/bundle-installer/internal/logger"
)

// HookRelativePath locates the post-install hook inside the extracted payload.
const HookRelativePath = ".fpm/after_install"

// Environment variable names exported to the hook process.
const (
	envInstallRoot = "INSTALL_ROOT"
	envInstallDir  = "INSTALL_DIR"
	envVerbose     = "VERBOSE"
)

// runAfterInstallHook executes the payload's post-install hook, if any.
// A missing hook file is success; so is a present but non-executable one,
// matching the behavior of checking for an executable before invoking it.
// A non-zero hook exit is the one failure that arrives after observable
// state changed, so the caller must roll the symlink back.
func runAfterInstallHook(ctx context.Context, cfg *config.Config, plan *Plan) error {
	hookPath := filepath.Join(plan.InstallDir, filepath.FromSlash(HookRelativePath))

	info, err := os.Stat(hookPath)
	if errors.Is(err, os.ErrNotExist) {
		logger.Debug(ctx, "No post-install hook present")
		return nil
	}

	if err != nil {
		return fmt.Errorf("inspect post-install hook: %w", err)
	}

	if info.Mode().Perm()&0o111 == 0 {
		logger.InfoKV(ctx, "Post-install hook is not executable, skipping", "path", hookPath)
		return nil
	}

	logger.InfoKV(ctx, "Running post-install hook", "path", hookPath)

	verbose := "0"
	if cfg.Verbose {
		verbose = "1"
	}

	cmd := exec.CommandContext(ctx, hookPath)
	cmd.Dir = plan.InstallDir
	cmd.Env = append(os.Environ(),
		envInstallRoot+"="+plan.InstallRoot,
		envInstallDir+"="+plan.InstallDir,
		envVerbose+"="+verbose,
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("post-install hook: %w", err)
	}

	return nil
}
