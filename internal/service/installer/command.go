package installer

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/bundlekit/bundle-installer/internal/config"
	"github.com/bundlekit/bundle-installer/internal/logger"
	"github.com/bundlekit/bundle-installer/internal/repository/metadata"
	"github.com/bundlekit/bundle-installer/internal/service/extractor"
)

// Options contains inputs for the installer entry point.
type Options struct {
	// PayloadPath is the tar.gz archive to install.
	PayloadPath string
	// Overrides are the configuration values explicitly supplied on the
	// command line; they always win over persisted metadata.
	Overrides *config.Overrides
}

// runner holds the resolved state for a single installation run.
// It is unexported; callers use Run, which encapsulates setup and teardown.
type runner struct {
	// cfg is the fully layered configuration for this invocation.
	cfg *config.Config
	// store reads and writes the metadata file at the install root.
	store *metadata.FileStore
	// extract populates the install directory from the payload stream.
	extract extractor.Extractor
	// payloadPath is the archive being installed.
	payloadPath string
	// confirmIn and confirmOut carry the interactive confirmation dialog;
	// tests substitute them.
	confirmIn  io.Reader
	confirmOut io.Writer
	// now supplies timestamps; tests substitute it.
	now func() time.Time
}

// Run executes the full installation lifecycle and is the public entry
// point for the CLI. A nil return means either a completed installation or
// an intentional early exit (declined confirmation); both persist metadata.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "bundle-installer")

	r, err := newRunner(ctx, opts)
	if err != nil {
		return err
	}

	return r.run(ctx)
}

// newRunner layers configuration from persisted metadata and command-line
// overrides, applies defaults, and prepares collaborators.
func newRunner(ctx context.Context, opts *Options) (*runner, error) {
	current := opts.Overrides.ToMap()

	// The metadata file is located by the install root, so the root has to
	// be resolved before history can be consulted: the explicit flag wins,
	// otherwise the payload's base name is the candidate.
	candidateRoot := current[config.KeyInstallRoot]
	if candidateRoot == "" {
		candidateRoot = config.DefaultInstallRoot(opts.PayloadPath)
	}

	store := metadata.NewFileStore(candidateRoot)

	persisted, err := store.Load()
	if err != nil {
		logger.WarnKV(ctx, "Ignoring unreadable metadata", "path", store.Path(), "error", err)
	}

	merged := metadata.Merge(persisted, current)

	// Persisted metadata can restore a root different from the candidate.
	// The restored root's own history then fills the remaining gaps. One
	// hop only: a further redirect recorded there is ignored, so two
	// metadata files cannot send an invocation in circles.
	if restored := merged[config.KeyInstallRoot]; restored != "" && restored != candidateRoot {
		store = metadata.NewFileStore(restored)

		persisted, err = store.Load()
		if err != nil {
			logger.WarnKV(ctx, "Ignoring unreadable metadata", "path", store.Path(), "error", err)
		}

		merged = metadata.Merge(persisted, current)
		merged[config.KeyInstallRoot] = restored
	}

	cfg := config.FromMap(merged)
	if err := cfg.ApplyDefaults(opts.PayloadPath); err != nil {
		return nil, err
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	return &runner{
		cfg:         cfg,
		store:       store,
		extract:     extractor.NewTarGz(),
		payloadPath: opts.PayloadPath,
		confirmIn:   os.Stdin,
		confirmOut:  os.Stdout,
		now:         time.Now,
	}, nil
}

// run drives the lifecycle: confirm, plan, extract, promote the symlink,
// run the hook (rolling the symlink back if it fails), prune old releases,
// persist metadata.
func (r *runner) run(ctx context.Context) error {
	applyVerbosity(r.cfg)

	confirmed, err := r.confirmInstall()
	if err != nil {
		return err
	}

	if !confirmed {
		logger.Info(ctx, "Installation declined")
		// Intentional early exit still persists the invocation's parameters.
		return r.saveMetadata(ctx)
	}

	logger.InfoKV(ctx, "Planning installation",
		"root", r.cfg.InstallRoot, "flat", r.cfg.Flat)

	plan, err := planInstall(r.cfg, r.now)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Extracting payload",
		"payload", r.payloadPath, "destination", plan.InstallDir)

	payloadSHA256, err := r.extractPayload(ctx, plan)
	if err != nil {
		return fmt.Errorf("extract payload: %w", err)
	}

	r.writeReceipt(ctx, plan, payloadSHA256)

	var linkState *LinkState

	if !plan.Flat {
		logger.InfoKV(ctx, "Promoting current link",
			"link", plan.CurrentLink, "target", plan.InstallDir)

		linkState, err = promote(plan.InstallDir, plan.CurrentLink)
		if err != nil {
			return fmt.Errorf("promote current link: %w", err)
		}
	}

	if err := runAfterInstallHook(ctx, r.cfg, plan); err != nil {
		// The symlink already moved; put it back before reporting failure.
		// The extracted directory is deliberately left behind for inspection.
		if rollbackErr := rollback(linkState, plan.CurrentLink); rollbackErr != nil {
			logger.ErrorKV(ctx, "Rollback of current link failed", "error", rollbackErr)
		}

		logger.ErrorKV(ctx, "Installation failed", "error", err)

		return err
	}

	if !plan.Flat {
		logger.Info(ctx, "Pruning old releases")
		pruneReleases(ctx, plan.ReleasesDir)
	}

	applyOwner(ctx, r.cfg.Owner, plan.InstallDir)

	if err := r.saveMetadata(ctx); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Installation completed", "directory", plan.InstallDir)

	return nil
}

// confirmInstall asks the user to confirm the target directory unless the
// configuration says not to prompt. Anything but an explicit yes declines.
func (r *runner) confirmInstall() (bool, error) {
	if r.cfg.ConfirmWithoutPrompt {
		return true, nil
	}

	if _, err := fmt.Fprintf(r.confirmOut, "Install to %s? [y/N] ", r.cfg.InstallRoot); err != nil {
		return false, fmt.Errorf("write confirmation prompt: %w", err)
	}

	reader := bufio.NewReader(r.confirmIn)

	answer, err := reader.ReadString('\n')
	if err != nil && answer == "" {
		// EOF with no input (e.g. closed stdin) counts as a decline.
		return false, nil
	}

	answer = strings.ToLower(strings.TrimSpace(answer))

	return answer == "y" || answer == "yes", nil
}

// extractPayload streams the payload into the install directory, hashing
// the whole archive along the way.
func (r *runner) extractPayload(ctx context.Context, plan *Plan) (string, error) {
	f, err := os.Open(r.payloadPath)
	if err != nil {
		return "", fmt.Errorf("open payload: %w", err)
	}
	defer f.Close() //nolint:errcheck // Read-only file.

	hasher := sha256.New()
	tee := io.TeeReader(f, hasher)

	if err := r.extract.Extract(ctx, tee, plan.InstallDir); err != nil {
		return "", err
	}

	// Hash any trailing bytes the decompressor did not consume, so the
	// checksum covers the file as a whole.
	if _, err := io.Copy(io.Discard, tee); err != nil {
		return "", fmt.Errorf("hash payload remainder: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// writeReceipt records what was installed. Best-effort: the receipt is an
// audit convenience, not lifecycle state.
func (r *runner) writeReceipt(ctx context.Context, plan *Plan, payloadSHA256 string) {
	receipt := newReceipt(plan, r.payloadPath, payloadSHA256, r.now())
	if err := receipt.write(plan.InstallDir); err != nil {
		logger.WarnKV(ctx, "Unable to write install receipt", "error", err)
	}
}

// saveMetadata persists the full configuration for the next invocation.
// Failure is fatal: silently losing configuration defeats persistence.
func (r *runner) saveMetadata(ctx context.Context) error {
	logger.InfoKV(ctx, "Saving installation metadata", "path", r.store.Path())

	if err := r.store.Save(r.cfg.ToMap()); err != nil {
		return err
	}

	applyOwner(ctx, r.cfg.Owner, r.store.Path())

	return nil
}

// applyVerbosity maps the verbose flag onto log levels: lifecycle steps at
// info when verbose, errors only otherwise. Fatal problems always print.
func applyVerbosity(cfg *config.Config) {
	if cfg.Verbose {
		logger.SetLevel(zapcore.InfoLevel)
		return
	}

	logger.SetLevel(zapcore.ErrorLevel)
}
