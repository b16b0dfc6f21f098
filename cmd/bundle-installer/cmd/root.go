package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/bundlekit/bundle-installer/internal/config"
	"github.com/bundlekit/bundle-installer/internal/logger"
	"github.com/bundlekit/bundle-installer/internal/service/installer"
	"github.com/bundlekit/bundle-installer/internal/version"
)

// Exit codes: 0 success, 2 argument parsing failure, 1 any other fatal failure.
const (
	exitFailure = 1
	exitUsage   = 2
)

// errUsage marks argument and flag parsing problems so Execute can map them
// to the dedicated exit code.
var errUsage = errors.New("invalid arguments")

var (
	// Flag storage; whether a flag was actually supplied is read via Changed.
	installRoot string
	owner       string
	releaseID   string
	flat        bool
	yes         bool
	verbose     bool

	// rootCmd installs a payload archive.
	rootCmd = &cobra.Command{
		Use:   "bundle-installer [flags] <payload.tar.gz>",
		Short: "Extract a payload archive and manage its release history",
		Long: "bundle-installer extracts a tar.gz payload to a target directory, " +
			"keeps a Capistrano-style \"current\" symlink over dated release " +
			"directories, runs an optional post-install hook from the payload, " +
			"and remembers installation parameters for subsequent runs.",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("%w: expected exactly one payload archive, got %d", errUsage, len(args))
			}

			return nil
		},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Hide pre-resolution chatter unless the flag asked for it; the
			// installer re-applies the level once metadata is merged in.
			if verbose {
				logger.SetLevel(zapcore.InfoLevel)
			} else {
				logger.SetLevel(zapcore.ErrorLevel)
			}

			options := &installer.Options{
				PayloadPath: args[0],
				Overrides:   collectOverrides(cmd),
			}

			return installer.Run(ctx, options)
		},
	}
)

// collectOverrides turns only the explicitly supplied flags into overrides,
// so persisted metadata can fill everything the user left out.
func collectOverrides(cmd *cobra.Command) *config.Overrides {
	ov := &config.Overrides{}

	if cmd.Flags().Changed("install-root") {
		ov.InstallRoot = &installRoot
	}

	if cmd.Flags().Changed("owner") {
		ov.Owner = &owner
	}

	if cmd.Flags().Changed("release-id") {
		ov.ReleaseID = &releaseID
	}

	if cmd.Flags().Changed("flat") {
		ov.Flat = &flat
	}

	if cmd.Flags().Changed("yes") {
		ov.ConfirmWithoutPrompt = &yes
	}

	if cmd.Flags().Changed("verbose") {
		ov.Verbose = &verbose
	}

	return ov
}

// Execute runs the bundle-installer CLI and exits with the appropriate status.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %s", errUsage, err)
	})

	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(exitUsage)
		}

		os.Exit(exitFailure)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&installRoot, "install-root", "r", "",
		"directory to install into (default: payload base name)")
	rootCmd.Flags().StringVarP(&owner, "owner", "o", "",
		"system user that should own installed files (default: current user)")
	rootCmd.Flags().StringVar(&releaseID, "release-id", "",
		"release directory identifier (default: build-time id or timestamp)")
	rootCmd.Flags().BoolVarP(&flat, "flat", "f", false,
		"install directly into the install root, no release history")
	rootCmd.Flags().BoolVarP(&yes, "yes", "y", false,
		"install without asking for confirmation")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false,
		"log every lifecycle step")
}
