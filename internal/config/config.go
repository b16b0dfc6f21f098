package config

import (
	"errors"
	"fmt"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bundlekit/bundle-installer/internal/version"
)

// Config holds the full set of parameters controlling one installation run.
// It is built once per invocation by layering persisted metadata under
// explicitly supplied command-line values, then filling defaults, and is
// passed by reference to every component. Components never mutate it.
type Config struct {
	// InstallRoot is the top-level directory the package is installed under.
	InstallRoot string
	// Owner is the system user that should own installed artifacts.
	Owner string
	// Flat selects flat mode: extract directly into InstallRoot with no
	// release history or "current" symlink.
	Flat bool
	// ConfirmWithoutPrompt skips the interactive confirmation question.
	ConfirmWithoutPrompt bool
	// Verbose enables step-by-step lifecycle logging.
	Verbose bool
	// ReleaseID names the release directory in release mode. When empty, a
	// timestamp with one-second granularity is generated at planning time.
	ReleaseID string
}

// Overrides carries only the values the user explicitly supplied on the
// command line. Nil fields were not supplied and may be filled from
// persisted metadata or defaults.
type Overrides struct {
	InstallRoot          *string
	Owner                *string
	Flat                 *bool
	ConfirmWithoutPrompt *bool
	Verbose              *bool
	ReleaseID            *string
}

// Metadata keys used when persisting a Config.
const (
	KeyInstallRoot = "install_root"
	KeyOwner       = "owner"
	KeyFlat        = "flat"
	KeyConfirm     = "confirm_without_prompt"
	KeyVerbose     = "verbose"
	KeyReleaseID   = "release_id"
)

// Suffixes stripped from a payload filename to derive the default install root.
//
//nolint:gochecknoglobals // Static lookup table.
var payloadSuffixes = []string{".tar.gz", ".tgz", ".tar"}

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errInstallRootRequired is returned when no install root could be derived.
	errInstallRootRequired = errors.New("install root must be provided")
)

// ToMap converts the supplied overrides into metadata form.
// Only explicitly supplied values appear in the result.
func (o *Overrides) ToMap() map[string]string {
	m := make(map[string]string)

	if o == nil {
		return m
	}

	if o.InstallRoot != nil {
		m[KeyInstallRoot] = *o.InstallRoot
	}

	if o.Owner != nil {
		m[KeyOwner] = *o.Owner
	}

	if o.Flat != nil {
		m[KeyFlat] = strconv.FormatBool(*o.Flat)
	}

	if o.ConfirmWithoutPrompt != nil {
		m[KeyConfirm] = strconv.FormatBool(*o.ConfirmWithoutPrompt)
	}

	if o.Verbose != nil {
		m[KeyVerbose] = strconv.FormatBool(*o.Verbose)
	}

	if o.ReleaseID != nil {
		m[KeyReleaseID] = *o.ReleaseID
	}

	return m
}

// FromMap builds a Config from metadata form. Unknown keys are ignored so
// that newer metadata files remain loadable; malformed booleans fall back
// to false rather than failing the whole invocation.
func FromMap(m map[string]string) *Config {
	cfg := &Config{
		InstallRoot: m[KeyInstallRoot],
		Owner:       m[KeyOwner],
		ReleaseID:   m[KeyReleaseID],
	}

	cfg.Flat = parseBool(m[KeyFlat])
	cfg.ConfirmWithoutPrompt = parseBool(m[KeyConfirm])
	cfg.Verbose = parseBool(m[KeyVerbose])

	return cfg
}

// ToMap converts the Config into metadata form for persistence.
// Every key is serialized so the next invocation can reload the full set.
func (c *Config) ToMap() map[string]string {
	return map[string]string{
		KeyInstallRoot: c.InstallRoot,
		KeyOwner:       c.Owner,
		KeyFlat:        strconv.FormatBool(c.Flat),
		KeyConfirm:     strconv.FormatBool(c.ConfirmWithoutPrompt),
		KeyVerbose:     strconv.FormatBool(c.Verbose),
		KeyReleaseID:   c.ReleaseID,
	}
}

// ApplyDefaults fills any values still missing after layering: the install
// root defaults to the payload's base name with its archive extension
// stripped, and the owner defaults to the current user.
func (c *Config) ApplyDefaults(payloadPath string) error {
	if c == nil {
		return errConfigIsNotSet
	}

	if c.InstallRoot == "" {
		c.InstallRoot = DefaultInstallRoot(payloadPath)
	}

	if c.Owner == "" {
		currentUser, err := user.Current()
		if err != nil {
			return fmt.Errorf("current user: %w", err)
		}

		c.Owner = currentUser.Username
	}

	if c.ReleaseID == "" {
		c.ReleaseID = version.Release
	}

	return nil
}

// Validate checks the configuration for required fields.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.InstallRoot == "" {
		return errInstallRootRequired
	}

	return nil
}

// DefaultInstallRoot derives an install root from the payload filename by
// stripping the archive extension: "./app-1.2.tar.gz" becomes "app-1.2" in
// the current directory.
func DefaultInstallRoot(payloadPath string) string {
	if payloadPath == "" {
		return ""
	}

	base := filepath.Base(payloadPath)
	for _, suffix := range payloadSuffixes {
		if strings.HasSuffix(base, suffix) {
			base = strings.TrimSuffix(base, suffix)
			break
		}
	}

	return base
}

// parseBool reads a serialized boolean leniently, treating anything
// unparseable as false.
func parseBool(s string) bool {
	if s == "" {
		return false
	}

	v, err := strconv.ParseBool(s)
	if err != nil {
		return false
	}

	return v
}
