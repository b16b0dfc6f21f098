package installer

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bundlekit/bundle-installer/internal/version"
)

// Receipt describes one completed extraction. It is written into the
// install directory so operators can tell which payload produced it.
type Receipt struct {
	// InstallerVersion is the semantic version of the installer binary.
	InstallerVersion string `yaml:"installer_version"`
	// ReleaseID identifies the release directory (empty in flat mode).
	ReleaseID string `yaml:"release_id,omitempty"`
	// Payload is the path of the source archive as given on the command line.
	Payload string `yaml:"payload"`
	// PayloadSHA256 is the hex-encoded checksum of the payload stream.
	PayloadSHA256 string `yaml:"payload_sha256"`
	// CreatedAt is the extraction completion time in UTC.
	CreatedAt time.Time `yaml:"created_at"`
}

const (
	// ReceiptFilename is the receipt file name inside the install directory.
	ReceiptFilename = ".install-receipt.yaml"

	// receiptPermissions matches the payload content: readable, not secret.
	receiptPermissions = 0o644
)

// newReceipt assembles a receipt for the just-extracted payload.
func newReceipt(plan *Plan, payloadPath, payloadSHA256 string, now time.Time) *Receipt {
	releaseID := ""
	if !plan.Flat {
		releaseID = filepath.Base(plan.InstallDir)
	}

	return &Receipt{
		InstallerVersion: version.Short(),
		ReleaseID:        releaseID,
		Payload:          payloadPath,
		PayloadSHA256:    payloadSHA256,
		CreatedAt:        now.UTC(),
	}
}

// write serializes the receipt into the install directory.
func (r *Receipt) write(installDir string) error {
	contents, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}

	path := filepath.Join(installDir, ReceiptFilename)
	if err := os.WriteFile(path, contents, receiptPermissions); err != nil {
		return fmt.Errorf("write receipt: %w", err)
	}

	return nil
}
