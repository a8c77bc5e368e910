package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/flowsig/artifact"
)

// FormatVersion is the manifest schema version.
const FormatVersion = 1

var (
	// ErrNoManifest is returned by Latest before the first commit.
	ErrNoManifest = errors.New("registry: no manifest committed")

	// ErrConcurrentModification is returned when another writer committed
	// the same version first.
	ErrConcurrentModification = errors.New("registry: concurrent modification detected")

	// ErrInvalidManifest is returned for manifests that fail validation.
	ErrInvalidManifest = errors.New("registry: invalid manifest")
)

// Manifest describes one committed signature set.
type Manifest struct {
	FormatVersion int       `json:"format_version"`
	Version       uint64    `json:"version"`
	Artifact      string    `json:"artifact"`
	Base          float64   `json:"base"`
	Features      int       `json:"features"`
	Signatures    int       `json:"signatures"`
	Format        string    `json:"format"`
	Checksum      uint32    `json:"crc32c"`
	CreatedAt     time.Time `json:"created_at"`
}

// FromInfo builds an uncommitted manifest for a saved artifact.
func FromInfo(info *artifact.Info, base float64, features int) *Manifest {
	return &Manifest{
		FormatVersion: FormatVersion,
		Artifact:      info.Name,
		Base:          base,
		Features:      features,
		Signatures:    info.Signatures,
		Format:        info.Layout.String(),
		Checksum:      info.Checksum,
	}
}

// Validate checks the fields a reader relies on.
func (m *Manifest) Validate() error {
	switch {
	case m.FormatVersion != FormatVersion:
		return fmt.Errorf("%w: unsupported format version %d (expected %d)", ErrInvalidManifest, m.FormatVersion, FormatVersion)
	case m.Artifact == "":
		return fmt.Errorf("%w: artifact is empty", ErrInvalidManifest)
	case !(m.Base > 1):
		return fmt.Errorf("%w: base %v must be greater than 1", ErrInvalidManifest, m.Base)
	case m.Features < 0 || m.Signatures < 0:
		return fmt.Errorf("%w: negative count", ErrInvalidManifest)
	}
	return nil
}

// BaseMismatchError is returned by CheckBase.
type BaseMismatchError struct {
	Artifact string
	Recorded float64
	Given    float64
}

func (e *BaseMismatchError) Error() string {
	return fmt.Sprintf("registry: %s was trained with base %v, got %v", e.Artifact, e.Recorded, e.Given)
}

// CheckBase reports whether base equals the base recorded at training time.
func (m *Manifest) CheckBase(base float64) error {
	if m.Base != base {
		return &BaseMismatchError{Artifact: m.Artifact, Recorded: m.Base, Given: base}
	}
	return nil
}

// ChecksumError is returned by CheckArtifact.
type ChecksumError struct {
	Artifact string
	Want     uint32
	Got      uint32
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("registry: %s checksum mismatch: manifest records %08x, artifact is %08x", e.Artifact, e.Want, e.Got)
}

func (e *ChecksumError) Unwrap() error { return artifact.ErrCorrupt }

// CheckArtifact compares a loaded artifact against the manifest.
func (m *Manifest) CheckArtifact(info *artifact.Info) error {
	if info.Checksum != m.Checksum {
		return &ChecksumError{Artifact: m.Artifact, Want: m.Checksum, Got: info.Checksum}
	}
	return nil
}

// Registry stores numbered manifests.
type Registry interface {
	// Commit assigns the next version and creation time to m and stores it.
	Commit(ctx context.Context, m *Manifest) (*Manifest, error)
	// Latest returns the newest committed manifest or ErrNoManifest.
	Latest(ctx context.Context) (*Manifest, error)
	// Get returns the manifest of a specific version.
	Get(ctx context.Context, version uint64) (*Manifest, error)
}

// Prepare returns a validated copy of m stamped with version and now.
// Registry implementations call it from Commit.
func Prepare(m *Manifest, version uint64, now time.Time) (*Manifest, error) {
	c := *m
	c.FormatVersion = FormatVersion
	c.Version = version
	c.CreatedAt = now.UTC()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
