package artifact

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// Format identifies the encoding of a signature set.
type Format uint8

const (
	// FormatNPY is a NumPy .npy array of uint64.
	FormatNPY Format = iota
	// FormatRoaring is a serialized roaring64 bitmap.
	FormatRoaring
)

func (f Format) String() string {
	switch f {
	case FormatNPY:
		return "npy"
	case FormatRoaring:
		return "roaring"
	default:
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
}

// Compression identifies the frame an encoded set is wrapped in.
type Compression uint8

const (
	// CompressionNone stores the encoding as is.
	CompressionNone Compression = iota
	// CompressionZSTD wraps the encoding in a Zstandard frame.
	CompressionZSTD
	// CompressionLZ4 wraps the encoding in an LZ4 frame.
	CompressionLZ4
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZSTD:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("Compression(%d)", uint8(c))
	}
}

// Layout is the full description of how an artifact is stored.
type Layout struct {
	Format      Format
	Compression Compression
}

// String returns "npy", "npy+zstd", "roaring+lz4" and so on.
func (l Layout) String() string {
	if l.Compression == CompressionNone {
		return l.Format.String()
	}
	return l.Format.String() + "+" + l.Compression.String()
}

// ErrUnknownFormat is returned when an artifact name has no recognized suffix.
var ErrUnknownFormat = errors.New("artifact: unknown format")

// FormatFromName derives the layout from the artifact name's suffixes.
func FormatFromName(name string) (Layout, error) {
	base := strings.ToLower(path.Base(name))

	var l Layout
	switch {
	case strings.HasSuffix(base, ".zst"):
		l.Compression = CompressionZSTD
		base = strings.TrimSuffix(base, ".zst")
	case strings.HasSuffix(base, ".lz4"):
		l.Compression = CompressionLZ4
		base = strings.TrimSuffix(base, ".lz4")
	}

	switch {
	case strings.HasSuffix(base, ".npy"):
		l.Format = FormatNPY
	case strings.HasSuffix(base, ".roaring"):
		l.Format = FormatRoaring
	default:
		return Layout{}, fmt.Errorf("%w: %q (want .npy or .roaring, optionally followed by .zst or .lz4)", ErrUnknownFormat, name)
	}
	return l, nil
}
