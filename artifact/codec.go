package artifact

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/flowsig/sigset"
)

var (
	// ErrNotFound is returned when the artifact does not exist.
	ErrNotFound = errors.New("artifact: not found")

	// ErrCorrupt is returned when an artifact cannot be decoded.
	ErrCorrupt = errors.New("artifact: corrupt signature set")
)

// Encode writes set to w in layout l. NPY output is sorted ascending.
func Encode(w io.Writer, set sigset.Set, l Layout) error {
	cw, err := compressWriter(w, l.Compression)
	if err != nil {
		return err
	}

	switch l.Format {
	case FormatNPY:
		err = EncodeNPY(cw, set.Sorted())
	case FormatRoaring:
		_, err = set.Bitmap().WriteTo(cw)
	default:
		err = fmt.Errorf("artifact: unsupported format %s", l.Format)
	}
	if err != nil {
		_ = cw.Close()
		return err
	}
	return cw.Close()
}

// Decode parses an artifact in layout l.
func Decode(data []byte, l Layout) (sigset.Set, error) {
	payload, err := decompress(data, l.Compression)
	if err != nil {
		return sigset.Set{}, err
	}

	switch l.Format {
	case FormatNPY:
		sigs, err := DecodeNPY(payload)
		if err != nil {
			return sigset.Set{}, err
		}
		return sigset.Of(sigs...), nil
	case FormatRoaring:
		if err := checkRoaringHeader(payload); err != nil {
			return sigset.Set{}, err
		}
		bm := roaring64.New()
		if _, err := bm.ReadFrom(bytes.NewReader(payload)); err != nil {
			return sigset.Set{}, fmt.Errorf("%w: roaring: %v", ErrCorrupt, err)
		}
		return sigset.FromBitmap(bm), nil
	default:
		return sigset.Set{}, fmt.Errorf("artifact: unsupported format %s", l.Format)
	}
}

const (
	roaringSerialCookieNoRun = 12346
	roaringSerialCookie      = 12347
	// minRoaringEntry is the smallest serialized 64-bit entry: a 32-bit key
	// followed by an empty 32-bit bitmap (cookie and container count).
	minRoaringEntry = 4 + 8
)

// checkRoaringHeader rejects payloads whose container count cannot fit in
// the payload. roaring64 allocates the container table up front from that
// count, so an unchecked garbage prefix would exhaust memory.
func checkRoaringHeader(payload []byte) error {
	if len(payload) < 8 {
		return fmt.Errorf("%w: roaring: payload is %d bytes", ErrCorrupt, len(payload))
	}
	magic := binary.LittleEndian.Uint16(payload)
	if magic == roaringSerialCookieNoRun || magic == roaringSerialCookie {
		// 32-bit serialization, accepted by roaring64 as is.
		return nil
	}
	n := binary.LittleEndian.Uint64(payload)
	if n > uint64(len(payload)-8)/minRoaringEntry {
		return fmt.Errorf("%w: roaring: %d containers in %d bytes", ErrCorrupt, n, len(payload))
	}
	return nil
}
