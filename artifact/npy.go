package artifact

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

const (
	npyMagic = "\x93NUMPY"
	// npyAlign is the alignment of the data section.
	npyAlign = 64
	// npyGrowthDigits is the room numpy reserves for the shape's leading
	// axis so the header can be rewritten in place.
	npyGrowthDigits = 21
)

// npyHeader returns the preamble and header dict for a uint64 array of n elements.
func npyHeader(n int) []byte {
	dim := strconv.Itoa(n)
	dict := "{'descr': '<u8', 'fortran_order': False, 'shape': (" + dim + ",), }"
	dict += strings.Repeat(" ", max(npyGrowthDigits-len(dim), 0))

	// The header ends in '\n' and is space padded so the data section
	// starts on a 64 byte boundary.
	hlen := len(dict) + 1
	pad := npyAlign - (len(npyMagic)+2+2+hlen)%npyAlign

	buf := make([]byte, 0, len(npyMagic)+4+hlen+pad)
	buf = append(buf, npyMagic...)
	buf = append(buf, 1, 0)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(hlen+pad))
	buf = append(buf, dict...)
	buf = append(buf, bytes.Repeat([]byte{' '}, pad)...)
	buf = append(buf, '\n')
	return buf
}

// EncodeNPY writes sigs as a NumPy v1.0 uint64 array.
// sigs must already be in the desired order (ascending for signature sets).
func EncodeNPY(w io.Writer, sigs []uint64) error {
	if _, err := w.Write(npyHeader(len(sigs))); err != nil {
		return err
	}

	const chunk = 4096
	buf := make([]byte, 0, chunk*8)
	for len(sigs) > 0 {
		n := min(len(sigs), chunk)
		buf = buf[:0]
		for _, s := range sigs[:n] {
			buf = binary.LittleEndian.AppendUint64(buf, s)
		}
		if _, err := w.Write(buf); err != nil {
			return err
		}
		sigs = sigs[n:]
	}
	return nil
}

var (
	npyDescrRe   = regexp.MustCompile(`'descr'\s*:\s*'([^']*)'`)
	npyFortranRe = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	npyShapeRe   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// DecodeNPY parses a NumPy file holding a one-dimensional 8-byte unsigned
// integer array. Format versions 1.0, 2.0 and 3.0 are accepted, as are both
// byte orders.
func DecodeNPY(data []byte) ([]uint64, error) {
	if len(data) < len(npyMagic)+4 || string(data[:len(npyMagic)]) != npyMagic {
		return nil, fmt.Errorf("%w: npy: bad magic", ErrCorrupt)
	}

	major := data[len(npyMagic)]
	var hlen, off int
	switch major {
	case 1:
		hlen = int(binary.LittleEndian.Uint16(data[8:10]))
		off = 10
	case 2, 3:
		if len(data) < 12 {
			return nil, fmt.Errorf("%w: npy: truncated preamble", ErrCorrupt)
		}
		hlen = int(binary.LittleEndian.Uint32(data[8:12]))
		off = 12
	default:
		return nil, fmt.Errorf("%w: npy: unsupported version %d.%d", ErrCorrupt, major, data[len(npyMagic)+1])
	}
	if hlen < 0 || off+hlen > len(data) {
		return nil, fmt.Errorf("%w: npy: header length %d exceeds file size", ErrCorrupt, hlen)
	}
	header := string(data[off : off+hlen])

	m := npyDescrRe.FindStringSubmatch(header)
	if m == nil {
		return nil, fmt.Errorf("%w: npy: missing descr", ErrCorrupt)
	}
	var order binary.ByteOrder
	switch m[1] {
	case "<u8":
		order = binary.LittleEndian
	case ">u8":
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: npy: dtype %q, want uint64", ErrCorrupt, m[1])
	}

	if m := npyFortranRe.FindStringSubmatch(header); m == nil {
		return nil, fmt.Errorf("%w: npy: missing fortran_order", ErrCorrupt)
	}

	m = npyShapeRe.FindStringSubmatch(header)
	if m == nil {
		return nil, fmt.Errorf("%w: npy: missing shape", ErrCorrupt)
	}
	var dims []string
	for _, d := range strings.Split(m[1], ",") {
		if d = strings.TrimSpace(d); d != "" {
			dims = append(dims, d)
		}
	}
	if len(dims) != 1 {
		return nil, fmt.Errorf("%w: npy: shape (%s) is not one-dimensional", ErrCorrupt, m[1])
	}
	n, err := strconv.Atoi(dims[0])
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%w: npy: bad shape %q", ErrCorrupt, dims[0])
	}

	body := data[off+hlen:]
	if len(body)%8 != 0 || n != len(body)/8 {
		return nil, fmt.Errorf("%w: npy: data section is %d bytes, shape says %d signatures", ErrCorrupt, len(body), n)
	}

	out := make([]uint64, n)
	for i := range out {
		out[i] = order.Uint64(body[i*8:])
	}
	return out, nil
}
