package artifact

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// numpySave3 is the output of numpy.save(f, numpy.array([1, 2, 3], dtype='<u8')).
func numpySave3() []byte {
	var b []byte
	b = append(b, "\x93NUMPY\x01\x00\x76\x00"...)
	b = append(b, "{'descr': '<u8', 'fortran_order': False, 'shape': (3,), }"...)
	b = append(b, strings.Repeat(" ", 60)...)
	b = append(b, '\n')
	b = append(b,
		1, 0, 0, 0, 0, 0, 0, 0,
		2, 0, 0, 0, 0, 0, 0, 0,
		3, 0, 0, 0, 0, 0, 0, 0,
	)
	return b
}

func TestEncodeNPY_MatchesNumpy(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeNPY(&buf, []uint64{1, 2, 3}))
	assert.Equal(t, numpySave3(), buf.Bytes())
}

func TestNPYHeader_Alignment(t *testing.T) {
	for _, n := range []int{0, 1, 9, 10, 12345, 1 << 40} {
		h := npyHeader(n)
		assert.Zero(t, len(h)%npyAlign, "n=%d", n)
		assert.Equal(t, byte('\n'), h[len(h)-1])
		assert.Equal(t, len(h)-10, int(binary.LittleEndian.Uint16(h[8:10])))
	}
}

func TestDecodeNPY(t *testing.T) {
	t.Run("numpy output", func(t *testing.T) {
		got, err := DecodeNPY(numpySave3())
		require.NoError(t, err)
		assert.Equal(t, []uint64{1, 2, 3}, got)
	})

	t.Run("empty array", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, EncodeNPY(&buf, nil))
		got, err := DecodeNPY(buf.Bytes())
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("large values", func(t *testing.T) {
		in := []uint64{0, 1 << 63, ^uint64(0)}
		var buf bytes.Buffer
		require.NoError(t, EncodeNPY(&buf, in))
		got, err := DecodeNPY(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, in, got)
	})

	t.Run("version 2 big endian", func(t *testing.T) {
		header := "{'descr': '>u8', 'fortran_order': False, 'shape': (2,), }\n"
		var b []byte
		b = append(b, "\x93NUMPY\x02\x00"...)
		b = binary.LittleEndian.AppendUint32(b, uint32(len(header)))
		b = append(b, header...)
		b = binary.BigEndian.AppendUint64(b, 7)
		b = binary.BigEndian.AppendUint64(b, 1<<40)

		got, err := DecodeNPY(b)
		require.NoError(t, err)
		assert.Equal(t, []uint64{7, 1 << 40}, got)
	})
}

func TestDecodeNPY_Corrupt(t *testing.T) {
	good := numpySave3()

	replace := func(old, new string) []byte {
		return bytes.Replace(append([]byte(nil), good...), []byte(old), []byte(new), 1)
	}

	tests := map[string][]byte{
		"empty":       nil,
		"bad magic":   append([]byte("\x93NUMPX"), good[6:]...),
		"version 4":   replace("\x93NUMPY\x01", "\x93NUMPY\x04"),
		"float dtype": replace("'<u8'", "'<f8'"),
		"two dims":    replace("(3,), ", "(3,1),"),
		"truncated":   good[:len(good)-1],
		"trailing":    append(append([]byte(nil), good...), 0),
		"no shape":    replace("'shape'", "'shapx'"),
		"huge shape":  npyHeader(1 << 61),
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeNPY(data)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}
