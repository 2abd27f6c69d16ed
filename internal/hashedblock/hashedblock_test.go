package hashedblock

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"io"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, payload []byte, size int) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriterSize(&buf, size)
	_, err := w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		size      int
		blockSize int
	}{
		{name: "empty", size: 0, blockSize: 16},
		{name: "less than block", size: 10, blockSize: 16},
		{name: "exact block", size: 16, blockSize: 16},
		{name: "several blocks", size: 100, blockSize: 16},
		{name: "default block size", size: DefaultBlockSize + 123, blockSize: DefaultBlockSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := randomBytes(t, tt.size)
			encoded := encode(t, payload, tt.blockSize)

			got, err := io.ReadAll(NewReader(bytes.NewReader(encoded), true))
			require.NoError(t, err)
			assert.Equal(t, len(payload), len(got))
			assert.True(t, bytes.Equal(payload, got))
		})
	}
}

func TestLayout(t *testing.T) {
	encoded := encode(t, []byte("abc"), 16)

	// Блок данных + завершающий блок
	require.Len(t, encoded, (40+3)+40)

	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(encoded[0:4]))
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(encoded[36:40]))
	assert.Equal(t, []byte("abc"), encoded[40:43])

	term := encoded[43:]
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(term[0:4]))
	assert.Equal(t, make([]byte, 32), term[4:36])
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(term[36:40]))
}

func TestEmptyStreamIsTerminatorOnly(t *testing.T) {
	encoded := encode(t, nil, 16)
	assert.Len(t, encoded, 40)
}

func TestSmallReadsSpanBlocks(t *testing.T) {
	payload := randomBytes(t, 1000)
	encoded := encode(t, payload, 64)

	got, err := io.ReadAll(iotest.OneByteReader(NewReader(bytes.NewReader(encoded), true)))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestCorruptionOfAnyDataByte(t *testing.T) {
	payload := randomBytes(t, 50)
	encoded := encode(t, payload, 16)

	// Позиции байтов данных во всех блоках
	var dataOffsets []int
	off := 0
	for {
		length := int(binary.LittleEndian.Uint32(encoded[off+36 : off+40]))
		if length == 0 {
			break
		}
		for i := 0; i < length; i++ {
			dataOffsets = append(dataOffsets, off+40+i)
		}
		off += 40 + length
	}
	require.Len(t, dataOffsets, 50)

	for _, pos := range dataOffsets {
		broken := bytes.Clone(encoded)
		broken[pos] ^= 0x01

		_, err := io.ReadAll(NewReader(bytes.NewReader(broken), true))
		require.ErrorIs(t, err, ErrCorrupt, "offset %d", pos)

		// Без проверки хеша данные читаются
		got, err := io.ReadAll(NewReader(bytes.NewReader(broken), false))
		require.NoError(t, err)
		assert.Len(t, got, 50)
	}
}

func TestReaderErrors(t *testing.T) {
	valid := encode(t, []byte("hello world"), 16)

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{
			name: "wrong first index",
			mutate: func(b []byte) []byte {
				binary.LittleEndian.PutUint32(b[0:4], 5)
				return b
			},
		},
		{
			name: "non-zero hash on terminator",
			mutate: func(b []byte) []byte {
				b[len(b)-40+4] = 1
				return b
			},
		},
		{
			name: "negative length",
			mutate: func(b []byte) []byte {
				binary.LittleEndian.PutUint32(b[36:40], 0xFFFFFFFF)
				return b
			},
		},
		{
			name: "truncated data",
			mutate: func(b []byte) []byte {
				return b[:45]
			},
		},
		{
			name: "missing terminator",
			mutate: func(b []byte) []byte {
				return b[:len(b)-40]
			},
		},
		{
			name: "hash mismatch",
			mutate: func(b []byte) []byte {
				b[10] ^= 0xFF
				return b
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broken := tt.mutate(bytes.Clone(valid))
			_, err := io.ReadAll(NewReader(bytes.NewReader(broken), true))
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestReaderHugeDeclaredLength(t *testing.T) {
	b := encode(t, []byte("hello world"), 16)
	binary.LittleEndian.PutUint32(b[36:40], 0x7FFFFFFF)

	r := NewReader(bytes.NewReader(b), true)
	_, err := io.ReadAll(r)
	assert.ErrorIs(t, err, ErrCorrupt)
	// память выделяется по фактически прочитанным данным
	assert.LessOrEqual(t, r.data.Cap(), 2*DefaultBlockSize)
}

func TestWriterCloseIdempotent(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriterSize(&buf, 8)
	_, err := w.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	n := buf.Len()
	require.NoError(t, w.Close())
	assert.Equal(t, n, buf.Len())

	_, err = w.Write([]byte("y"))
	assert.Error(t, err)
}

func BenchmarkWriter(b *testing.B) {
	payload := make([]byte, 4*DefaultBlockSize)
	b.SetBytes(int64(len(payload)))
	for b.Loop() {
		w := NewWriter(io.Discard)
		_, _ = w.Write(payload)
		_ = w.Close()
	}
}
