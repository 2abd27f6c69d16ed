// Package hashedblock implements the integrity framing placed between the
// body cipher and the compression layer. Each block is written as
//
//	index  uint32 LE
//	hash   [32]byte  SHA-256 of data
//	length uint32 LE
//	data   [length]byte
//
// and the stream ends with a zero length block carrying an all-zero hash.
package hashedblock

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// DefaultBlockSize is the payload size of every block except the last one.
const DefaultBlockSize = 1024 * 1024

const hashSize = sha256.Size

// ErrCorrupt indicates a broken block: wrong index, wrong hash, a negative
// length or a non-zero hash on the terminator.
var ErrCorrupt = errors.New("hashed block stream is corrupt")

// Writer frames everything written to it into hashed blocks.
type Writer struct {
	w       io.Writer
	buf     []byte
	index   uint32
	closed  bool
	written bool
}

// NewWriter returns a writer with DefaultBlockSize blocks.
func NewWriter(w io.Writer) *Writer {
	return NewWriterSize(w, DefaultBlockSize)
}

// NewWriterSize returns a writer that emits blocks of size bytes.
func NewWriterSize(w io.Writer, size int) *Writer {
	if size <= 0 {
		size = DefaultBlockSize
	}
	return &Writer{w: w, buf: make([]byte, 0, size)}
}

// Write buffers p and flushes every full block.
func (hw *Writer) Write(p []byte) (int, error) {
	if hw.closed {
		return 0, fmt.Errorf("write to closed hashed block writer")
	}
	n := 0
	for len(p) > 0 {
		free := cap(hw.buf) - len(hw.buf)
		chunk := min(free, len(p))
		hw.buf = append(hw.buf, p[:chunk]...)
		p = p[chunk:]
		n += chunk

		if len(hw.buf) == cap(hw.buf) {
			if err := hw.flush(); err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

func (hw *Writer) flush() error {
	var head [4 + hashSize + 4]byte
	binary.LittleEndian.PutUint32(head[0:4], hw.index)
	if len(hw.buf) > 0 {
		sum := sha256.Sum256(hw.buf)
		copy(head[4 : 4+hashSize], sum[:])
	}
	binary.LittleEndian.PutUint32(head[4+hashSize:], uint32(len(hw.buf)))

	if _, err := hw.w.Write(head[:]); err != nil {
		return fmt.Errorf("failed to write block header: %w", err)
	}
	if len(hw.buf) > 0 {
		if _, err := hw.w.Write(hw.buf); err != nil {
			return fmt.Errorf("failed to write block data: %w", err)
		}
	}

	clear(hw.buf)
	hw.buf = hw.buf[:0]
	hw.index++
	return nil
}

// Close flushes the pending block and writes the terminator.
// The underlying writer is not closed.
func (hw *Writer) Close() error {
	if hw.closed {
		return nil
	}
	hw.closed = true

	if len(hw.buf) > 0 {
		if err := hw.flush(); err != nil {
			return err
		}
	}
	// Завершающий блок нулевой длины
	return hw.flush()
}

// Reader reassembles the payload from hashed blocks.
type Reader struct {
	r      *bufio.Reader
	verify bool
	index  uint32
	data   bytes.Buffer
	block  []byte
	pos    int
	eof    bool
	err    error
}

// NewReader returns a reader. When verify is false block hashes are not
// checked, which is used by repair mode.
func NewReader(r io.Reader, verify bool) *Reader {
	return &Reader{r: bufio.NewReader(r), verify: verify}
}

// Read implements io.Reader and spans block boundaries transparently.
func (hr *Reader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if hr.pos == len(hr.block) {
			if hr.eof {
				break
			}
			if hr.err != nil {
				return n, hr.err
			}
			if err := hr.next(); err != nil {
				hr.err = err
				if n > 0 {
					return n, nil
				}
				return 0, err
			}
			continue
		}
		c := copy(p[n:], hr.block[hr.pos:])
		hr.pos += c
		n += c
	}
	if n == 0 && hr.eof && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (hr *Reader) next() error {
	var head [4 + hashSize + 4]byte
	if _, err := io.ReadFull(hr.r, head[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: truncated block header", ErrCorrupt)
		}
		return fmt.Errorf("failed to read block header: %w", err)
	}

	index := binary.LittleEndian.Uint32(head[0:4])
	if index != hr.index {
		return fmt.Errorf("%w: block index %d, expected %d", ErrCorrupt, index, hr.index)
	}
	hr.index++

	hash := head[4 : 4+hashSize]
	length := int32(binary.LittleEndian.Uint32(head[4+hashSize:]))
	if length < 0 {
		return fmt.Errorf("%w: negative block length", ErrCorrupt)
	}

	if length == 0 {
		for _, b := range hash {
			if b != 0 {
				return fmt.Errorf("%w: non-zero hash on final block", ErrCorrupt)
			}
		}
		hr.eof = true
		hr.block = hr.block[:0]
		hr.pos = 0
		return nil
	}

	// буфер растет по мере чтения, заявленная длина не выделяется заранее
	hr.data.Reset()
	hr.data.Grow(min(int(length), DefaultBlockSize))
	hr.block = hr.block[:0]
	hr.pos = 0
	if _, err := io.CopyN(&hr.data, hr.r, int64(length)); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: truncated block %d", ErrCorrupt, index)
		}
		return fmt.Errorf("failed to read block data: %w", err)
	}
	hr.block = hr.data.Bytes()

	if hr.verify {
		sum := sha256.Sum256(hr.block)
		if sum != [hashSize]byte(hash) {
			hr.block = hr.block[:0]
			return fmt.Errorf("%w: hash mismatch in block %d", ErrCorrupt, index)
		}
	}
	return nil
}
