package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/twofish"
)

const (
	// CipherKeySize is the size of the body cipher key in bytes.
	CipherKeySize = 32
	// CipherIVSize is the size of the encryption IV stored in the header.
	CipherIVSize = 16

	readChunk = 64 * 1024
)

var (
	// AESCipherUUID identifies AES-256 in CBC mode with PKCS#7 padding.
	AESCipherUUID = uuid.MustParse("31c1f2e6-bf71-4350-be58-05216afc5aff")
	// TwofishCipherUUID identifies Twofish-256 in CBC mode with PKCS#7 padding.
	TwofishCipherUUID = uuid.MustParse("ad68f29f-576f-4bb9-a36a-d47af965346c")
	// ChaCha20CipherUUID identifies the ChaCha20 stream cipher (first 12 IV bytes are the nonce).
	ChaCha20CipherUUID = uuid.MustParse("d6038a2b-8b6f-4cb5-a524-339a31dbb59a")
)

//go:generate moq -out cipher_engine_mock.go . CipherEngine

// CipherEngine wraps a byte stream with encryption or decryption for the
// container body.
type CipherEngine interface {
	// UUID returns the identifier stored in the container header.
	UUID() uuid.UUID
	// Name returns a human readable name.
	Name() string
	// EncryptStream returns a writer that encrypts into w. Close flushes the
	// final block but does not close w.
	EncryptStream(w io.Writer, key, iv []byte) (io.WriteCloser, error)
	// DecryptStream returns a reader that yields the plaintext of r.
	DecryptStream(r io.Reader, key, iv []byte) (io.Reader, error)
}

// CipherPool is a registry of cipher engines keyed by UUID.
type CipherPool struct {
	engines map[uuid.UUID]CipherEngine
	order   []uuid.UUID
	mu      sync.RWMutex
}

// NewCipherPool creates an empty registry.
func NewCipherPool() *CipherPool {
	return &CipherPool{engines: make(map[uuid.UUID]CipherEngine)}
}

// Register adds or replaces an engine.
func (p *CipherPool) Register(e CipherEngine) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.engines[e.UUID()]; !exists {
		p.order = append(p.order, e.UUID())
	}
	p.engines[e.UUID()] = e
}

// Lookup returns the engine registered under id.
func (p *CipherPool) Lookup(id uuid.UUID) (CipherEngine, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	e, ok := p.engines[id]
	return e, ok
}

// Engines returns the registered engines in registration order.
func (p *CipherPool) Engines() []CipherEngine {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]CipherEngine, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.engines[id])
	}
	return out
}

var defaultCiphers = func() *CipherPool {
	p := NewCipherPool()
	p.Register(NewBlockCipherEngine(AESCipherUUID, "AES-256", aes.NewCipher))
	p.Register(NewBlockCipherEngine(TwofishCipherUUID, "Twofish-256", func(key []byte) (cipher.Block, error) {
		return twofish.NewCipher(key)
	}))
	p.Register(chaChaEngine{})
	return p
}()

// Ciphers returns the process-wide cipher registry with the built-in engines.
func Ciphers() *CipherPool {
	return defaultCiphers
}

// RegisterCipher adds an engine to the process-wide registry.
func RegisterCipher(e CipherEngine) {
	defaultCiphers.Register(e)
}

// LookupCipher finds an engine in the process-wide registry.
func LookupCipher(id uuid.UUID) (CipherEngine, error) {
	e, ok := defaultCiphers.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCipher, id)
	}
	return e, nil
}

// BlockCipherEngine runs a 128-bit block cipher in CBC mode with PKCS#7 padding.
type BlockCipherEngine struct {
	newBlock func(key []byte) (cipher.Block, error)
	name     string
	id       uuid.UUID
}

// NewBlockCipherEngine creates a CBC engine around a block cipher constructor.
func NewBlockCipherEngine(id uuid.UUID, name string, newBlock func(key []byte) (cipher.Block, error)) *BlockCipherEngine {
	return &BlockCipherEngine{id: id, name: name, newBlock: newBlock}
}

// UUID implements CipherEngine.
func (e *BlockCipherEngine) UUID() uuid.UUID { return e.id }

// Name implements CipherEngine.
func (e *BlockCipherEngine) Name() string { return e.name }

func (e *BlockCipherEngine) block(key, iv []byte) (cipher.Block, error) {
	if len(key) != CipherKeySize {
		return nil, fmt.Errorf("%w: %s needs %d bytes, got %d", ErrInvalidKeyLength, e.name, CipherKeySize, len(key))
	}
	b, err := e.newBlock(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s cipher: %w", e.name, err)
	}
	if len(iv) != b.BlockSize() {
		return nil, fmt.Errorf("%w: %s needs %d bytes, got %d", ErrInvalidIVLength, e.name, b.BlockSize(), len(iv))
	}
	return b, nil
}

// EncryptStream implements CipherEngine.
func (e *BlockCipherEngine) EncryptStream(w io.Writer, key, iv []byte) (io.WriteCloser, error) {
	b, err := e.block(key, iv)
	if err != nil {
		return nil, err
	}
	return &cbcWriter{w: w, mode: cipher.NewCBCEncrypter(b, iv), bs: b.BlockSize()}, nil
}

// DecryptStream implements CipherEngine.
func (e *BlockCipherEngine) DecryptStream(r io.Reader, key, iv []byte) (io.Reader, error) {
	b, err := e.block(key, iv)
	if err != nil {
		return nil, err
	}
	return &cbcReader{src: r, mode: cipher.NewCBCDecrypter(b, iv), bs: b.BlockSize()}, nil
}

type cbcWriter struct {
	w      io.Writer
	mode   cipher.BlockMode
	buf    []byte
	bs     int
	closed bool
}

func (c *cbcWriter) Write(p []byte) (int, error) {
	if c.closed {
		return 0, io.ErrClosedPipe
	}
	c.buf = append(c.buf, p...)
	full := len(c.buf) - len(c.buf)%c.bs
	if full == 0 {
		return len(p), nil
	}
	out := make([]byte, full)
	c.mode.CryptBlocks(out, c.buf[:full])
	rest := copy(c.buf, c.buf[full:])
	c.buf = c.buf[:rest]
	if _, err := c.w.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close pads the final block and flushes it.
func (c *cbcWriter) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	last := pkcs7Pad(c.buf, c.bs)
	c.mode.CryptBlocks(last, last)
	Wipe(c.buf)
	_, err := c.w.Write(last)
	return err
}

type cbcReader struct {
	src     io.Reader
	err     error
	mode    cipher.BlockMode
	carry   []byte
	pending []byte
	out     []byte
	bs      int
	done    bool
}

func (c *cbcReader) Read(p []byte) (int, error) {
	for len(c.out) == 0 {
		if c.err != nil {
			return 0, c.err
		}
		if c.done {
			return 0, io.EOF
		}
		c.err = c.fill()
	}
	n := copy(p, c.out)
	c.out = c.out[n:]
	return n, nil
}

func (c *cbcReader) fill() error {
	buf := make([]byte, readChunk)
	n, err := io.ReadFull(c.src, buf)
	final := err == io.EOF || err == io.ErrUnexpectedEOF
	if err != nil && !final {
		return err
	}

	data := make([]byte, 0, len(c.carry)+n)
	data = append(data, c.carry...)
	data = append(data, buf[:n]...)

	full := len(data) - len(data)%c.bs
	if final && full != len(data) {
		return ErrTruncated
	}
	c.mode.CryptBlocks(data[:full], data[:full])
	c.carry = append([]byte(nil), data[full:]...)

	plain := make([]byte, 0, len(c.pending)+full)
	plain = append(plain, c.pending...)
	plain = append(plain, data[:full]...)

	if final {
		// пустое тело без единого блока
		if len(plain) == 0 {
			return ErrTruncated
		}
		unpadded, err := pkcs7Unpad(plain, c.bs)
		if err != nil {
			return err
		}
		c.out = unpadded
		c.pending = nil
		c.done = true
		return nil
	}

	// последний блок придерживаем до EOF, в нём может быть padding
	if len(plain) >= c.bs {
		c.out = plain[:len(plain)-c.bs]
		c.pending = append([]byte(nil), plain[len(plain)-c.bs:]...)
	} else {
		c.pending = plain
	}
	return nil
}

func pkcs7Pad(data []byte, bs int) []byte {
	pad := bs - len(data)%bs
	out := make([]byte, len(data)+pad)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(pad)
	}
	return out
}

func pkcs7Unpad(data []byte, bs int) ([]byte, error) {
	if len(data) == 0 || len(data)%bs != 0 {
		return nil, ErrInvalidPadding
	}
	pad := int(data[len(data)-1])
	if pad == 0 || pad > bs {
		return nil, ErrInvalidPadding
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return nil, ErrInvalidPadding
		}
	}
	return data[:len(data)-pad], nil
}

type chaChaEngine struct{}

func (chaChaEngine) UUID() uuid.UUID { return ChaCha20CipherUUID }

func (chaChaEngine) Name() string { return "ChaCha20" }

func (chaChaEngine) stream(key, iv []byte) (*chacha20.Cipher, error) {
	if len(key) != chacha20.KeySize {
		return nil, fmt.Errorf("%w: ChaCha20 needs %d bytes, got %d", ErrInvalidKeyLength, chacha20.KeySize, len(key))
	}
	if len(iv) < chacha20.NonceSize {
		return nil, fmt.Errorf("%w: ChaCha20 needs at least %d bytes, got %d", ErrInvalidIVLength, chacha20.NonceSize, len(iv))
	}
	return chacha20.NewUnauthenticatedCipher(key, iv[:chacha20.NonceSize])
}

func (e chaChaEngine) EncryptStream(w io.Writer, key, iv []byte) (io.WriteCloser, error) {
	s, err := e.stream(key, iv)
	if err != nil {
		return nil, err
	}
	return nopWriteCloser{cipher.StreamWriter{S: s, W: w}}, nil
}

func (e chaChaEngine) DecryptStream(r io.Reader, key, iv []byte) (io.Reader, error) {
	s, err := e.stream(key, iv)
	if err != nil {
		return nil, err
	}
	return cipher.StreamReader{S: s, R: r}, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
