package protect

import (
	"crypto/sha256"
	"crypto/subtle"
	"sync"

	"github.com/iudanet/keepvault/internal/crypto"
)

// Binary is an immutable byte payload that is optionally kept encrypted in
// memory. The zero value and a nil *Binary are both empty and unprotected.
type Binary struct {
	protector Protector
	data      []byte
	serial    uint64
	length    int
	mu        sync.Mutex
	protected bool
}

// NewBinary copies data into a new Binary.
func NewBinary(protected bool, data []byte) *Binary {
	b := &Binary{protected: protected, length: len(data)}
	if !protected {
		b.data = append([]byte(nil), data...)
		return b
	}

	padded := (len(data) + BlockSize - 1) / BlockSize * BlockSize
	if padded == 0 {
		padded = BlockSize
	}
	b.data = make([]byte, padded)
	copy(b.data, data)

	b.protector = activeProtector()
	b.serial = nextSerial()
	b.protector.Protect(b.data, b.serial)
	return b
}

// NewBinaryWiped is NewBinary followed by wiping the caller's buffer.
func NewBinaryWiped(protected bool, data []byte) *Binary {
	b := NewBinary(protected, data)
	crypto.Wipe(data)
	return b
}

// IsProtected reports whether the payload is encrypted in memory.
func (b *Binary) IsProtected() bool {
	return b != nil && b.protected
}

// Len returns the unpadded payload length.
func (b *Binary) Len() int {
	if b == nil {
		return 0
	}
	return b.length
}

// ReadData returns a plaintext copy. The caller owns the copy and should
// Wipe it when done.
func (b *Binary) ReadData() []byte {
	if b == nil {
		return []byte{}
	}
	if !b.protected {
		return append([]byte(nil), b.data[:b.length]...)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.protector.Unprotect(b.data, b.serial)
	out := make([]byte, b.length)
	copy(out, b.data)
	b.protector.Protect(b.data, b.serial)
	return out
}

// WithProtection returns b itself when the flag already matches, otherwise a
// copy with the requested protection.
func (b *Binary) WithProtection(protected bool) *Binary {
	if b.IsProtected() == protected && b != nil {
		return b
	}
	return NewBinaryWiped(protected, b.ReadData())
}

// Equal compares plaintexts in constant time. The protection flag is ignored.
func (b *Binary) Equal(o *Binary) bool {
	if b.Len() != o.Len() {
		return false
	}
	x, y := b.ReadData(), o.ReadData()
	defer crypto.Wipe(x)
	defer crypto.Wipe(y)
	return subtle.ConstantTimeCompare(x, y) == 1
}

// Sum returns the SHA-256 digest of the plaintext.
func (b *Binary) Sum() [32]byte {
	x := b.ReadData()
	defer crypto.Wipe(x)
	return sha256.Sum256(x)
}
