package protect

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"golang.org/x/crypto/salsa20"

	"github.com/iudanet/keepvault/internal/crypto"
)

// BlockSize is the padding granularity of protected payloads.
const BlockSize = 16

//go:generate moq -out protector_mock.go . Protector

// Protector encrypts and decrypts protected payloads in place. The serial is
// unique per Binary instance and must be used to diversify the keystream.
type Protector interface {
	Protect(buf []byte, serial uint64)
	Unprotect(buf []byte, serial uint64)
}

// salsaProtector is the built-in Protector keyed by a process-lifetime key.
type salsaProtector struct {
	once sync.Once
	key  [32]byte
}

func (p *salsaProtector) init() {
	p.once.Do(func() {
		key, err := crypto.RandomBytes(len(p.key))
		if err != nil {
			panic("protect: cannot generate process key: " + err.Error())
		}
		copy(p.key[:], key)
		crypto.Wipe(key)
	})
}

func (p *salsaProtector) xor(buf []byte, serial uint64) {
	p.init()
	var nonce [8]byte
	binary.LittleEndian.PutUint64(nonce[:], serial)
	salsa20.XORKeyStream(buf, buf, nonce[:], &p.key)
}

func (p *salsaProtector) Protect(buf []byte, serial uint64)   { p.xor(buf, serial) }
func (p *salsaProtector) Unprotect(buf []byte, serial uint64) { p.xor(buf, serial) }

var (
	defaultProtector = &salsaProtector{}

	protectorMu sync.RWMutex
	current     Protector = defaultProtector

	serials atomic.Uint64
)

// SetProtector replaces the Protector used by instances created afterwards.
// Existing instances keep the Protector they were created with. Passing nil
// restores the built-in one.
func SetProtector(p Protector) {
	protectorMu.Lock()
	defer protectorMu.Unlock()

	if p == nil {
		p = defaultProtector
	}
	current = p
}

func activeProtector() Protector {
	protectorMu.RLock()
	defer protectorMu.RUnlock()

	return current
}

func nextSerial() uint64 {
	return serials.Add(1)
}
