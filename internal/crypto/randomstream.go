package crypto

import (
	"crypto/rc4"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/salsa20/salsa"
)

// StreamID selects the keystream algorithm used to obfuscate protected
// values inside the XML payload.
type StreamID uint32

const (
	StreamNone           StreamID = 0 // no obfuscation
	StreamArcFourVariant StreamID = 1 // legacy, variable key length
	StreamSalsa20        StreamID = 2 // default for new files
	StreamChaCha20       StreamID = 3
)

// String returns the algorithm name.
func (id StreamID) String() string {
	switch id {
	case StreamNone:
		return "None"
	case StreamArcFourVariant:
		return "ArcFourVariant"
	case StreamSalsa20:
		return "Salsa20"
	case StreamChaCha20:
		return "ChaCha20"
	default:
		return fmt.Sprintf("StreamID(%d)", uint32(id))
	}
}

const (
	arcFourDiscard = 512
	salsaBlockSize = 64
)

var salsa20IV = [8]byte{0xE8, 0x30, 0x09, 0x4B, 0x97, 0x20, 0x5D, 0x2A}

// RandomStream is a reproducible keystream. Reading n then m bytes yields the
// same bytes as reading n+m at once. Not safe for concurrent use.
type RandomStream struct {
	rc4     *rc4.Cipher
	chacha  *chacha20.Cipher
	buf     []byte
	counter [16]byte
	key     [32]byte
	id      StreamID
}

// NewRandomStream seeds a keystream generator with key.
func NewRandomStream(id StreamID, key []byte) (*RandomStream, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: random stream key is empty", ErrInvalidKeyLength)
	}
	s := &RandomStream{id: id}

	switch id {
	case StreamArcFourVariant:
		c, err := rc4.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("failed to create arcfour stream: %w", err)
		}
		s.rc4 = c
		// первые 512 байт выбрасываются
		var discard [arcFourDiscard]byte
		s.rc4.XORKeyStream(discard[:], discard[:])
	case StreamSalsa20:
		s.key = sha256.Sum256(key)
		copy(s.counter[:8], salsa20IV[:])
	case StreamChaCha20:
		h := sha512.Sum512(key)
		c, err := chacha20.NewUnauthenticatedCipher(h[:chacha20.KeySize], h[chacha20.KeySize : chacha20.KeySize+chacha20.NonceSize])
		Wipe(h[:])
		if err != nil {
			return nil, fmt.Errorf("failed to create chacha20 stream: %w", err)
		}
		s.chacha = c
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownStream, uint32(id))
	}
	return s, nil
}

// ID returns the algorithm of the stream.
func (s *RandomStream) ID() StreamID {
	return s.id
}

// Next returns the next n keystream bytes.
func (s *RandomStream) Next(n int) []byte {
	out := make([]byte, n)
	s.XOR(out)
	return out
}

// XOR combines data in place with the next len(data) keystream bytes.
func (s *RandomStream) XOR(data []byte) {
	switch s.id {
	case StreamArcFourVariant:
		s.rc4.XORKeyStream(data, data)
	case StreamChaCha20:
		s.chacha.XORKeyStream(data, data)
	case StreamSalsa20:
		s.xorSalsa(data)
	}
}

func (s *RandomStream) xorSalsa(data []byte) {
	for i := range data {
		if len(s.buf) == 0 {
			s.nextSalsaBlock()
		}
		data[i] ^= s.buf[0]
		s.buf = s.buf[1:]
	}
}

func (s *RandomStream) nextSalsaBlock() {
	block := make([]byte, salsaBlockSize)
	salsa.XORKeyStream(block, block, &s.counter, &s.key)
	ctr := binary.LittleEndian.Uint64(s.counter[8:])
	binary.LittleEndian.PutUint64(s.counter[8:], ctr+1)
	s.buf = block
}
