package crypto

import (
	"crypto/aes"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
)

const (
	// SeedSize is the size of master and transform seeds.
	SeedSize = 32
	// KeySize is the size of derived keys.
	KeySize = 32

	// DefaultTransformRounds is the AES-KDF round count for new databases.
	DefaultTransformRounds uint64 = 6000

	benchmarkBatch = 1024
)

// Параметры Argon2id по умолчанию
const (
	// Argon2Time - количество итераций (time cost)
	Argon2Time = 1
	// Argon2Memory - объем памяти в KB (64MB = 64*1024 KB)
	Argon2Memory = 64 * 1024
	// Argon2Threads - количество параллельных потоков
	Argon2Threads = 4
)

var (
	// AESKDFUUID identifies the AES round transform.
	AESKDFUUID = uuid.MustParse("c9d9f39a-628a-4460-bf74-0d08c18a4fea")
	// Argon2KDFUUID identifies Argon2id.
	Argon2KDFUUID = uuid.MustParse("9e298b19-56db-4773-b23d-fc3ec6f0a1e6")
)

// KDFParameters describe how the raw composite key is stretched.
type KDFParameters struct {
	Seed        []byte
	Rounds      uint64
	MemoryKiB   uint32
	UUID        uuid.UUID
	Parallelism uint8
}

// DefaultKDFParameters returns AES-KDF with the default round count and no seed.
func DefaultKDFParameters() KDFParameters {
	return KDFParameters{UUID: AESKDFUUID, Rounds: DefaultTransformRounds}
}

// Argon2KDFParameters returns Argon2id parameters with the default cost.
func Argon2KDFParameters() KDFParameters {
	return KDFParameters{
		UUID:        Argon2KDFUUID,
		Rounds:      Argon2Time,
		MemoryKiB:   Argon2Memory,
		Parallelism: Argon2Threads,
	}
}

// IsAES reports whether the parameters select the AES round transform.
// A zero UUID is treated as AES-KDF.
func (p KDFParameters) IsAES() bool {
	return p.UUID == uuid.Nil || p.UUID == AESKDFUUID
}

// Transform stretches raw with the configured function.
func (p KDFParameters) Transform(raw [KeySize]byte) ([KeySize]byte, error) {
	switch {
	case p.IsAES():
		return TransformKey(raw, p.Seed, p.Rounds)
	case p.UUID == Argon2KDFUUID:
		return argon2Transform(raw, p)
	default:
		return [KeySize]byte{}, fmt.Errorf("%w: %s", ErrUnknownKDF, p.UUID)
	}
}

// DeriveKey is the composite key derivation: SHA-256 over the concatenated
// source payloads, then rounds of AES over both halves keyed by seed, then
// SHA-256 again.
func DeriveKey(sources [][]byte, seed []byte, rounds uint64) ([KeySize]byte, error) {
	raw, err := RawKey(sources)
	if err != nil {
		return [KeySize]byte{}, err
	}
	defer Wipe(raw[:])
	return TransformKey(raw, seed, rounds)
}

// RawKey hashes the concatenation of all key source payloads in order.
func RawKey(sources [][]byte) ([KeySize]byte, error) {
	for i, s := range sources {
		if s == nil {
			return [KeySize]byte{}, fmt.Errorf("%w: source %d", ErrNilKeySource, i)
		}
	}
	return Sum256(sources...), nil
}

// TransformKey runs rounds iterations of AES-256 encryption over both 16 byte
// halves of raw, keyed by seed, and hashes the result.
func TransformKey(raw [KeySize]byte, seed []byte, rounds uint64) ([KeySize]byte, error) {
	if len(seed) != SeedSize {
		return [KeySize]byte{}, fmt.Errorf("%w: got %d", ErrInvalidSeedLength, len(seed))
	}
	block, err := aes.NewCipher(seed)
	if err != nil {
		return [KeySize]byte{}, fmt.Errorf("failed to create transform cipher: %w", err)
	}
	if block.BlockSize() != KeySize/2 {
		return [KeySize]byte{}, ErrBlockSizeMismatch
	}

	buf := raw
	defer Wipe(buf[:])
	for i := uint64(0); i < rounds; i++ {
		block.Encrypt(buf[:16], buf[:16])
		block.Encrypt(buf[16:], buf[16:])
	}
	return Sum256(buf[:]), nil
}

// BenchmarkRounds runs the AES transform for roughly d and returns the number
// of completed rounds. The result saturates at math.MaxUint64.
func BenchmarkRounds(d time.Duration) uint64 {
	var seed [SeedSize]byte
	block, err := aes.NewCipher(seed[:])
	if err != nil {
		return 0
	}

	var buf [KeySize]byte
	var rounds uint64
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		for i := 0; i < benchmarkBatch; i++ {
			block.Encrypt(buf[:16], buf[:16])
			block.Encrypt(buf[16:], buf[16:])
		}
		if rounds > math.MaxUint64-benchmarkBatch {
			return math.MaxUint64
		}
		rounds += benchmarkBatch
	}
	return rounds
}

func argon2Transform(raw [KeySize]byte, p KDFParameters) ([KeySize]byte, error) {
	if len(p.Seed) != SeedSize {
		return [KeySize]byte{}, fmt.Errorf("%w: got %d", ErrInvalidSeedLength, len(p.Seed))
	}
	if p.Rounds == 0 || p.Rounds > math.MaxUint32 {
		return [KeySize]byte{}, fmt.Errorf("argon2 iterations out of range: %d", p.Rounds)
	}
	if p.MemoryKiB == 0 || p.Parallelism == 0 {
		return [KeySize]byte{}, fmt.Errorf("argon2 memory and parallelism must be positive")
	}

	key := argon2.IDKey(raw[:], p.Seed, uint32(p.Rounds), p.MemoryKiB, p.Parallelism, KeySize)
	var out [KeySize]byte
	copy(out[:], key)
	Wipe(key)
	return out, nil
}
