package crypto

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"time"
)

// entropyPool is the process-wide random pool. All database operations share it,
// so access is guarded by a mutex and initialisation happens exactly once.
type entropyPool struct {
	mu      sync.Mutex
	once    sync.Once
	state   [32]byte
	counter uint64
}

var pool entropyPool

func (p *entropyPool) init() {
	p.once.Do(func() {
		var seed [32]byte
		// crypto/rand не возвращает ошибку на поддерживаемых платформах
		_, _ = rand.Read(seed[:])

		var extra [16]byte
		binary.LittleEndian.PutUint64(extra[:8], uint64(time.Now().UnixNano()))
		binary.LittleEndian.PutUint64(extra[8:], uint64(os.Getpid()))

		p.state = Sum256(seed[:], extra[:])
	})
}

// AddEntropy mixes caller supplied data into the process-wide pool.
func AddEntropy(data []byte) {
	pool.init()

	pool.mu.Lock()
	defer pool.mu.Unlock()

	pool.state = Sum256(pool.state[:], data)
}

// RandomBytes returns n bytes drawn from the entropy pool. Every 32 byte block
// is SHA-256(pool state || counter || fresh system randomness).
func RandomBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative random length %d", n)
	}
	pool.init()

	pool.mu.Lock()
	defer pool.mu.Unlock()

	out := make([]byte, 0, n+32)
	var fresh [32]byte
	var ctr [8]byte
	for len(out) < n {
		if _, err := rand.Read(fresh[:]); err != nil {
			return nil, fmt.Errorf("failed to read system randomness: %w", err)
		}
		pool.counter++
		binary.LittleEndian.PutUint64(ctr[:], pool.counter)

		block := Sum256(pool.state[:], ctr[:], fresh[:])
		out = append(out, block[:]...)
		pool.state = Sum256(pool.state[:], block[:])
	}
	Wipe(fresh[:])

	return out[:n], nil
}
