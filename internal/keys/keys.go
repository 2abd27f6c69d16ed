// Package keys builds the composite master key out of independent key sources.
package keys

import (
	"errors"
	"fmt"

	"github.com/iudanet/keepvault/internal/crypto"
	"github.com/iudanet/keepvault/internal/protect"
)

var (
	// ErrEmptyKey indicates a composite key without any source.
	ErrEmptyKey = errors.New("composite key has no key sources")

	// ErrNilSource indicates a nil key source.
	ErrNilSource = errors.New("key source is nil")
)

//go:generate moq -out source_mock.go . Source

// Source provides one part of the composite key.
type Source interface {
	// Name returns a short description such as "password" or "key file".
	Name() string
	// KeyData returns the 32 byte payload contributed by this source.
	KeyData() (*protect.Binary, error)
}

// CompositeKey is an ordered list of key sources. It never caches derived
// material, every call re-evaluates the sources.
type CompositeKey struct {
	sources []Source
}

// NewCompositeKey creates a key from the given sources.
func NewCompositeKey(sources ...Source) *CompositeKey {
	return &CompositeKey{sources: append([]Source(nil), sources...)}
}

// Add appends a source.
func (k *CompositeKey) Add(s Source) {
	k.sources = append(k.sources, s)
}

// Sources returns a copy of the source list.
func (k *CompositeKey) Sources() []Source {
	return append([]Source(nil), k.sources...)
}

// Len returns the number of sources.
func (k *CompositeKey) Len() int {
	if k == nil {
		return 0
	}
	return len(k.sources)
}

func (k *CompositeKey) payloads() ([][]byte, error) {
	if k.Len() == 0 {
		return nil, ErrEmptyKey
	}
	out := make([][]byte, 0, len(k.sources))
	for i, s := range k.sources {
		if s == nil {
			wipeAll(out)
			return nil, fmt.Errorf("%w: index %d", ErrNilSource, i)
		}
		data, err := s.KeyData()
		if err != nil {
			wipeAll(out)
			return nil, fmt.Errorf("failed to read %s: %w", s.Name(), err)
		}
		if data == nil {
			wipeAll(out)
			return nil, fmt.Errorf("%w: %s", crypto.ErrNilKeySource, s.Name())
		}
		out = append(out, data.ReadData())
	}
	return out, nil
}

// RawKey returns SHA-256 over the concatenated source payloads.
func (k *CompositeKey) RawKey() ([crypto.KeySize]byte, error) {
	payloads, err := k.payloads()
	if err != nil {
		return [crypto.KeySize]byte{}, err
	}
	defer wipeAll(payloads)
	return crypto.RawKey(payloads)
}

// Derive stretches the raw key with the given KDF parameters.
func (k *CompositeKey) Derive(p crypto.KDFParameters) ([crypto.KeySize]byte, error) {
	raw, err := k.RawKey()
	if err != nil {
		return [crypto.KeySize]byte{}, err
	}
	defer crypto.Wipe(raw[:])

	out, err := p.Transform(raw)
	if err != nil {
		return [crypto.KeySize]byte{}, fmt.Errorf("failed to transform key: %w", err)
	}
	return out, nil
}

// Equal compares two keys by their raw key, so different source combinations
// evaluating to the same bytes are equal.
func (k *CompositeKey) Equal(o *CompositeKey) bool {
	a, err := k.RawKey()
	if err != nil {
		return false
	}
	b, err := o.RawKey()
	if err != nil {
		return false
	}
	eq := crypto.EqualBytes(a[:], b[:])
	crypto.Wipe(a[:])
	crypto.Wipe(b[:])
	return eq
}

func wipeAll(bufs [][]byte) {
	for _, b := range bufs {
		crypto.Wipe(b)
	}
}
