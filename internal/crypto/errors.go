package crypto

import "errors"

var (
	// ErrInvalidKeyLength indicates a key of unexpected size was supplied.
	ErrInvalidKeyLength = errors.New("invalid key length")

	// ErrInvalidIVLength indicates an IV of unexpected size was supplied.
	ErrInvalidIVLength = errors.New("invalid IV length")

	// ErrInvalidSeedLength indicates a transform seed that is not 32 bytes long.
	ErrInvalidSeedLength = errors.New("transform seed must be 32 bytes")

	// ErrBlockSizeMismatch indicates the key transform cipher does not use 16 byte blocks.
	ErrBlockSizeMismatch = errors.New("cipher block size mismatch")

	// ErrNilKeySource indicates a missing key source payload.
	ErrNilKeySource = errors.New("key source payload is nil")

	// ErrUnknownCipher indicates a cipher UUID that is not registered.
	ErrUnknownCipher = errors.New("unknown cipher")

	// ErrUnknownKDF indicates a key derivation UUID that is not registered.
	ErrUnknownKDF = errors.New("unknown key derivation function")

	// ErrUnknownStream indicates an unsupported inner random stream algorithm.
	ErrUnknownStream = errors.New("unknown random stream algorithm")

	// ErrInvalidPadding indicates malformed PKCS#7 padding at the end of a CBC stream.
	ErrInvalidPadding = errors.New("invalid padding")

	// ErrTruncated indicates the ciphertext length is not a multiple of the block size.
	ErrTruncated = errors.New("ciphertext is truncated")
)
