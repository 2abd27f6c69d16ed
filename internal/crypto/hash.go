package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Sum256 хеширует конкатенацию всех частей с помощью SHA-256.
// Разделители между частями не добавляются.
func Sum256(parts ...[]byte) [32]byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	h.Sum(out[:0])
	return out
}

// HashHex returns the hex-encoded SHA-256 digest of data.
func HashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// EqualBytes compares two byte slices in constant time.
func EqualBytes(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// Wipe zero-fills buf. Best effort only: the Go runtime may have copied
// the contents elsewhere before this call.
func Wipe(buf []byte) {
	clear(buf)
}
