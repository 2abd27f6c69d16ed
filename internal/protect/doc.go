// Package protect keeps decrypted secrets obfuscated while they sit in
// process memory.
//
// A protected Binary stores its payload padded to a 16 byte multiple and
// XORed with a Salsa20 keystream. The keystream key is generated once per
// process; every instance gets its own nonce from a monotonic serial number,
// so two instances never share keystream bytes. Reads decrypt in place, copy
// out exactly the original length and re-encrypt immediately.
//
// Scrubbing is best effort. Buffers owned by this package are zero-filled
// after use, but the Go garbage collector may move or copy memory and
// strings returned to callers cannot be wiped at all. Callers that need
// stronger guarantees can install their own Protector (for example one
// backed by OS protected memory) with SetProtector.
package protect
