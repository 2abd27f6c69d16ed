package protect

import (
	"unicode/utf8"

	"github.com/iudanet/keepvault/internal/crypto"
)

// String is an immutable UTF-8 string value, stored as a Binary. A nil
// *String reads as the empty, unprotected string.
type String struct {
	bin *Binary
	// plain caches unprotected values to avoid repeated copies.
	plain string
}

// Empty is the shared empty unprotected string.
var Empty = NewString(false, "")

// NewString creates a String.
func NewString(protected bool, s string) *String {
	if !protected {
		return &String{plain: s}
	}
	return &String{bin: NewBinary(true, []byte(s))}
}

// NewStringFromUTF8 creates a String from UTF-8 bytes and wipes the input.
func NewStringFromUTF8(protected bool, data []byte) *String {
	if !protected {
		s := &String{plain: string(data)}
		crypto.Wipe(data)
		return s
	}
	return &String{bin: NewBinaryWiped(true, data)}
}

// IsProtected reports whether the value is encrypted in memory.
func (s *String) IsProtected() bool {
	return s != nil && s.bin != nil
}

// IsEmpty reports whether the value has zero length.
func (s *String) IsEmpty() bool {
	return s.Len() == 0
}

// Len returns the length in bytes of the UTF-8 form.
func (s *String) Len() int {
	if s == nil {
		return 0
	}
	if s.bin != nil {
		return s.bin.Len()
	}
	return len(s.plain)
}

// String returns the plaintext. Go strings cannot be wiped, prefer ReadUTF8
// for short lived access to protected values.
func (s *String) String() string {
	if s == nil {
		return ""
	}
	if s.bin == nil {
		return s.plain
	}
	data := s.bin.ReadData()
	defer crypto.Wipe(data)
	return string(data)
}

// ReadUTF8 returns a copy of the UTF-8 bytes that the caller should wipe.
func (s *String) ReadUTF8() []byte {
	if s == nil {
		return []byte{}
	}
	if s.bin != nil {
		return s.bin.ReadData()
	}
	return []byte(s.plain)
}

// RuneCount returns the number of characters.
func (s *String) RuneCount() int {
	data := s.ReadUTF8()
	defer crypto.Wipe(data)
	return utf8.RuneCount(data)
}

// WithProtection returns a String with the requested protection.
func (s *String) WithProtection(protected bool) *String {
	if s != nil && s.IsProtected() == protected {
		return s
	}
	return NewStringFromUTF8(protected, s.ReadUTF8())
}

// Equal compares plaintexts. The protection flag is ignored.
func (s *String) Equal(o *String) bool {
	if !s.IsProtected() && !o.IsProtected() {
		return s.String() == o.String()
	}
	return s.binary().Equal(o.binary())
}

func (s *String) binary() *Binary {
	if s == nil {
		return nil
	}
	if s.bin != nil {
		return s.bin
	}
	return NewBinary(false, []byte(s.plain))
}
