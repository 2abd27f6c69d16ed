package models

import (
	"maps"
	"slices"

	"github.com/iudanet/keepvault/internal/protect"
)

// Стандартные поля записи
const (
	FieldTitle    = "Title"
	FieldUserName = "UserName"
	FieldPassword = "Password"
	FieldURL      = "URL"
	FieldNotes    = "Notes"
)

// StandardFields lists the standard string fields in display order.
var StandardFields = []string{FieldTitle, FieldUserName, FieldPassword, FieldURL, FieldNotes}

// IsStandardField reports whether name is one of the standard fields.
func IsStandardField(name string) bool {
	return slices.Contains(StandardFields, name)
}

// Strings maps field names to protected values.
type Strings map[string]*protect.String

// Get returns the value, or nil if the field is absent.
func (s Strings) Get(name string) *protect.String {
	return s[name]
}

// Value returns the plaintext value, or an empty string.
func (s Strings) Value(name string) string {
	if v := s[name]; v != nil {
		return v.String()
	}
	return ""
}

// Set stores a value. A nil value removes the field.
func (s Strings) Set(name string, v *protect.String) {
	if v == nil {
		delete(s, name)
		return
	}
	s[name] = v
}

// Keys returns field names in sorted order.
func (s Strings) Keys() []string {
	return slices.Sorted(maps.Keys(s))
}

// Clone copies the map. Values are immutable and shared.
func (s Strings) Clone() Strings {
	out := make(Strings, len(s))
	maps.Copy(out, s)
	return out
}

// Equal compares values, and protection flags when opts has CompareProtection.
func (s Strings) Equal(o Strings, opts CompareOptions) bool {
	nullEmpty := opts&CompareNullEmptyEquivStd != 0
	if !nullEmpty && len(s) != len(o) {
		return false
	}

	check := func(a, b Strings) bool {
		for name, v := range a {
			w, ok := b[name]
			if !ok {
				if nullEmpty && IsStandardField(name) && v.IsEmpty() {
					continue
				}
				return false
			}
			if !v.Equal(w) {
				return false
			}
			if opts&CompareProtection != 0 && v.IsProtected() != w.IsProtected() {
				return false
			}
		}
		return true
	}
	return check(s, o) && check(o, s)
}

// Binaries maps attachment names to protected binaries.
type Binaries map[string]*protect.Binary

// Keys returns attachment names in sorted order.
func (b Binaries) Keys() []string {
	return slices.Sorted(maps.Keys(b))
}

// Clone copies the map. Values are immutable and shared.
func (b Binaries) Clone() Binaries {
	out := make(Binaries, len(b))
	maps.Copy(out, b)
	return out
}

// Equal compares attachments by content.
func (b Binaries) Equal(o Binaries) bool {
	if len(b) != len(o) {
		return false
	}
	for name, v := range b {
		w, ok := o[name]
		if !ok || !v.Equal(w) {
			return false
		}
	}
	return true
}
