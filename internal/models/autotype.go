package models

import "slices"

// AutoTypeAssociation binds a window title pattern to a keystroke sequence
type AutoTypeAssociation struct {
	Window   string
	Sequence string
}

// AutoType - настройки автоввода записи. Хранится как простой набор значений.
type AutoType struct {
	DefaultSequence    string
	Associations       []AutoTypeAssociation
	ObfuscationOptions int
	Enabled            bool
}

// NewAutoType returns the settings of a fresh entry.
func NewAutoType() AutoType {
	return AutoType{Enabled: true}
}

// Clone returns a copy that shares nothing with a.
func (a AutoType) Clone() AutoType {
	a.Associations = slices.Clone(a.Associations)
	return a
}

// Equal compares all settings.
func (a AutoType) Equal(o AutoType) bool {
	return a.Enabled == o.Enabled &&
		a.ObfuscationOptions == o.ObfuscationOptions &&
		a.DefaultSequence == o.DefaultSequence &&
		slices.Equal(a.Associations, o.Associations)
}
