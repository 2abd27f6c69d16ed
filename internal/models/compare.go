package models

// CompareOptions tune entry and group equality.
type CompareOptions uint

const (
	// CompareIgnoreParentGroup skips the parent and location changed time
	CompareIgnoreParentGroup CompareOptions = 1 << iota
	// CompareIgnoreLastAccess skips last access time and usage count
	CompareIgnoreLastAccess
	// CompareIgnoreLastMod skips last modification time
	CompareIgnoreLastMod
	// CompareIgnoreHistory skips the history list
	CompareIgnoreHistory
	// CompareIgnoreLastBackup compares history without its newest item
	CompareIgnoreLastBackup
	// CompareNullEmptyEquivStd treats a missing standard field as empty
	CompareNullEmptyEquivStd
	// CompareProtection also compares protection flags of values
	CompareProtection

	// CompareNone is strict comparison
	CompareNone CompareOptions = 0
)

// Tristate is an inheritable boolean setting.
type Tristate int8

const (
	// Inherit uses the parent group's value
	Inherit Tristate = iota
	// Enabled switches the setting on
	Enabled
	// Disabled switches the setting off
	Disabled
)

// String returns the XML representation.
func (t Tristate) String() string {
	switch t {
	case Enabled:
		return "True"
	case Disabled:
		return "False"
	default:
		return "null"
	}
}
