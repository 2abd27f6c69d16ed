package merge

import (
	"fmt"
	"strings"
)

// Mode selects how conflicting objects are resolved.
type Mode int

const (
	// OverwriteExisting always takes the source version.
	OverwriteExisting Mode = iota + 1
	// KeepExisting never changes existing local objects.
	KeepExisting
	// OverwriteIfNewer takes the version with the later modification time.
	OverwriteIfNewer
	// CreateNewUUIDs imports the source as new objects.
	CreateNewUUIDs
	// Synchronize is OverwriteIfNewer plus moves, ordering and deletions.
	Synchronize
)

var modeNames = map[Mode]string{
	OverwriteExisting: "overwrite",
	KeepExisting:      "keep",
	OverwriteIfNewer:  "newer",
	CreateNewUUIDs:    "new-uuids",
	Synchronize:       "sync",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses a mode name as printed by String.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}
