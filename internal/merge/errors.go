package merge

import "errors"

var (
	// ErrNilDatabase indicates a nil local or source database.
	ErrNilDatabase = errors.New("database is nil")

	// ErrInvariant indicates duplicate identifiers that survived the repair pass.
	ErrInvariant = errors.New("merge invariant violated")

	// ErrUnknownMode indicates an unsupported merge mode.
	ErrUnknownMode = errors.New("unknown merge mode")
)
