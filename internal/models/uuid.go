package models

import (
	"bytes"
	"encoding/base64"

	"github.com/google/uuid"
)

// NewUUID создает новый случайный непустой идентификатор
func NewUUID() uuid.UUID {
	for {
		id := uuid.New()
		if id != uuid.Nil {
			return id
		}
	}
}

// CompareUUID orders identifiers byte-wise.
func CompareUUID(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}

// EncodeUUID returns the base64 form used in the XML payload.
func EncodeUUID(id uuid.UUID) string {
	return base64.StdEncoding.EncodeToString(id[:])
}

// DecodeUUID parses the base64 form. Malformed input yields uuid.Nil and false.
func DecodeUUID(s string) (uuid.UUID, bool) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(raw) != 16 {
		return uuid.Nil, false
	}
	return uuid.UUID(raw), true
}
