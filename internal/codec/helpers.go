package codec

import (
	"unicode/utf8"

	"github.com/google/uuid"
)

func utf8Valid(b []byte) bool {
	return utf8.Valid(b)
}

func uuidFromBytes(b []byte) (uuid.UUID, error) {
	return uuid.FromBytes(b)
}
