package store

import (
	"github.com/lithammer/shortuuid/v4"

	"studybot/internal/errs"
)

const (
	// IDLength is the length of every generated entity id.
	IDLength = 12

	idAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

// NewID returns a random 12 character alphanumeric id. It keeps the low-order
// digits of a base62 encoded random UUID.
func NewID() string {
	id := shortuuid.NewWithAlphabet(idAlphabet)
	if len(id) > IDLength {
		id = id[len(id)-IDLength:]
	}
	return id
}

// ValidID reports whether s has the shape of a generated id.
func ValidID(s string) bool {
	if len(s) != IDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}

func notFound(kind, id string) error { return errs.NotFound(kind, id) }
