package platform

import (
	"crypto/rand"

	"github.com/google/uuid"
)

const refAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
const refLength = 12

// NewID returns a new opaque job/tenant identifier.
func NewID() string {
	return uuid.New().String()
}

// NewRef returns a prefixed random reference, used as the correlation key
// handed to external platforms for asynchronous steps.
func NewRef(prefix string) string {
	b := make([]byte, refLength)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	for i := range b {
		b[i] = refAlphabet[b[i]%byte(len(refAlphabet))]
	}
	return prefix + string(b)
}
