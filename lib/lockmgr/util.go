package lockmgr

import (
	"crypto/rand"
)

const (
	// ownerIDBytes is the owner ID length (256 bit).
	ownerIDBytes = 32
)

// generateOwnerID creates a new unique owner ID.
func generateOwnerID() ([]byte, error) {
	randomBytes := make([]byte, ownerIDBytes)
	_, err := rand.Read(randomBytes)
	return randomBytes, err
}
