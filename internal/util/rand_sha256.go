package util

import (
	"crypto/rand"
	"encoding/hex"
)

// sha256ByteLength sets the byte length of a SHA-256 hash (32).
const sha256ByteLength = 32

// GenerateRandomSHA256 generates a 64-character SHA-256 hash.
//
// Returns:
//   - string: Random hash without prefix.
func GenerateRandomSHA256() string {
	hash := make([]byte, sha256ByteLength)
	_, _ = rand.Read(hash)

	return hex.EncodeToString(hash)
}
