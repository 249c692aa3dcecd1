package config

import (
	"crypto/sha256"
	"encoding/hex"
)

// hashLen is the number of hex characters kept from the SHA256 digest.
const hashLen = 16

// hashBytes fingerprints raw config file content.
func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:hashLen]
}
