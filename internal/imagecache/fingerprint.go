package imagecache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ContentHash returns the lowercase hex SHA-256 of data.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func normalizeHash(hash string) string {
	return strings.ToLower(strings.TrimSpace(hash))
}
