// Package hashutil computes content digests for finalized contract artifacts.
package hashutil

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// SHA256Hex returns the lowercase hex SHA-256 digest of b.
func SHA256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// VerifySHA256Hex reports whether digest is the SHA-256 of b.
func VerifySHA256Hex(b []byte, digest string) bool {
	expected := SHA256Hex(b)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(digest))) == 1
}
