// Package xcrypto provides SHA-256 content hashes and HMAC-SHA-256
// sign/verify primitives for module bundle integrity. No other package in
// this module calls them; modbundle.Parse and modbundle.Build neither hash
// nor verify a bundle.
package xcrypto

import (
	"crypto/hmac"
	"crypto/sha256"
)

// Digest returns the SHA-256 hash of data.
func Digest(data []byte) [sha256.Size]byte {
	return sha256.Sum256(data)
}

// Sign returns the HMAC-SHA-256 of data under key.
func Sign(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// Verify reports whether sig is a valid HMAC-SHA-256 of data under key,
// using a constant-time comparison.
func Verify(key, data, sig []byte) bool {
	return hmac.Equal(Sign(key, data), sig)
}
