// Package cryptox implements the Cryptool cryptography: the versioned
// message envelope codec and the access-code key derivation used by the
// gatekeeper.
package cryptox

import (
	"crypto/sha256"

	"golang.org/x/crypto/argon2"
)

// DeriveAccessKey derives the gatekeeper key from the user's access code and
// a per-installation random salt using Argon2id.
func DeriveAccessKey(code []byte, salt []byte) []byte {
	return argon2.IDKey(code, salt, 1, 64*1024, 4, 32)
}

// MakeVerifier returns the value stored locally to check an access key
// without keeping the key itself.
func MakeVerifier(accessKey []byte) []byte {
	hash := sha256.Sum256(accessKey)
	return hash[:]
}
