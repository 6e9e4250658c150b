// Package ident generates and validates the fixed-width lowercase-hex
// identifiers used on the wire: account keys, session tokens, flock ids,
// device ids and device secrets.
package ident

import (
	"crypto/rand"
	"encoding/hex"
)

func randHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// AccountKey returns a fresh 32-byte account capability (64 hex chars).
func AccountKey() (string, error) { return randHex(32) }

// Token returns a fresh 16-byte session token (32 hex chars).
func Token() (string, error) { return randHex(16) }

// FlockID returns a fresh 8-byte flock id (16 hex chars). The low byte is
// forced to zero: that address space is reserved for device sub-addressing.
func FlockID() (string, error) {
	s, err := randHex(7)
	if err != nil {
		return "", err
	}
	return s + "00", nil
}

// DeviceID returns a fresh 4-byte device id (8 hex chars).
func DeviceID() (string, error) { return randHex(4) }

// DeviceSecret returns a fresh 32-byte wrapped-key secret (64 hex chars).
func DeviceSecret() (string, error) { return randHex(32) }

func isHex(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// ValidAccountKey reports whether s is a well-formed account key.
func ValidAccountKey(s string) bool { return isHex(s, 64) }

// ValidToken reports whether s is a well-formed session token.
func ValidToken(s string) bool { return isHex(s, 32) }

// ValidFlockID reports whether s is a well-formed flock id. The trailing zero
// byte is not enforced here: lookups against unknown ids must behave the same
// as lookups against well-formed ones.
func ValidFlockID(s string) bool { return isHex(s, 16) }

// ValidDeviceID reports whether s is a well-formed device id.
func ValidDeviceID(s string) bool { return isHex(s, 8) }
