package vault

import (
	"crypto/sha256"

	"github.com/btcsuite/btcutil/base58"
)

// Fingerprint produces a deterministic SHA-256 fingerprint of a secret
// value, base58-encoded. Audit records carry the fingerprint in place of the
// value so issuance can be correlated without logging secret material.
func Fingerprint(value string) string {
	hash := sha256.Sum256([]byte(value))
	return base58.Encode(hash[:])
}

// FormatFingerprint returns a truncated fingerprint for display (first 12
// characters).
func FormatFingerprint(fingerprint string) string {
	if len(fingerprint) <= 12 {
		return fingerprint
	}
	return fingerprint[:12]
}
