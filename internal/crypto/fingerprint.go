package crypto

import "encoding/hex"

// Fingerprint returns a short hex fingerprint of a digest.
//
// It truncates to 10 bytes (20 hex chars).
func Fingerprint(sum []byte) string {
	if len(sum) > 10 {
		sum = sum[:10]
	}
	return hex.EncodeToString(sum)
}
