package crypto

import "encoding/hex"

// Hex returns lowercase hex without separators.
func Hex(b []byte) string { return hex.EncodeToString(b) }

// ParseHex is the inverse of Hex.
func ParseHex(s string) ([]byte, error) { return hex.DecodeString(s) }
