package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// GenerateClaimCode returns a short uppercase hex code the host stand
// uses to match a walk-in party against the waitline.
func GenerateClaimCode(n int) (string, error) {
	// Make a slice of n random bytes.
	byt := make([]byte, n)

	// Read into the slice.
	if _, err := rand.Read(byt); err != nil {
		return "", err
	}

	// Return the hexadecimal string.
	return strings.ToUpper(hex.EncodeToString(byt)), nil
}
