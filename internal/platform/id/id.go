// Package id generates URL-safe force instance identifiers.
//
// Instance ids travel inside shareable URLs, so they must be compact,
// lowercase, and free of characters that need escaping. Identifiers are
// UUIDv4 bytes encoded as base32 (RFC 4648) with no padding: 26 characters,
// lowercase, safe for URLs and file paths.
package id

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
)

// NewID generates a new force instance identifier.
func NewID() (string, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	// RFC 4122 variant and version bits for a v4 UUID.
	raw[6] = (raw[6] & 0x0f) | 0x40
	raw[8] = (raw[8] & 0x3f) | 0x80

	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw[:])
	return strings.ToLower(encoded), nil
}
