// Package evidence holds the contract with the content-addressed store that
// keeps sanitization proof blobs. The lifecycle core only ever handles the
// content hash, never the blob itself.
package evidence

import "strings"

// base58btc alphabet, the character set of a CIDv0 multihash.
const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// ValidHash reports whether s is a well-formed CIDv0 content address:
// "Qm" followed by 44 base58btc characters (46 total).
func ValidHash(s string) bool {
	if len(s) != 46 || !strings.HasPrefix(s, "Qm") {
		return false
	}
	for _, r := range s[2:] {
		if !strings.ContainsRune(base58Alphabet, r) {
			return false
		}
	}
	return true
}
