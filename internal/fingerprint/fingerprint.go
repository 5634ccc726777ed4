// Package fingerprint derives the stable identifier of a registered relay target.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"unicode"
)

// Size is the length of an identifier in hex characters.
const Size = md5.Size * 2

// Of returns the identifier for the given url and user agent.
// An empty user agent stands for "no override" and hashes the same way.
// The separator is a single tab and surrounding whitespace of the joined
// string is trimmed before hashing.
func Of(url, userAgent string) string {
	joined := strings.TrimFunc(url+"\t"+userAgent, isSpace)
	sum := md5.Sum([]byte(joined))

	return hex.EncodeToString(sum[:])
}

// Valid reports whether id has the shape produced by Of:
// Size characters of lowercase hex.
func Valid(id string) bool {
	if len(id) != Size {
		return false
	}

	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}

	return true
}

// isSpace is unicode.IsSpace plus the ASCII separators FS, GS, RS and US.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}
