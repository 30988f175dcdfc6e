package services

import (
	"crypto/rand"
	"fmt"
	"net/url"
	"strings"
)

// Base62Alphabet is the character set used for generated aliases and link IDs.
const Base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const (
	defaultAliasLength = 6
	linkIDLength       = 12
	maxAliasLength     = 64
)

// SanitizeAlias lowercases the input and strips every character outside
// [a-z0-9-_]. An empty result means the input had no usable characters.
func SanitizeAlias(input string) string {
	lowered := strings.ToLower(strings.TrimSpace(input))

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}

	out := b.String()
	if len(out) > maxAliasLength {
		out = out[:maxAliasLength]
	}
	return out
}

// RandomBase62 returns a random string of the given length drawn from the
// base62 alphabet.
func RandomBase62(length int) (string, error) {
	if length <= 0 {
		length = defaultAliasLength
	}

	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("alias: read random bytes: %w", err)
	}

	out := make([]byte, length)
	for i, b := range bytes {
		out[i] = Base62Alphabet[int(b)%len(Base62Alphabet)]
	}
	return string(out), nil
}

// IsValidHTTPURL reports whether the value parses as an absolute http or
// https URL.
func IsValidHTTPURL(value string) bool {
	parsed, err := url.Parse(value)
	if err != nil {
		return false
	}
	if parsed.Host == "" {
		return false
	}
	return parsed.Scheme == "http" || parsed.Scheme == "https"
}
