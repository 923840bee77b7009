package kv

import (
	"fmt"
	"strings"
	"unicode"
)

// MaxKeyLength is the longest key any backend accepts.
const MaxKeyLength = 250

// ValidateKey rejects keys that some backend cannot store verbatim: empty keys, keys
// longer than MaxKeyLength bytes, keys with control characters and keys with
// surrounding whitespace.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return ErrInvalidKey
	case len(key) > MaxKeyLength:
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidKey, len(key), MaxKeyLength)
	case strings.IndexFunc(key, unicode.IsControl) >= 0:
		return fmt.Errorf("%w: control character in %q", ErrInvalidKey, key)
	case strings.TrimSpace(key) != key:
		return fmt.Errorf("%w: surrounding whitespace in %q", ErrInvalidKey, key)
	}
	return nil
}

// Namespace prefixes blob names so several ledgers can share one backend. The zero
// Namespace leaves names unchanged.
type Namespace string

const namespaceSeparator = ":"

// Key returns the backend key for name.
func (ns Namespace) Key(name string) string {
	if ns == "" {
		return name
	}
	return string(ns) + namespaceSeparator + name
}

// Name strips the namespace from key. It reports false for keys outside ns.
func (ns Namespace) Name(key string) (string, bool) {
	if ns == "" {
		return key, true
	}
	return strings.CutPrefix(key, string(ns)+namespaceSeparator)
}
