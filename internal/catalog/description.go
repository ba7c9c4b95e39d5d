package catalog

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"kickoff/internal/domain"
)

const base64Prefix = "b64:"

// DecodeDescription decodes a backend description. Contract strings arrive
// either as plain text, as 0x-prefixed hex of a fixed-size byte array padded
// with NULs, or as "b64:"-prefixed base64. Returns false when nothing usable
// remains after decoding.
func DecodeDescription(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	var decoded []byte
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		b, err := hex.DecodeString(s[2:])
		if err != nil {
			return "", false
		}
		decoded = b
	case strings.HasPrefix(s, base64Prefix):
		b, err := base64.StdEncoding.DecodeString(s[len(base64Prefix):])
		if err != nil {
			return "", false
		}
		decoded = b
	default:
		return s, true
	}

	decoded = []byte(strings.TrimRight(string(decoded), "\x00"))
	if !utf8.Valid(decoded) {
		return "", false
	}
	text := strings.TrimSpace(string(decoded))
	return text, text != ""
}

var genericDescriptions = map[string]struct{}{
	"event":   {},
	"action":  {},
	"none":    {},
	"n/a":     {},
	"generic": {},
}

// IsGeneric reports whether a decoded description carries no information
// beyond the action itself.
func IsGeneric(text string, action domain.Action) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return true
	}
	if _, ok := genericDescriptions[t]; ok {
		return true
	}
	return t == action.String() || t == strings.ReplaceAll(action.String(), "_", " ")
}
