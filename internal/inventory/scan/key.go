package scan

import (
	"regexp"
	"strings"
)

// DefaultMinKeyLength is the shortest canonical key accepted by NormalizeKey.
// Anything shorter is treated as noise (stray letters, row numbers left over
// from sheet formatting).
const DefaultMinKeyLength = 5

var keyRun = regexp.MustCompile(`[A-Z0-9_.\-]+`)

// NormalizeKey derives a canonical unit key from a raw identifier cell, or ""
// if the cell does not hold a usable key. Uses DefaultMinKeyLength.
func NormalizeKey(raw string, prefixes []string) string {
	return NormalizeKeyN(raw, prefixes, DefaultMinKeyLength)
}

// NormalizeKeyN is NormalizeKey with an explicit minimum key length.
//
// The key is the longest [A-Z0-9_.-] run of the upper-cased, trimmed input,
// which strips surrounding junk such as stray symbols or annotations. When
// prefixes is non-empty the key must additionally start with one of them
// (case-insensitive).
func NormalizeKeyN(raw string, prefixes []string, minLen int) string {
	clean := strings.ToUpper(strings.TrimSpace(raw))
	if clean == "" {
		return ""
	}

	var key string
	for _, run := range keyRun.FindAllString(clean, -1) {
		if len(run) > len(key) {
			key = run
		}
	}
	if len(key) < minLen {
		return ""
	}

	if len(prefixes) == 0 {
		return key
	}
	for _, p := range prefixes {
		if p == "" {
			continue
		}
		if strings.HasPrefix(key, strings.ToUpper(p)) {
			return key
		}
	}
	return ""
}
