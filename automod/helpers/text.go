package helpers

import (
	"fmt"
	"strings"

	"github.com/spaolacci/murmur3"
)

// Dedupe returns the distinct elements of `in`, in order of first occurrence.
func Dedupe[T comparable](in []T) []T {
	var out []T
	seen := make(map[T]bool, len(in))
	for _, v := range in {
		if !seen[v] {
			out = append(out, v)
			seen[v] = true
		}
	}
	return out
}

func DedupeStrings(in []string) []string {
	return Dedupe(in)
}

// returns a fast, compact hash of a string
//
// current implementation uses murmur3, default seed, and hex encoding
func HashOfString(s string) string {
	val := murmur3.Sum64([]byte(s))
	return fmt.Sprintf("%016x", val)
}

// Truncate shortens s to at most n runes, marking the cut with "..." when it happens. Used to keep log lines and notifications readable.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return strings.TrimSpace(string(r[:n-3])) + "..."
}

// FirstWord returns the first whitespace-separated word of s, or an empty string.
func FirstWord(s string) string {
	f := strings.Fields(s)
	if len(f) == 0 {
		return ""
	}
	return f[0]
}
