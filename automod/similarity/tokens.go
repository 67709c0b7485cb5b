package similarity

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// anything that is not a letter, digit, or underscore; combining marks are not word characters
var nonWordChars = regexp.MustCompile(`[^\pL\pN_]`)

// SortTokens replaces non-word characters with spaces, lower-cases the phrase with full Unicode case mapping (so "İ" becomes "i" plus a combining dot), and re-joins the whitespace-separated tokens in lexicographic order with single spaces.
//
// For example, "World, hello!" becomes "hello world".
func SortTokens(phrase string) string {
	// Caser is stateful, one per call
	phrase = cases.Lower(language.Und).String(nonWordChars.ReplaceAllString(phrase, " "))
	tokens := strings.Fields(phrase)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
