package helpers

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonTokenChars = regexp.MustCompile(`[^\pL\pN\s]+`)

// NormalizeText folds free-form text for loose comparison: lower case, punctuation and symbols dropped, diacritics removed, whitespace collapsed.
//
// For example, "Frée NITRO!!  here" becomes "free nitro here".
func NormalizeText(text string) string {
	// transformers are stateful, so the chain is built per call
	normFunc := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	bare := strings.ToLower(nonTokenChars.ReplaceAllString(text, ""))
	folded, _, err := transform.String(normFunc, bare)
	if err != nil {
		slog.Warn("unicode normalization error", "err", err)
		folded = bare
	}
	return strings.Join(strings.Fields(folded), " ")
}
