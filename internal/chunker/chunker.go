// Package chunker splits a document into bounded word groups for correction.
//
// Split is pure: the same text and length always produce the same chunks, so
// a record retried in a later attempt is cut exactly as before.
package chunker

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

// ErrInvalidLength is returned when the requested words-per-chunk is not positive.
var ErrInvalidLength = errors.New("chunk length must be positive")

var (
	spaceRuns   = regexp.MustCompile(` +`)
	newlineRuns = regexp.MustCompile(`\n{3,}`)
)

// Normalize trims surrounding whitespace, collapses runs of spaces to one,
// and collapses three or more consecutive newlines to exactly two.
func Normalize(text string) string {
	text = strings.TrimFunc(text, isSpace)
	text = spaceRuns.ReplaceAllString(text, " ")
	return newlineRuns.ReplaceAllString(text, "\n\n")
}

// Words returns the single-space separated words of the normalized text.
// An empty document has one empty word.
func Words(text string) []string {
	return strings.Split(Normalize(text), " ")
}

// Split partitions the normalized text into groups of length words. The final
// group may be short; every group is joined with single spaces and trimmed, so
// the result never carries padding artifacts. The result has
// ceil(words/length) entries and is never empty.
func Split(text string, length int) ([]string, error) {
	if length <= 0 {
		return nil, ErrInvalidLength
	}
	words := Words(text)
	chunks := make([]string, 0, (len(words)+length-1)/length)
	for start := 0; start < len(words); start += length {
		end := min(start+length, len(words))
		chunks = append(chunks, strings.TrimFunc(strings.Join(words[start:end], " "), isSpace))
	}
	return chunks, nil
}

// isSpace matches unicode.IsSpace plus the ASCII information separators
// (0x1c-0x1f), which line-oriented corpora sometimes carry.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}
