// Package tokenize supplies the default tokenizer: lower-casing plus a
// regex split on non-alphanumeric runs and CJK ideographs. The tokenizer
// contract itself is pluggable, but the engine's default configuration
// still needs something concrete to fall back on, and this is it.
package tokenize

import (
	"regexp"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lowerCaser = cases.Lower(language.Und)

// hanRune matches a single CJK ideograph; isolating it with surrounding
// spaces before the word pattern runs keeps each ideograph its own token
// instead of merging into a neighboring alphanumeric run.
var hanRune = regexp.MustCompile(`\p{Han}`)

// wordPattern matches a maximal run of letters and digits.
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// DefaultTokenizer lower-cases text, then splits it into maximal runs of
// letters/digits, treating every other rune as a boundary; each CJK
// ideograph becomes a token of its own. It is used for both indexing and
// search unless a caller supplies its own tokenizer.
func DefaultTokenizer(text string) []string {
	lower := lowerCaser.String(text)
	spaced := hanRune.ReplaceAllString(lower, " $0 ")
	matches := wordPattern.FindAllString(spaced, -1)
	if matches == nil {
		return []string{}
	}
	return matches
}

// Partition splits tokens into word (code-point length >= 2) and char
// (length == 1) groups, discarding any length-0 token. This partitioning
// rule belongs to the engine, not the tokenizer, but lives here since
// both intake and search need the identical split.
func Partition(tokens []string) (words, chars []string) {
	for _, tok := range tokens {
		switch utf8.RuneCountInString(tok) {
		case 0:
			continue
		case 1:
			chars = append(chars, tok)
		default:
			words = append(words, tok)
		}
	}
	return words, chars
}
