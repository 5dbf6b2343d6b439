package encoder

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {},
	"by": {}, "can": {}, "do": {}, "does": {}, "for": {}, "from": {}, "how": {}, "i": {},
	"if": {}, "in": {}, "into": {}, "is": {}, "it": {}, "its": {}, "me": {}, "my": {},
	"of": {}, "on": {}, "or": {}, "so": {}, "that": {}, "the": {}, "their": {}, "then": {},
	"there": {}, "these": {}, "this": {}, "to": {}, "was": {}, "we": {}, "what": {},
	"when": {}, "where": {}, "which": {}, "who": {}, "why": {}, "will": {}, "with": {},
	"you": {}, "your": {},
}

// Tokenizer splits text into normalised terms. Safe for concurrent use.
type Tokenizer struct {
	minLength int
}

func NewTokenizer(minLength int) *Tokenizer {
	if minLength < 1 {
		minLength = 1
	}
	return &Tokenizer{minLength: minLength}
}

// Tokens returns the terms of text in order of appearance, duplicates kept.
func (t *Tokenizer) Tokens(text string) []string {
	// A Caser is stateful and must not be shared between goroutines.
	normalised := cases.Fold().String(norm.NFKC.String(text))

	fields := strings.FieldsFunc(normalised, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < t.minLength {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}
