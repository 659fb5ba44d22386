package wakeword

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// PhoneticMatcher matches a phrase against transcripts by Double Metaphone
// encoding, catching transcription misspellings ("register new phase") that
// the exact substring check misses. It is read-only after construction and
// safe for concurrent use.
type PhoneticMatcher struct {
	tokens []tokenCodes
}

type tokenCodes struct {
	primary   string
	secondary string
}

// NewPhoneticMatcher precomputes the phonetic codes of each token in phrase.
func NewPhoneticMatcher(phrase string) *PhoneticMatcher {
	fields := strings.Fields(strings.ToLower(phrase))
	tokens := make([]tokenCodes, 0, len(fields))
	for _, f := range fields {
		p, s := matchr.DoubleMetaphone(f)
		tokens = append(tokens, tokenCodes{primary: p, secondary: s})
	}
	return &PhoneticMatcher{tokens: tokens}
}

// Match reports whether text contains a run of consecutive tokens that
// phonetically aligns with the phrase, token by token.
func (m *PhoneticMatcher) Match(text string) bool {
	if len(m.tokens) == 0 {
		return false
	}
	words := strings.Fields(strings.ToLower(text))
	if len(words) < len(m.tokens) {
		return false
	}

	for start := 0; start+len(m.tokens) <= len(words); start++ {
		if m.alignsAt(words, start) {
			return true
		}
	}
	return false
}

func (m *PhoneticMatcher) alignsAt(words []string, start int) bool {
	for i, want := range m.tokens {
		p, s := matchr.DoubleMetaphone(words[start+i])
		if !codesOverlap(want, tokenCodes{primary: p, secondary: s}) {
			return false
		}
	}
	return true
}

// codesOverlap reports whether any non-empty code of a matches any
// non-empty code of b.
func codesOverlap(a, b tokenCodes) bool {
	for _, x := range []string{a.primary, a.secondary} {
		if x == "" {
			continue
		}
		if x == b.primary || x == b.secondary {
			return true
		}
	}
	return false
}
