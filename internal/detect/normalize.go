// Package detect implements the event-detection heuristic: text
// normalization, fuzzy date extraction, and confidence scoring of
// mail messages into event candidates.
package detect

import (
	"iter"
	"strings"
	"unicode"
)

// stopwords is the default English stop-word list. The normalizer
// drops these so that keyword density reflects content words only.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		a about above after again against all am an and any are aren't
		as at be because been before being below between both but by
		can't cannot could couldn't did didn't do does doesn't doing
		don't down during each few for from further had hadn't has
		hasn't have haven't having he her here hers herself him himself
		his how i if in into is isn't it its itself let's me more most
		mustn't my myself no nor not of off on once only or other ought
		our ours ourselves out over own same she should shouldn't so
		some such than that the their theirs them themselves then there
		these they this those through to too under until up very was
		wasn't we were weren't what when where which while who whom why
		will with won't would wouldn't you your yours yourself
		yourselves
	`) {
		stopwords[w] = struct{}{}
	}
}

// Normalize yields lower-cased tokens from the subject and body with
// stop-words removed. The sequence is lazy: tokens are produced as
// the consumer iterates. Empty input yields an empty sequence.
func Normalize(subject, body string) iter.Seq[string] {
	text := strings.ToLower(subject + " " + body)
	return func(yield func(string) bool) {
		start := -1
		for i, r := range text {
			if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' {
				if start < 0 {
					start = i
				}
				continue
			}
			if start >= 0 {
				if !emit(text[start:i], yield) {
					return
				}
				start = -1
			}
		}
		if start >= 0 {
			emit(text[start:], yield)
		}
	}
}

// emit yields a single token unless it is a stop-word. Returns false
// when the consumer stopped iterating.
func emit(tok string, yield func(string) bool) bool {
	if _, skip := stopwords[tok]; skip {
		return true
	}
	return yield(tok)
}
