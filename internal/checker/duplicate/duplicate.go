// Package duplicate finds words and short phrases that are repeated back to
// back, such as "the the" or "in the in the".
package duplicate

import (
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker/diagnostic"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker/tokenizer"
)

const (
	// IgnoreMarker stands in for inline markup the extractor removed.
	IgnoreMarker = "##@ignore##"
	// NumberGroup is a digit group of a number written with spaces.
	NumberGroup = "000"
)

// Scan reports every duplication in the sentence.
func Scan(s tokenizer.Sentence) []diagnostic.Diagnostic {
	var diags []diagnostic.Diagnostic
	for i := 1; i < len(s.Tokens); i++ {
		phrase, n := At(s.Tokens, i)
		if n == 0 {
			continue
		}
		diags = append(diags, diagnostic.Duplicate(s, i, n, phrase))
	}
	return diags
}

// At reports the duplication that ends at token i, if any: the repeated
// phrase and its length in words (3, 2 or 1). Three-word repeats take
// priority over two-word repeats, which take priority over single words.
//
// Comparisons strip trailing punctuation from token i and a leading bracket
// from the earliest token of the first occurrence only.
func At(tokens []tokenizer.Token, i int) (string, int) {
	if i < 1 || i >= len(tokens) {
		return "", 0
	}
	word := tokens[i].Text
	if placeholder(word) {
		return "", 0
	}
	stripped := tokenizer.TrimTrailingPunct(word)
	at := func(k int) string { return tokens[i-k].Text }

	if i >= 5 &&
		stripped == at(3) &&
		at(1) != IgnoreMarker && at(2) != IgnoreMarker &&
		at(1) == at(4) &&
		at(2) == tokenizer.TrimLeadingBracket(at(5)) {
		return at(2) + " " + at(1) + " " + stripped, 3
	}

	if i >= 3 &&
		stripped == at(2) &&
		at(1) != IgnoreMarker &&
		at(1) == tokenizer.TrimLeadingBracket(at(3)) {
		return at(1) + " " + stripped, 2
	}

	if word == tokenizer.TrimLeadingBracket(at(1)) {
		return stripped, 1
	}
	return "", 0
}

func placeholder(word string) bool {
	return word == IgnoreMarker || word == NumberGroup
}
