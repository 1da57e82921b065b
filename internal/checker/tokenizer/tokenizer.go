// Package tokenizer splits the text of a checkable unit into sentences and
// sentences into whitespace-delimited tokens. Unlike an indexing tokenizer it
// keeps case and punctuation: every detector decides on its own which
// punctuation to ignore.
package tokenizer

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// sentenceBoundary matches the punctuation that ends a sentence together
// with the whitespace after it. Lookbehinds must stay short, so the
// abbreviation list is fixed here; " ca" carries its leading space to avoid
// matching words such as "Africa".
var sentenceBoundary = regexp2.MustCompile(
	`(?<![Ee]\.g|[Ee]\.\s?g|etc|[Ii]\.e|[Ii]\.\s?e| ca|n\.b|[Ii]nc)`+
		`(?!(?<=\b[Ee])\.\s[Gg]\.|(?<=\b[Ii])\.\s[Ee]\.)`+
		`\.?\.?\.(?:\s+|$)|!(?:\s+|$)|\.?\.?\?(?:\s+|$)`,
	regexp2.None,
)

// Token is a single whitespace-delimited word and its ordinal position in
// the sentence.
type Token struct {
	Text     string
	Position int
}

// Sentence is a tokenized sentence plus the location and content of the unit
// it was cut from.
type Sentence struct {
	Text      string
	Tokens    []Token
	File      string
	ContextID string
	Line      int
	Raw       string
	Pretty    string
}

// Segment splits text into sentences. The terminating punctuation and the
// whitespace after it are dropped; empty fragments are skipped.
func Segment(text string) []string {
	runes := []rune(text)
	sentences := make([]string, 0, 4)
	start := 0
	m, err := sentenceBoundary.FindRunesMatch(runes)
	for err == nil && m != nil {
		sentences = appendSentence(sentences, string(runes[start:m.Index]))
		start = m.Index + m.Length
		m, err = sentenceBoundary.FindNextMatch(m)
	}
	return appendSentence(sentences, string(runes[start:]))
}

func appendSentence(sentences []string, s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return sentences
	}
	return append(sentences, s)
}

// Tokenize breaks a sentence into tokens on any Unicode whitespace,
// non-breaking space included.
func Tokenize(sentence string) []Token {
	words := strings.Fields(sentence)
	tokens := make([]Token, len(words))
	for i, word := range words {
		tokens[i] = Token{Text: word, Position: i}
	}
	return tokens
}

// Texts returns the raw text of every token.
func Texts(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Text
	}
	return out
}

// FromWords builds tokens from already-split words.
func FromWords(words ...string) []Token {
	tokens := make([]Token, len(words))
	for i, w := range words {
		tokens[i] = Token{Text: w, Position: i}
	}
	return tokens
}

// TrimLeadingBracket removes a single opening bracket from the start of word.
func TrimLeadingBracket(word string) string {
	for _, p := range []string{"(", "[", "{"} {
		if strings.HasPrefix(word, p) {
			return word[len(p):]
		}
	}
	return word
}

// TrimTrailingPunct removes a single closing bracket, slash or punctuation
// mark from the end of word.
func TrimTrailingPunct(word string) string {
	for _, p := range []string{")", "]", "}", "/", `\`, ",", ":", ";", "!", "."} {
		if strings.HasSuffix(word, p) {
			return word[:len(word)-len(p)]
		}
	}
	return word
}
