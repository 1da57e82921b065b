// Package length flags sentences that are too long to read comfortably.
package length

import (
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker/diagnostic"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker/tokenizer"
)

const (
	// WarnWords is the word count at which a sentence draws a warning.
	WarnWords = 26
	// ErrorWords is the word count at which a sentence draws an error.
	ErrorWords = 33
)

// Scan returns at most one diagnostic for the sentence.
func Scan(s tokenizer.Sentence) []diagnostic.Diagnostic {
	n := len(s.Tokens)
	if n < WarnWords {
		return nil
	}
	sev := diagnostic.SeverityWarning
	if n >= ErrorWords {
		sev = diagnostic.SeverityError
	}
	return []diagnostic.Diagnostic{diagnostic.Length(s, sev, n)}
}
