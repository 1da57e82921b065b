// Package diagnostic defines the records produced by the style checks and
// the message templates shared by every detector.
package diagnostic

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker/tokenizer"
)

// Severity ranks a diagnostic.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText encodes the severity as its name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a severity name.
func (s *Severity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "info":
		*s = SeverityInfo
	case "warning":
		*s = SeverityWarning
	case "error":
		*s = SeverityError
	default:
		return fmt.Errorf("unknown severity %q", string(b))
	}
	return nil
}

// Check names the detector that produced a diagnostic.
type Check string

const (
	CheckTerminology Check = "terminology"
	CheckDuplicate   Check = "duplicate"
	CheckLength      Check = "sentence-length"
	CheckSummary     Check = "summary"
)

// Location points at the unit a diagnostic was raised in. File and
// ContextID are optional.
type Location struct {
	File      string `json:"file,omitempty" yaml:"file,omitempty"`
	ContextID string `json:"context_id,omitempty" yaml:"contextId,omitempty"`
	Line      int    `json:"line" yaml:"line"`
}

// Diagnostic is a single style finding.
type Diagnostic struct {
	Check       Check    `json:"check"`
	Severity    Severity `json:"severity"`
	Location    Location `json:"location"`
	Match       string   `json:"match,omitempty"`
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions,omitempty"`
	Content     string   `json:"content,omitempty"`
	Excerpt     string   `json:"excerpt,omitempty"`
}

// Quote wraps text in the guillemets used by every message template.
func Quote(text string) string {
	return "«" + text + "»"
}

// LocationOf returns the location of the unit s belongs to.
func LocationOf(s tokenizer.Sentence) Location {
	return Location{File: s.File, ContextID: s.ContextID, Line: s.Line}
}

func base(check Check, severity Severity, s tokenizer.Sentence) Diagnostic {
	return Diagnostic{
		Check:    check,
		Severity: severity,
		Location: LocationOf(s),
		Content:  s.Pretty,
	}
}

// Terminology reports a phrase that violates a terminology rule. match is
// the matched text, start and n the token span it covers. An empty accept
// marks a removal rule.
func Terminology(s tokenizer.Sentence, start, n int, match, accept, acceptContext string) Diagnostic {
	d := base(CheckTerminology, SeverityError, s)
	d.Match = match
	d.Excerpt = Highlight(tokenizer.Texts(s.Tokens), start, n)
	switch {
	case accept == "":
		d.Message = fmt.Sprintf("Do not use %s here", Quote(match))
		d.Suggestions = []string{fmt.Sprintf("Remove %s.", Quote(match))}
		return d
	case acceptContext != "":
		d.Message = fmt.Sprintf("In the context of %s, do not use %s", acceptContext, Quote(match))
	default:
		d.Message = fmt.Sprintf("Do not use %s", Quote(match))
	}
	d.Suggestions = []string{fmt.Sprintf("Use %s instead.", Quote(accept))}
	return d
}

// Duplicate reports a repeated word or phrase ending at token end.
func Duplicate(s tokenizer.Sentence, end, n int, phrase string) Diagnostic {
	d := base(CheckDuplicate, SeverityError, s)
	d.Match = phrase
	d.Message = fmt.Sprintf("%s is duplicated", Quote(phrase))
	d.Suggestions = []string{fmt.Sprintf("Remove one instance of %s.", Quote(phrase))}
	d.Excerpt = Highlight(tokenizer.Texts(s.Tokens), end-n+1, n)
	return d
}

// Length reports an overly long sentence.
func Length(s tokenizer.Sentence, severity Severity, words int) Diagnostic {
	d := base(CheckLength, severity, s)
	d.Message = fmt.Sprintf("Sentence with %d words", words)
	d.Suggestions = []string{"Remove unnecessary words.", "Split the sentence."}
	d.Excerpt = s.Text
	return d
}

// Clean is the informational record emitted for a report without findings.
func Clean() Diagnostic {
	return Diagnostic{
		Check:       CheckSummary,
		Severity:    SeverityInfo,
		Message:     "No problems detected.",
		Suggestions: []string{"Celebrate!"},
	}
}

// Highlight joins words with spaces and wraps the n words starting at start
// in a highlight element. Out-of-range spans are clamped.
func Highlight(words []string, start, n int) string {
	if start < 0 {
		n += start
		start = 0
	}
	end := start + n
	if end > len(words) {
		end = len(words)
	}
	if n <= 0 || start >= end {
		return strings.Join(words, " ")
	}
	parts := make([]string, 0, 3)
	if start > 0 {
		parts = append(parts, strings.Join(words[:start], " "))
	}
	parts = append(parts, "<highlight>"+strings.Join(words[start:end], " ")+"</highlight>")
	if end < len(words) {
		parts = append(parts, strings.Join(words[end:], " "))
	}
	return strings.Join(parts, " ")
}

// Filter keeps the diagnostics at or above min.
func Filter(diags []Diagnostic, min Severity) []Diagnostic {
	out := make([]Diagnostic, 0, len(diags))
	for _, d := range diags {
		if d.Severity >= min {
			out = append(out, d)
		}
	}
	return out
}
