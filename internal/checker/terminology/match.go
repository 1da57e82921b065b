package terminology

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker/diagnostic"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker/tokenizer"
)

type contextPattern struct {
	re       *regexp2.Regexp
	offsets  []int
	positive bool
}

type group struct {
	patterns []*regexp2.Regexp
	contexts []contextPattern
}

type rule struct {
	accept        string
	acceptContext string
	groups        []group
}

// RuleSet is a compiled, immutable set of terminology rules. It is safe for
// concurrent use by any number of scans.
type RuleSet struct {
	rules      []rule
	groupCount int
	ignored    *regexp2.Regexp
	prefilter  *regexp2.Regexp
	version    string
}

// Version identifies the definitions the RuleSet was compiled from.
func (rs *RuleSet) Version() string { return rs.version }

// Rules returns the number of rules.
func (rs *RuleSet) Rules() int { return len(rs.rules) }

// Groups returns the number of pattern groups across all rules.
func (rs *RuleSet) Groups() int { return rs.groupCount }

// HasPrefilter reports whether sentences are screened before scanning.
func (rs *RuleSet) HasPrefilter() bool { return rs.prefilter != nil }

// ScanStats describes the work done by one scan.
type ScanStats struct {
	Prefiltered bool
	Evaluated   int
	Ignored     int
}

// Scan checks a sentence against every rule and returns one diagnostic per
// accepted phrase match.
func (rs *RuleSet) Scan(s tokenizer.Sentence) ([]diagnostic.Diagnostic, error) {
	diags, _, err := rs.ScanWithStats(s)
	return diags, err
}

// ScanWithStats is Scan that also reports what the scan did.
//
// Tokens are visited left to right. At each position the rules are tried in
// declared order and, within a rule, its pattern groups in declared order;
// the first group whose tokens and context patterns all match wins and the
// scan resumes after the last token it consumed.
func (rs *RuleSet) ScanWithStats(s tokenizer.Sentence) ([]diagnostic.Diagnostic, ScanStats, error) {
	var stats ScanStats
	if rs == nil || len(s.Tokens) == 0 {
		return nil, stats, nil
	}
	if rs.prefilter != nil {
		ok, err := rs.prefilter.MatchString(prefilterText(s.Tokens))
		if err != nil {
			return nil, stats, fmt.Errorf("running prefilter: %w", err)
		}
		if !ok {
			stats.Prefiltered = true
			return nil, stats, nil
		}
	}

	var diags []diagnostic.Diagnostic
	tokens := s.Tokens
	for i := 0; i < len(tokens); {
		first := tokenizer.TrimLeadingBracket(tokens[i].Text)
		if rs.ignored != nil {
			ok, err := rs.ignored.MatchString(first)
			if err != nil {
				return nil, stats, fmt.Errorf("matching ignored words: %w", err)
			}
			if ok {
				stats.Ignored++
				i++
				continue
			}
		}
		stats.Evaluated++
		m, err := rs.matchAt(tokens, i, first)
		if err != nil {
			return nil, stats, err
		}
		if m == nil {
			i++
			continue
		}
		diags = append(diags, diagnostic.Terminology(s, i, m.span, m.text, m.rule.accept, m.rule.acceptContext))
		i += m.span
	}
	return diags, stats, nil
}

type match struct {
	rule *rule
	text string
	span int
}

func (rs *RuleSet) matchAt(tokens []tokenizer.Token, start int, first string) (*match, error) {
	for ri := range rs.rules {
		r := &rs.rules[ri]
		for gi := range r.groups {
			g := &r.groups[gi]
			if start+len(g.patterns) > len(tokens) {
				continue
			}
			text, ok, err := g.matchTokens(tokens, start, first)
			if err != nil {
				return nil, fmt.Errorf("rule %d, group %d: %w", ri, gi, err)
			}
			if !ok {
				continue
			}
			accepted, err := g.contextsSatisfied(tokens, start)
			if err != nil {
				return nil, fmt.Errorf("rule %d, group %d: %w", ri, gi, err)
			}
			if accepted {
				return &match{rule: r, text: text, span: len(g.patterns)}, nil
			}
		}
	}
	return nil, nil
}

// matchTokens matches the group's patterns against consecutive tokens. The
// first token is matched without its leading bracket, the others as they
// are.
func (g *group) matchTokens(tokens []tokenizer.Token, start int, first string) (string, bool, error) {
	parts := make([]string, 0, len(g.patterns))
	for k, re := range g.patterns {
		word := first
		if k > 0 {
			word = tokens[start+k].Text
		}
		m, err := re.FindStringMatch(word)
		if err != nil {
			return "", false, err
		}
		if m == nil {
			return "", false, nil
		}
		parts = append(parts, m.String())
	}
	return strings.Join(parts, " "), true, nil
}

func (g *group) contextsSatisfied(tokens []tokenizer.Token, start int) (bool, error) {
	if len(g.contexts) == 0 {
		return true, nil
	}
	satisfied := 0
	for i := range g.contexts {
		ok, err := g.contexts[i].satisfied(tokens, start, len(g.patterns))
		if err != nil {
			return false, err
		}
		if ok {
			satisfied++
		}
	}
	if satisfied > len(g.contexts) {
		return false, fmt.Errorf("%w: %d of %d", ErrContextOverflow, satisfied, len(g.contexts))
	}
	return satisfied == len(g.contexts), nil
}

func (c *contextPattern) satisfied(tokens []tokenizer.Token, start, span int) (bool, error) {
	window := c.window(tokens, start, span)
	if window == "" {
		return !c.positive, nil
	}
	found, err := c.re.MatchString(window)
	if err != nil {
		return false, err
	}
	return found == c.positive, nil
}

// window joins the tokens at the pattern's offsets. Offsets before the match
// count from its first token, offsets after it from its last token. Offsets
// outside the sentence are dropped.
func (c *contextPattern) window(tokens []tokenizer.Token, start, span int) string {
	var b strings.Builder
	for _, off := range c.offsets {
		pos := start + off
		if off > 0 {
			pos += span - 1
		}
		if pos < 0 || pos >= len(tokens) {
			continue
		}
		b.WriteString(tokens[pos].Text)
		b.WriteByte(' ')
	}
	return b.String()
}

// prefilterText puts each token on its own line, stripped the way the first
// pattern of a group sees it.
func prefilterText(tokens []tokenizer.Token) string {
	var b strings.Builder
	for i, t := range tokens {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(tokenizer.TrimLeadingBracket(t.Text))
	}
	return b.String()
}
