package rules

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker/terminology"
)

type xmlTerminology struct {
	UseOnePattern string    `xml:"useonepattern,attr"`
	IgnoredWords  string    `xml:"ignoredwords"`
	Terms         []xmlTerm `xml:"term"`
}

type xmlTerm struct {
	Accept        *xmlAccept        `xml:"accept"`
	PatternGroups []xmlPatternGroup `xml:"patterngroup"`
}

type xmlAccept struct {
	Word    string `xml:"word"`
	Context string `xml:"context"`
}

type xmlPatternGroup struct {
	Pattern1        *xmlPattern         `xml:"pattern1"`
	Pattern2        *xmlPattern         `xml:"pattern2"`
	Pattern3        *xmlPattern         `xml:"pattern3"`
	Pattern4        *xmlPattern         `xml:"pattern4"`
	Pattern5        *xmlPattern         `xml:"pattern5"`
	ContextPatterns []xmlContextPattern `xml:"contextpattern"`
}

type xmlPattern struct {
	Case string `xml:"case,attr"`
	Text string `xml:",chardata"`
}

type xmlContextPattern struct {
	Case  string `xml:"case,attr"`
	Look  string `xml:"look,attr"`
	Where string `xml:"where,attr"`
	Mode  string `xml:"mode,attr"`
	Match string `xml:"match,attr"`
	Text  string `xml:",chardata"`
}

func parseXML(data []byte) (terminology.Definitions, error) {
	var doc xmlTerminology
	if err := xml.Unmarshal(data, &doc); err != nil {
		return terminology.Definitions{}, fmt.Errorf("decoding xml rules: %w", err)
	}

	defs := terminology.Definitions{
		IgnoredWords: strings.TrimSpace(doc.IgnoredWords),
		Prefilter:    doc.UseOnePattern != "no",
		Rules:        make([]terminology.RuleDefinition, 0, len(doc.Terms)),
	}
	for ti, term := range doc.Terms {
		var rule terminology.RuleDefinition
		if term.Accept != nil {
			rule.Accept = strings.TrimSpace(term.Accept.Word)
			rule.AcceptContext = strings.TrimSpace(term.Accept.Context)
		}
		for gi, pg := range term.PatternGroups {
			g, err := pg.definition()
			if err != nil {
				return terminology.Definitions{}, fmt.Errorf("term %d, pattern group %d: %w", ti, gi, err)
			}
			rule.Groups = append(rule.Groups, g)
		}
		defs.Rules = append(defs.Rules, rule)
	}
	return defs, nil
}

// definition converts a pattern group. Patterns are read in order and the
// first missing one ends the phrase; a missing first pattern is kept as an
// empty pattern so that compilation reports it.
func (pg xmlPatternGroup) definition() (terminology.GroupDefinition, error) {
	var g terminology.GroupDefinition
	for i, p := range []*xmlPattern{pg.Pattern1, pg.Pattern2, pg.Pattern3, pg.Pattern4, pg.Pattern5} {
		if p == nil || p.Text == "" {
			if i == 0 {
				g.Patterns = append(g.Patterns, terminology.PatternDefinition{})
			}
			break
		}
		g.Patterns = append(g.Patterns, terminology.PatternDefinition{
			Text:     p.Text,
			KeepCase: p.Case == "keep",
		})
	}
	for _, cp := range pg.ContextPatterns {
		where := 0
		if cp.Where != "" {
			n, err := strconv.Atoi(strings.TrimSpace(cp.Where))
			if err != nil {
				return g, fmt.Errorf("contextpattern where %q: %w", cp.Where, err)
			}
			where = n
		}
		c := terminology.ContextDefinition{
			Text:     cp.Text,
			Where:    where,
			KeepCase: cp.Case == "keep",
		}
		if cp.Look == string(terminology.LookBefore) {
			c.Look = terminology.LookBefore
		}
		if cp.Mode == string(terminology.ModeFuzzy) {
			c.Mode = terminology.ModeFuzzy
		}
		if cp.Match == string(terminology.PolarityNegative) {
			c.Match = terminology.PolarityNegative
		}
		g.Contexts = append(g.Contexts, c)
	}
	return g, nil
}
