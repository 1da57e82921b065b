package report

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker/diagnostic"
)

func writeJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding json report: %w", err)
	}
	return nil
}

// The XML layout groups results into one part per check:
//
//	<results>
//	  <results-title>Style Checker Results for guide.xml</results-title>
//	  <part check="terminology">
//	    <result>
//	      <place><file>guide.xml</file><withinid>sec</withinid><line>3</line></place>
//	      <error>Do not use «e-mail»<quote>Send an e-mail.</quote></error>
//	      <suggestion>Use «email» instead.</suggestion>
//	    </result>
//	  </part>
//	</results>
//
// A clean report has a single <result> with an <info> element instead of
// parts.
type xmlResults struct {
	XMLName xml.Name    `xml:"results"`
	Version string      `xml:"ruleset,attr,omitempty"`
	Title   string      `xml:"results-title"`
	Parts   []xmlPart   `xml:"part"`
	Clean   []xmlResult `xml:"result"`
}

type xmlPart struct {
	Check   string      `xml:"check,attr"`
	Results []xmlResult `xml:"result"`
}

type xmlResult struct {
	Place       *xmlPlace   `xml:"place,omitempty"`
	Error       *xmlMessage `xml:"error,omitempty"`
	Warning     *xmlMessage `xml:"warning,omitempty"`
	Info        *xmlMessage `xml:"info,omitempty"`
	Suggestions []string    `xml:"suggestion"`
}

type xmlPlace struct {
	File     string `xml:"file,omitempty"`
	WithinID string `xml:"withinid,omitempty"`
	Line     int    `xml:"line"`
}

type xmlMessage struct {
	Text  string `xml:",chardata"`
	Quote string `xml:"quote,omitempty"`
}

func toXMLResult(d diagnostic.Diagnostic) xmlResult {
	res := xmlResult{Suggestions: d.Suggestions}
	if d.Check != diagnostic.CheckSummary {
		res.Place = &xmlPlace{File: d.Location.File, WithinID: d.Location.ContextID, Line: d.Location.Line}
	}
	msg := &xmlMessage{Text: d.Message, Quote: d.Content}
	switch d.Severity {
	case diagnostic.SeverityError:
		res.Error = msg
	case diagnostic.SeverityWarning:
		res.Warning = msg
	default:
		res.Info = msg
	}
	return res
}

func writeXML(w io.Writer, r Report) error {
	doc := xmlResults{
		Version: r.RuleSetVersion,
		Title:   "Style Checker Results for " + r.Title,
	}
	index := map[diagnostic.Check]int{}
	for _, d := range r.Diagnostics {
		if d.Check == diagnostic.CheckSummary {
			doc.Clean = append(doc.Clean, toXMLResult(d))
			continue
		}
		i, ok := index[d.Check]
		if !ok {
			i = len(doc.Parts)
			index[d.Check] = i
			doc.Parts = append(doc.Parts, xmlPart{Check: string(d.Check)})
		}
		doc.Parts[i].Results = append(doc.Parts[i].Results, toXMLResult(d))
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding xml report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
