// Package report collects diagnostics into a report and renders it as
// colored text, JSON or XML.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker/diagnostic"
)

// Format is an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatXML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want text, json or xml)", s)
	}
}

// Options control which diagnostics a report keeps.
type Options struct {
	// ErrorsOnly drops warnings and informational results.
	ErrorsOnly bool
	// RuleSetVersion is recorded in the report header.
	RuleSetVersion string
}

// Summary counts a report's findings.
type Summary struct {
	Units    int `json:"units"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
}

// Report is the result of checking one input.
type Report struct {
	Title          string                  `json:"title"`
	RuleSetVersion string                  `json:"rule_set_version,omitempty"`
	Summary        Summary                 `json:"summary"`
	Diagnostics    []diagnostic.Diagnostic `json:"diagnostics"`
}

// Build flattens per-unit results into a report. A report without findings
// carries a single informational result saying so.
func Build(title string, results [][]diagnostic.Diagnostic, opts Options) Report {
	r := Report{
		Title:          title,
		RuleSetVersion: opts.RuleSetVersion,
		Summary:        Summary{Units: len(results)},
	}
	for _, diags := range results {
		if opts.ErrorsOnly {
			diags = diagnostic.Filter(diags, diagnostic.SeverityError)
		}
		for _, d := range diags {
			switch d.Severity {
			case diagnostic.SeverityError:
				r.Summary.Errors++
			case diagnostic.SeverityWarning:
				r.Summary.Warnings++
			}
			r.Diagnostics = append(r.Diagnostics, d)
		}
	}
	if len(r.Diagnostics) == 0 {
		r.Diagnostics = []diagnostic.Diagnostic{diagnostic.Clean()}
	}
	return r
}

// Clean reports whether the report has no findings.
func (r Report) Clean() bool {
	return r.Summary.Errors == 0 && r.Summary.Warnings == 0
}

// Write renders the report to w.
func (r Report) Write(w io.Writer, f Format, color bool) error {
	switch f {
	case FormatText, "":
		return writeText(w, r, color)
	case FormatJSON:
		return writeJSON(w, r)
	case FormatXML:
		return writeXML(w, r)
	default:
		return fmt.Errorf("unknown report format %q", f)
	}
}
