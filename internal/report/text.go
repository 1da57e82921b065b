package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker/diagnostic"
)

const (
	highlightOpen  = "<highlight>"
	highlightClose = "</highlight>"
)

type palette struct {
	severity map[diagnostic.Severity]*color.Color
	place    *color.Color
	match    *color.Color
	hint     *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		severity: map[diagnostic.Severity]*color.Color{
			diagnostic.SeverityError:   color.New(color.FgRed, color.Bold),
			diagnostic.SeverityWarning: color.New(color.FgYellow, color.Bold),
			diagnostic.SeverityInfo:    color.New(color.FgGreen, color.Bold),
		},
		place: color.New(color.Bold),
		match: color.New(color.FgRed, color.Underline),
		hint:  color.New(color.FgCyan),
	}
	all := []*color.Color{p.place, p.match, p.hint}
	for _, c := range p.severity {
		all = append(all, c)
	}
	for _, c := range all {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func writeText(w io.Writer, r Report, enabled bool) error {
	p := newPalette(enabled)
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "Style Checker Results for %s\n\n", r.Title)
	for _, d := range r.Diagnostics {
		if place := placeOf(d.Location); place != "" {
			p.place.Fprint(bw, place)
			fmt.Fprint(bw, ": ")
		}
		p.severity[d.Severity].Fprint(bw, d.Severity.String())
		fmt.Fprintf(bw, ": %s\n", d.Message)
		if d.Excerpt != "" {
			fmt.Fprintf(bw, "    %s\n", p.excerpt(d.Excerpt))
		}
		for _, s := range d.Suggestions {
			fmt.Fprint(bw, "    ")
			p.hint.Fprintln(bw, s)
		}
	}
	if !r.Clean() {
		fmt.Fprintf(bw, "\n%s in %s %s\n",
			counts(r.Summary),
			humanize.Comma(int64(r.Summary.Units)),
			plural(r.Summary.Units, "unit", "units"),
		)
	}
	return bw.Flush()
}

// excerpt replaces the highlight markers with color.
func (p palette) excerpt(s string) string {
	start := strings.Index(s, highlightOpen)
	end := strings.Index(s, highlightClose)
	if start < 0 || end < start {
		return s
	}
	inner := s[start+len(highlightOpen) : end]
	return s[:start] + p.match.Sprint(inner) + s[end+len(highlightClose):]
}

func placeOf(l diagnostic.Location) string {
	var b strings.Builder
	if l.File != "" {
		b.WriteString(l.File)
	}
	if l.Line > 0 {
		if b.Len() > 0 {
			b.WriteByte(':')
		} else {
			b.WriteString("line ")
		}
		b.WriteString(strconv.Itoa(l.Line))
	}
	if l.ContextID != "" {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "(%s)", l.ContextID)
	}
	return b.String()
}

func counts(s Summary) string {
	var parts []string
	if s.Errors > 0 {
		parts = append(parts, humanize.Comma(int64(s.Errors))+" "+plural(s.Errors, "error", "errors"))
	}
	if s.Warnings > 0 {
		parts = append(parts, humanize.Comma(int64(s.Warnings))+" "+plural(s.Warnings, "warning", "warnings"))
	}
	return strings.Join(parts, ", ")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
