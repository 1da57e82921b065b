package source

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker/duplicate"
)

// blockElements hold prose that is checked as one unit.
var blockElements = map[string]bool{
	"para": true, "simpara": true, "title": true,
	"subtitle": true, "term": true, "entry": true, "member": true,
	"remark": true, "glossterm": true,
	"p": true, "li": true, "td": true, "th": true, "dt": true, "dd": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// markupElements contain literal input or names. Their text is shown in the
// display form but replaced by an ignore marker in the checked form.
var markupElements = map[string]bool{
	"command": true, "literal": true, "filename": true, "option": true,
	"replaceable": true, "code": true, "systemitem": true, "envar": true,
	"uri": true, "userinput": true, "varname": true, "function": true,
	"parameter": true, "package": true, "keycap": true, "email": true,
	"tt": true, "kbd": true, "var": true,
}

// skipElements are dropped with everything inside them.
var skipElements = map[string]bool{
	"screen": true, "programlisting": true, "synopsis": true,
	"literallayout": true, "pre": true, "script": true, "style": true,
}

type block struct {
	index     int
	raw       strings.Builder
	pretty    strings.Builder
	contextID string
	line      int
}

type frame struct {
	name string
	id   string
}

// XML extracts one unit per block element of a DocBook or HTML-like
// document. The unit's context id is the id of the nearest enclosing
// element that has one. A block nested in another block, such as a para in
// a table entry, is a unit of its own.
func XML(r io.Reader, file string) ([]checker.Unit, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	var (
		units  []checker.Unit
		used   []bool
		stack  []frame
		blocks []*block
		markup int
		skip   int
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", file, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := strings.ToLower(t.Name.Local)
			stack = append(stack, frame{name: name, id: elementID(t)})
			switch {
			case skip > 0 || skipElements[name]:
				skip++
			case blockElements[name]:
				line, _ := dec.InputPos()
				blocks = append(blocks, &block{index: len(units), contextID: nearestID(stack), line: line})
				units = append(units, checker.Unit{})
				used = append(used, false)
			case markupElements[name] && len(blocks) > 0:
				if markup == 0 {
					b := blocks[len(blocks)-1]
					b.raw.WriteString(" " + duplicate.IgnoreMarker + " ")
				}
				markup++
			}
		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			name := stack[len(stack)-1].name
			stack = stack[:len(stack)-1]
			switch {
			case skip > 0:
				skip--
			case blockElements[name] && len(blocks) > 0:
				b := blocks[len(blocks)-1]
				blocks = blocks[:len(blocks)-1]
				raw := collapse(b.raw.String())
				if raw == "" {
					continue
				}
				units[b.index] = checker.Unit{
					Raw:       raw,
					Pretty:    collapse(b.pretty.String()),
					ContextID: b.contextID,
					File:      file,
					Line:      b.line,
				}
				used[b.index] = true
			case markupElements[name] && markup > 0:
				markup--
			}
		case xml.CharData:
			if skip > 0 || len(blocks) == 0 {
				continue
			}
			b := blocks[len(blocks)-1]
			b.pretty.Write(t)
			if markup == 0 {
				b.raw.Write(t)
			}
		}
	}

	out := make([]checker.Unit, 0, len(units))
	for i, u := range units {
		if used[i] {
			out = append(out, u)
		}
	}
	return out, nil
}

func elementID(t xml.StartElement) string {
	for _, a := range t.Attr {
		if a.Name.Local == "id" {
			return a.Value
		}
	}
	return ""
}

func nearestID(stack []frame) string {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].id != "" {
			return stack[i].id
		}
	}
	return ""
}

func collapse(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}
