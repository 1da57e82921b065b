// Package source turns input files into checker units. Plain text is split
// into paragraphs at blank lines, XML documents into their block elements,
// and YAML or JSON files are read as explicit unit lists.
package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker"
)

// Text reads paragraphs separated by blank lines. Each paragraph becomes one
// unit whose line is the paragraph's first line.
func Text(r io.Reader, file string) ([]checker.Unit, error) {
	var (
		units []checker.Unit
		lines []string
		first int
	)
	flush := func() {
		if len(lines) == 0 {
			return
		}
		units = append(units, checker.Unit{
			Raw:  norm.NFC.String(strings.Join(lines, " ")),
			File: file,
			Line: first,
		})
		lines = lines[:0]
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			flush()
			continue
		}
		if len(lines) == 0 {
			first = n
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	flush()
	return units, nil
}

// List decodes a YAML or JSON list of units. Units without a line number get
// their position in the list, counting from 1.
func List(data []byte, format string, file string) ([]checker.Unit, error) {
	var units []checker.Unit
	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, &units); err != nil {
			return nil, fmt.Errorf("decoding yaml units: %w", err)
		}
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&units); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decoding json units: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported unit list format %q", format)
	}
	for i := range units {
		u := &units[i]
		u.Raw = norm.NFC.String(u.Raw)
		u.Pretty = norm.NFC.String(u.Pretty)
		if u.File == "" {
			u.File = file
		}
		if u.Line == 0 {
			u.Line = i + 1
		}
	}
	return units, nil
}

// LoadFile reads units from path, choosing the reader by extension: .yaml,
// .yml and .json are unit lists, .xml is a document, anything else is
// plain text. A path of "-" reads plain text from stdin.
func LoadFile(path string) ([]checker.Unit, error) {
	if path == "-" {
		return Text(os.Stdin, "")
	}
	name := filepath.Base(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		format := "yaml"
		if strings.EqualFold(filepath.Ext(path), ".json") {
			format = "json"
		}
		return List(data, format, name)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	if strings.EqualFold(filepath.Ext(path), ".xml") {
		return XML(f, name)
	}
	return Text(f, name)
}
