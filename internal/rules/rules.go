// Package rules reads terminology rule definitions from files or http(s)
// URLs. Rules can be written in YAML, TOML or JSON using the field names of
// terminology.Definitions, or in the XML terminology format with <term>, <patterngroup>,
// <pattern1>..<pattern5> and <contextpattern> elements.
package rules

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker/terminology"
)

// Format is a rule file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatXML  Format = "xml"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	case ".xml":
		return FormatXML, nil
	default:
		return "", fmt.Errorf("unknown rule file extension %q", filepath.Ext(path))
	}
}

// document is the YAML/TOML/JSON file layout. Prefilter is optional and defaults
// to on.
type document struct {
	Rules        []terminology.RuleDefinition `yaml:"rules" json:"rules" toml:"rules"`
	IgnoredWords string                       `yaml:"ignoredWords" json:"ignored_words" toml:"ignoredWords"`
	Prefilter    *bool                        `yaml:"prefilter" json:"prefilter" toml:"prefilter"`
}

func (d document) definitions() terminology.Definitions {
	prefilter := true
	if d.Prefilter != nil {
		prefilter = *d.Prefilter
	}
	return terminology.Definitions{
		Rules:        d.Rules,
		IgnoredWords: d.IgnoredWords,
		Prefilter:    prefilter,
	}
}

// Parse decodes rule definitions. Unknown fields are rejected.
func Parse(data []byte, format Format) (terminology.Definitions, error) {
	switch format {
	case FormatYAML:
		var doc document
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return terminology.Definitions{}, fmt.Errorf("decoding yaml rules: %w", err)
		}
		return doc.definitions(), nil
	case FormatJSON:
		var doc document
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return terminology.Definitions{}, fmt.Errorf("decoding json rules: %w", err)
		}
		return doc.definitions(), nil
	case FormatTOML:
		var doc document
		meta, err := toml.Decode(string(data), &doc)
		if err != nil {
			return terminology.Definitions{}, fmt.Errorf("decoding toml rules: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return terminology.Definitions{}, fmt.Errorf("decoding toml rules: unknown field %q", undecoded[0].String())
		}
		return doc.definitions(), nil
	case FormatXML:
		return parseXML(data)
	default:
		return terminology.Definitions{}, fmt.Errorf("unsupported rule format %q", format)
	}
}

// LoadFile reads and decodes a rule file, choosing the format from its
// extension.
func LoadFile(path string) (terminology.Definitions, error) {
	format, err := FormatOf(path)
	if err != nil {
		return terminology.Definitions{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return terminology.Definitions{}, fmt.Errorf("reading rules file %s: %w", path, err)
	}
	defs, err := Parse(data, format)
	if err != nil {
		return terminology.Definitions{}, fmt.Errorf("parsing rules file %s: %w", path, err)
	}
	return defs, nil
}

// Override adjusts loaded definitions.
type Override func(*terminology.Definitions)

// WithPrefilter forces the pre-filter on or off regardless of the file.
func WithPrefilter(on bool) Override {
	return func(d *terminology.Definitions) {
		d.Prefilter = on
	}
}

// WithIgnoredWords replaces the ignored-word pattern when p is not empty.
func WithIgnoredWords(p string) Override {
	return func(d *terminology.Definitions) {
		if p != "" {
			d.IgnoredWords = p
		}
	}
}

// Loader returns a function that rereads path on every call, suitable for
// checker.Engine.Reload. An http or https URL is fetched with a retrying
// client built from DefaultHTTPOptions.
func Loader(path string, overrides ...Override) func(context.Context) (terminology.Definitions, error) {
	if IsURL(path) {
		return RemoteLoader(path, NewHTTPClient(DefaultHTTPOptions()), overrides...)
	}
	return func(ctx context.Context) (terminology.Definitions, error) {
		if err := ctx.Err(); err != nil {
			return terminology.Definitions{}, err
		}
		defs, err := LoadFile(path)
		if err != nil {
			return terminology.Definitions{}, err
		}
		apply(&defs, overrides)
		return defs, nil
	}
}

func apply(defs *terminology.Definitions, overrides []Override) {
	for _, o := range overrides {
		o(defs)
	}
}
