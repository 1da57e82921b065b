package rules

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker/terminology"
)

const yamlRules = `
ignoredWords: "SUSE|openSUSE"
rules:
  - accept: email
    groups:
      - patterns:
          - text: e-mail
  - accept: log in
    acceptContext: verbs
    groups:
      - patterns:
          - text: login
        contexts:
          - text: to
            look: before
            where: 2
            mode: fuzzy
  - groups:
      - patterns:
          - text: very
          - text: unique
            keepCase: true
`

const xmlRules = `<?xml version="1.0" encoding="UTF-8"?>
<terminology>
  <ignoredwords>SUSE|openSUSE</ignoredwords>
  <term>
    <accept><word>email</word></accept>
    <patterngroup><pattern1>e-mail</pattern1></patterngroup>
  </term>
  <term>
    <accept><word>log in</word><context>verbs</context></accept>
    <patterngroup>
      <pattern1>login</pattern1>
      <contextpattern look="before" where="2" mode="fuzzy">to</contextpattern>
    </patterngroup>
  </term>
  <term>
    <patterngroup>
      <pattern1>very</pattern1>
      <pattern2 case="keep">unique</pattern2>
      <pattern4>skipped</pattern4>
    </patterngroup>
  </term>
</terminology>
`

func expected() terminology.Definitions {
	return terminology.Definitions{
		IgnoredWords: "SUSE|openSUSE",
		Prefilter:    true,
		Rules: []terminology.RuleDefinition{
			{Accept: "email", Groups: []terminology.GroupDefinition{
				{Patterns: []terminology.PatternDefinition{{Text: "e-mail"}}},
			}},
			{Accept: "log in", AcceptContext: "verbs", Groups: []terminology.GroupDefinition{
				{
					Patterns: []terminology.PatternDefinition{{Text: "login"}},
					Contexts: []terminology.ContextDefinition{
						{Text: "to", Look: terminology.LookBefore, Where: 2, Mode: terminology.ModeFuzzy},
					},
				},
			}},
			{Groups: []terminology.GroupDefinition{
				{Patterns: []terminology.PatternDefinition{{Text: "very"}, {Text: "unique", KeepCase: true}}},
			}},
		},
	}
}

func TestParseYAML(t *testing.T) {
	defs, err := Parse([]byte(yamlRules), FormatYAML)
	require.NoError(t, err)
	if diff := cmp.Diff(expected(), defs); diff != "" {
		t.Errorf("yaml rules mismatch (-want +got):\n%s", diff)
	}
}

func TestParseXML(t *testing.T) {
	defs, err := Parse([]byte(xmlRules), FormatXML)
	require.NoError(t, err)
	if diff := cmp.Diff(expected(), defs); diff != "" {
		t.Errorf("xml rules mismatch (-want +got):\n%s", diff)
	}
}

const tomlRules = `
ignoredWords = "SUSE|openSUSE"

[[rules]]
accept = "email"
  [[rules.groups]]
  patterns = [{ text = "e-mail" }]

[[rules]]
accept = "log in"
acceptContext = "verbs"
  [[rules.groups]]
  patterns = [{ text = "login" }]
  contexts = [{ text = "to", look = "before", where = 2, mode = "fuzzy" }]

[[rules]]
  [[rules.groups]]
  patterns = [{ text = "very" }, { text = "unique", keepCase = true }]
`

func TestParseTOML(t *testing.T) {
	defs, err := Parse([]byte(tomlRules), FormatTOML)
	require.NoError(t, err)
	if diff := cmp.Diff(expected(), defs); diff != "" {
		t.Errorf("toml rules mismatch (-want +got):\n%s", diff)
	}
}

func TestParseJSON(t *testing.T) {
	data := `{"prefilter": false, "rules": [{"accept": "email", "groups": [{"patterns": [{"text": "e-mail"}]}]}]}`
	defs, err := Parse([]byte(data), FormatJSON)
	require.NoError(t, err)
	assert.False(t, defs.Prefilter)
	require.Len(t, defs.Rules, 1)
	assert.Equal(t, "email", defs.Rules[0].Accept)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("rules:\n  - accpet: email\n"), FormatYAML)
	assert.Error(t, err)
	_, err = Parse([]byte(`{"rulez": []}`), FormatJSON)
	assert.Error(t, err)
	_, err = Parse([]byte("[[rules]]\naccpet = \"email\"\n"), FormatTOML)
	assert.ErrorContains(t, err, "accpet")
}

func TestParseEmptyYAML(t *testing.T) {
	defs, err := Parse(nil, FormatYAML)
	require.NoError(t, err)
	assert.Empty(t, defs.Rules)
	assert.True(t, defs.Prefilter)
}

func TestParseXMLOnePatternOff(t *testing.T) {
	defs, err := Parse([]byte(`<terminology useonepattern="no"/>`), FormatXML)
	require.NoError(t, err)
	assert.False(t, defs.Prefilter)
}

func TestParseXMLMissingFirstPatternFailsCompilation(t *testing.T) {
	defs, err := Parse([]byte(`<terminology><term><patterngroup><pattern2>x</pattern2></patterngroup></term></terminology>`), FormatXML)
	require.NoError(t, err)
	_, err = terminology.Compile(defs)
	assert.ErrorIs(t, err, terminology.ErrEmptyPattern)
}

func TestParseXMLBadWhere(t *testing.T) {
	_, err := Parse([]byte(`<terminology><term><patterngroup><pattern1>x</pattern1><contextpattern where="two">y</contextpattern></patterngroup></term></terminology>`), FormatXML)
	assert.ErrorContains(t, err, "term 0, pattern group 0")
}

func TestFormatOf(t *testing.T) {
	for path, want := range map[string]Format{
		"rules.yaml": FormatYAML,
		"rules.YML":  FormatYAML,
		"rules.json": FormatJSON,
		"rules.toml": FormatTOML,
		"terms.xml":  FormatXML,
	} {
		got, err := FormatOf(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}
	_, err := FormatOf("rules.txt")
	assert.Error(t, err)
}

func TestLoaderRereadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlRules), 0o644))

	load := Loader(path, WithPrefilter(false), WithIgnoredWords("Linux"))
	defs, err := load(context.Background())
	require.NoError(t, err)
	assert.Len(t, defs.Rules, 3)
	assert.False(t, defs.Prefilter)
	assert.Equal(t, "Linux", defs.IgnoredWords)

	require.NoError(t, os.WriteFile(path, []byte("rules: []\n"), 0o644))
	defs, err = load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, defs.Rules)
}

func TestLoaderMissingFile(t *testing.T) {
	_, err := Loader(filepath.Join(t.TempDir(), "missing.yaml"))(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoaderCompiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.xml")
	require.NoError(t, os.WriteFile(path, []byte(xmlRules), 0o644))
	defs, err := LoadFile(path)
	require.NoError(t, err)
	rs, err := terminology.Compile(defs)
	require.NoError(t, err)
	assert.Equal(t, 3, rs.Rules())
	assert.True(t, rs.HasPrefilter())
}

func TestSampleRulesCompile(t *testing.T) {
	defs, err := LoadFile(filepath.Join("..", "..", "configs", "terminology.yaml"))
	require.NoError(t, err)
	rs, err := terminology.Compile(defs)
	require.NoError(t, err)
	assert.Equal(t, 5, rs.Rules())
	assert.Equal(t, 6, rs.Groups())
}
