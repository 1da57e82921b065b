package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker"
)

func TestText(t *testing.T) {
	input := "First paragraph\nspans two lines.\n\n\n  Second one.  \n\nThird\n"
	units, err := Text(strings.NewReader(input), "notes.txt")
	require.NoError(t, err)

	want := []checker.Unit{
		{Raw: "First paragraph spans two lines.", File: "notes.txt", Line: 1},
		{Raw: "Second one.", File: "notes.txt", Line: 5},
		{Raw: "Third", File: "notes.txt", Line: 7},
	}
	if diff := cmp.Diff(want, units); diff != "" {
		t.Errorf("units mismatch (-want +got):\n%s", diff)
	}
}

func TestTextEmpty(t *testing.T) {
	units, err := Text(strings.NewReader("\n\n   \n"), "")
	require.NoError(t, err)
	assert.Empty(t, units)
}

func TestTextNormalizesToNFC(t *testing.T) {
	units, err := Text(strings.NewReader("Cafe\u0301 au lait"), "")
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "Caf\u00e9 au lait", units[0].Raw)
}

func TestListYAML(t *testing.T) {
	data := `
- raw: Send an e-mail.
  contextId: sec-intro
  line: 40
- raw: Second unit.
  pretty: Second <emphasis>unit</emphasis>.
`
	units, err := List([]byte(data), "yaml", "units.yaml")
	require.NoError(t, err)
	want := []checker.Unit{
		{Raw: "Send an e-mail.", ContextID: "sec-intro", File: "units.yaml", Line: 40},
		{Raw: "Second unit.", Pretty: "Second <emphasis>unit</emphasis>.", File: "units.yaml", Line: 2},
	}
	if diff := cmp.Diff(want, units); diff != "" {
		t.Errorf("units mismatch (-want +got):\n%s", diff)
	}
}

func TestListJSON(t *testing.T) {
	data := `[{"raw": "One.", "file": "book.xml", "line": 3, "context_id": "id1"}]`
	units, err := List([]byte(data), "json", "units.json")
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "book.xml", units[0].File)
	assert.Equal(t, "id1", units[0].ContextID)
	assert.Equal(t, 3, units[0].Line)

	_, err = List([]byte(`[{"text": "One."}]`), "json", "")
	assert.Error(t, err)
	_, err = List(nil, "toml", "")
	assert.Error(t, err)
}

func TestXML(t *testing.T) {
	doc := `<?xml version="1.0"?>
<article xml:id="art">
  <title>Getting started</title>
  <section id="sec-install">
    <para>Run <command>zypper in
      foo</command> as root.</para>
    <screen>this is never checked</screen>
    <informaltable><tgroup><tbody><row>
      <entry><para>Nested para</para></entry>
    </row></tbody></tgroup></informaltable>
    <para>   </para>
  </section>
</article>`
	units, err := XML(strings.NewReader(doc), "book.xml")
	require.NoError(t, err)

	want := []checker.Unit{
		{Raw: "Getting started", Pretty: "Getting started", ContextID: "art", File: "book.xml", Line: 3},
		{Raw: "Run ##@ignore## as root.", Pretty: "Run zypper in foo as root.", ContextID: "sec-install", File: "book.xml", Line: 5},
		{Raw: "Nested para", Pretty: "Nested para", ContextID: "sec-install", File: "book.xml", Line: 9},
	}
	if diff := cmp.Diff(want, units); diff != "" {
		t.Errorf("units mismatch (-want +got):\n%s", diff)
	}
}

func TestXMLHTML(t *testing.T) {
	doc := `<html><body><h1>Title &amp; more</h1><p>Use <code>ls</code>.<br>Next</p></body></html>`
	units, err := XML(strings.NewReader(doc), "page.html")
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "Title & more", units[0].Raw)
	assert.Equal(t, "Use ##@ignore## .Next", units[1].Raw)
	assert.Equal(t, "Use ls.Next", units[1].Pretty)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(txt, []byte("Hello world."), 0o644))
	units, err := LoadFile(txt)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "a.txt", units[0].File)

	yml := filepath.Join(dir, "units.yml")
	require.NoError(t, os.WriteFile(yml, []byte("- raw: Hi.\n"), 0o644))
	units, err = LoadFile(yml)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "units.yml", units[0].File)

	xmlPath := filepath.Join(dir, "doc.xml")
	require.NoError(t, os.WriteFile(xmlPath, []byte("<para>Hi.</para>"), 0o644))
	units, err = LoadFile(xmlPath)
	require.NoError(t, err)
	require.Len(t, units, 1)

	_, err = LoadFile(filepath.Join(dir, "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
