package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const familyDoc = `
prefixes:
  "": http://example.org/family#
individuals: [fred, bob, carl]
facts:
  - hasParent(fred, bob)
  - hasParent(bob, carl)
  - hasAge(fred, 40)
rules:
  - name: grandparent
    text: hasParent(?x, ?y) ^ hasParent(?y, ?z) -> hasGrandparent(?x, ?z)
queries:
  - name: grandparents
    text: hasGrandparent(?x, ?z) -> sqwrl:select(?x, ?z)
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	showFacts, watchDocs, verbose, engineName = false, false, false, ""
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml")}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "family.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestInferCommand(t *testing.T) {
	doc := writeDoc(t, familyDoc)
	out, err := run(t, "infer", "--facts", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "2 passes, 1 new facts")
	assert.Contains(t, out, "grandparents (1 rows)")
	assert.Contains(t, out, "hasGrandparent(fred, carl)")
}

func TestInferWithMangleEngine(t *testing.T) {
	doc := writeDoc(t, familyDoc)
	out, err := run(t, "--engine", "mangle", "infer", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "1 new facts")
}

func TestQueryCommand(t *testing.T) {
	doc := writeDoc(t, familyDoc)
	out, err := run(t, "query", "grandparents", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "fred")
	assert.Contains(t, out, "carl")

	_, err = run(t, "query", "nobody", doc)
	assert.ErrorContains(t, err, "unknown query")
}

func TestCheckCommand(t *testing.T) {
	doc := writeDoc(t, familyDoc)
	out, err := run(t, "check", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "1 documents")
	assert.Contains(t, out, "ok")

	bad := writeDoc(t, familyDoc+`  - name: weird
    text: hasAge(?p, ?a) ^ swrlb:frobnicate(?a) -> sqwrl:select(?p)
`)
	out, err = run(t, "check", bad)
	assert.Error(t, err)
	assert.Contains(t, out, "weird: unknown built-in swrlb:frobnicate")
}

func TestRulesCommand(t *testing.T) {
	doc := writeDoc(t, familyDoc)
	out, err := run(t, "rules", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "grandparent")
	assert.Contains(t, out, "hasParent(?x, ?y)")
}

func TestInvalidEngineIsRejected(t *testing.T) {
	doc := writeDoc(t, familyDoc)
	_, err := run(t, "--engine", "drools", "infer", doc)
	assert.ErrorContains(t, err, "invalid engine")
}
