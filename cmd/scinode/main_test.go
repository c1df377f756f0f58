// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/scinode/internal/store"
	"github.com/pdiddy/scinode/pkg/types"
)

const sampleTree = `format: scinode-tree
node:
  name: LINK BLOCK
  parameters:
    - {key: TITLE, value: demo}
  children:
    - name: IR SPECTRUM
      data:
        - {x: 450, y: 0.1}
    - name: PEAK TABLE
      table:
        columnNames: [{key: x, value: Peak Position}]
        rows: [{x: "450"}]
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestReadCommand(t *testing.T) {
	dir := t.TempDir()
	tree := writeFile(t, dir, "sample.yaml", sampleTree)
	notes := writeFile(t, dir, "notes.txt", "plain text")
	db := filepath.Join(dir, "history.db")

	out, err := execute(t, "read", "--format", "json", "--jobs", "2", "--store", db, tree, notes)
	require.NoError(t, err, out)

	var cmds []string
	var paths []string
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var ev types.Event
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev), sc.Text())
		cmds = append(cmds, ev.Command)
		if nc, ok := ev.Data.(types.NodeContent); ok {
			paths = append(paths, nc.Path)
		}
	}
	assert.Equal(t, []string{
		types.EventShowName,
		types.EventShowNodeContent, types.EventShowNodeContent, types.EventShowNodeContent,
		types.EventReadComplete,
		types.EventReadComplete,
	}, cmds)
	assert.Equal(t, []string{"/", "/0", "/1"}, paths)

	st, err := store.Open(db, nil)
	require.NoError(t, err)
	defer st.Close()
	reads, err := st.List(context.Background(), store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, reads, 2)

	var buf bytes.Buffer
	require.NoError(t, st.WriteExport(context.Background(), reads[1].ID, store.FormatYAML, &buf))
	assert.Contains(t, buf.String(), "LINK BLOCK")
}

func TestReadCommand_Text(t *testing.T) {
	dir := t.TempDir()
	tree := writeFile(t, dir, "sample.yaml", sampleTree)

	out, err := execute(t, "read", "--format", "text", "--jobs", "1", "--store", "", tree)
	require.NoError(t, err, out)
	assert.Contains(t, out, "File: sample.yaml")
	assert.Contains(t, out, `Node path: "/1"`)
	assert.Contains(t, out, `table: {"columnNames":[{"key":"x","value":"Peak Position"}],"rows":[{"x":"450"}]}`)
	assert.Contains(t, out, "sample.yaml: recognized, 3 nodes")
}

func TestReadCommand_Failure(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.yaml", "format: scinode-tree\nnode: [\n")

	out, err := execute(t, "read", "--format", "text", "--jobs", "1", "--store", "", bad)
	require.Error(t, err)
	assert.Contains(t, out, "Error in bad.yaml")
	assert.Contains(t, out, "bad.yaml: failed, 0 nodes")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "scinode dev\n", out)
}
