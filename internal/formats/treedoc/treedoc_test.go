// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package treedoc

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/scinode/internal/handle"
	"github.com/pdiddy/scinode/internal/project"
	"github.com/pdiddy/scinode/internal/scan"
	"github.com/pdiddy/scinode/pkg/types"
)

// stageTestdata copies a testdata file into an in-memory filesystem under
// /work and returns the staged path.
func stageTestdata(t *testing.T, fsys afero.Fs, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	p := "/work/" + name
	require.NoError(t, afero.WriteFile(fsys, p, b, 0o644))
	return p
}

func TestScanner_IsRecognized(t *testing.T) {
	fsys := afero.NewMemMapFs()
	nested := stageTestdata(t, fsys, "nested.yaml")
	single := stageTestdata(t, fsys, "single.json")
	other := stageTestdata(t, fsys, "other.yaml")
	require.NoError(t, afero.WriteFile(fsys, "/work/tree.txt", []byte("format: scinode-tree\n"), 0o644))

	l := handle.NewLedger()
	sc, err := New(l).NewScanner(context.Background(), fsys)
	require.NoError(t, err)

	assert.True(t, sc.IsRecognized(nested))
	assert.True(t, sc.IsRecognized(single))
	assert.False(t, sc.IsRecognized(other), "yaml without the format key")
	assert.False(t, sc.IsRecognized("/work/tree.txt"), "unsupported extension")
	assert.False(t, sc.IsRecognized("/work/missing.yaml"))

	require.NoError(t, sc.Release())
	assert.False(t, sc.IsRecognized(nested), "a released scanner recognizes nothing")
	assert.Equal(t, 0, l.Stats().Outstanding)
}

func TestConverter_Read(t *testing.T) {
	fsys := afero.NewMemMapFs()
	p := stageTestdata(t, fsys, "nested.yaml")
	l := handle.NewLedger()

	sc, err := New(l).NewScanner(context.Background(), fsys)
	require.NoError(t, err)
	defer sc.Release()
	conv, err := sc.GetConverter(p)
	require.NoError(t, err)
	defer conv.Release()

	root, err := conv.Read("/")
	require.NoError(t, err)
	got, err := project.Project(root)
	require.NoError(t, err)
	assert.Equal(t, "LINK BLOCK", got.Name)
	assert.Equal(t, []string{"IR SPECTRUM", "NMR SPECTRUM"}, got.ChildNodeNames)
	assert.Equal(t, []types.KeyValue{{Key: "TITLE", Value: "LINK BLOCK"}, {Key: "JCAMP-DX", Value: "5.01"}}, got.Parameters)
	assert.Equal(t, map[string]string{"origin": "lab"}, got.Metadata)

	ir, err := conv.Read("/0")
	require.NoError(t, err)
	got, err = project.Project(ir)
	require.NoError(t, err)
	assert.Equal(t, []types.Point{{X: 450, Y: 0.1}, {X: 451.5, Y: 0.125}}, got.Data)

	peaks, err := conv.Read("/0/0")
	require.NoError(t, err)
	got, err = project.Project(peaks)
	require.NoError(t, err)
	assert.Len(t, got.Table.ColumnNames, 3)
	assert.Equal(t, []types.Row{
		{"x": "450.0", "y": "0.1", "w": "1"},
		{"x": "451.5", "y": "0.125"},
	}, got.Table.Rows)

	_, err = conv.Read("/2")
	assert.ErrorIs(t, err, scan.ErrNodeNotFound)
	_, err = conv.Read("/0/0/0")
	assert.ErrorIs(t, err, scan.ErrNodeNotFound)
	_, err = conv.Read("0")
	assert.ErrorIs(t, err, scan.ErrInvalidPath)

	assert.ElementsMatch(t, []string{"treedoc.scanner", "treedoc.converter"}, l.Outstanding(), "only scanner and converter remain")
}

func TestConverter_JSON(t *testing.T) {
	fsys := afero.NewMemMapFs()
	p := stageTestdata(t, fsys, "single.json")

	sc, err := New(nil).NewScanner(context.Background(), fsys)
	require.NoError(t, err)
	defer sc.Release()
	conv, err := sc.GetConverter(p)
	require.NoError(t, err)
	defer conv.Release()

	n, err := conv.Read("/")
	require.NoError(t, err)
	got, err := project.Project(n)
	require.NoError(t, err)
	assert.Equal(t, "root", got.Name)
	assert.Equal(t, []types.Point{{X: 1, Y: 2.5}}, got.Data)
	assert.Empty(t, got.ChildNodeNames)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "wrong format", in: "format: other\nnode: {name: x}\n"},
		{name: "no node", in: "format: scinode-tree\n"},
		{name: "unknown field", in: "format: scinode-tree\nnode: {name: x, colour: red}\n"},
		{name: "not yaml", in: "format: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.in))
			assert.Error(t, err)
		})
	}
}

func TestGetConverter_ParseError(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/work/bad.yaml", []byte("format: scinode-tree\nnode: [\n"), 0o644))
	l := handle.NewLedger()

	sc, err := New(l).NewScanner(context.Background(), fsys)
	require.NoError(t, err)
	assert.True(t, sc.IsRecognized("/work/bad.yaml"))
	_, err = sc.GetConverter("/work/bad.yaml")
	assert.Error(t, err)

	require.NoError(t, sc.Release())
	assert.Equal(t, 0, l.Stats().Outstanding)
}
