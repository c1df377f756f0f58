// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package project

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/scinode/internal/handle"
	"github.com/pdiddy/scinode/internal/scan"
	"github.com/pdiddy/scinode/internal/scan/scantest"
	"github.com/pdiddy/scinode/pkg/types"
)

func TestProject_AllFields(t *testing.T) {
	l := handle.NewLedger()
	tree := &scantest.Tree{
		Name: "BLOCK 1",
		Parameters: []types.KeyValue{
			{Key: "TITLE", Value: "demo"},
			{Key: "JCAMP-DX", Value: "5.01"},
			{Key: "ORIGIN", Value: "lab"},
		},
		Data:     []types.Point{{X: 0.1, Y: 1e-9}, {X: 450.123456789012, Y: -2}},
		Metadata: map[string]string{"b": "2", "a": "1"},
		Columns: []types.ColumnName{
			{Key: "x", Value: "Peak Position"},
			{Key: "y", Value: "Intensity"},
			{Key: "w", Value: "Width"},
		},
		Rows: []map[string]string{
			{"x": "450.0", "y": "10", "w": "1"},
			{"x": "460.0", "y": "12"},
		},
		Children: []*scantest.Tree{scantest.Leaf("PAGE 1"), scantest.Leaf("PAGE 2")},
	}

	got, err := Project(scantest.NodeOf(l, tree))
	require.NoError(t, err)

	want := types.ProjectedNode{
		Name:       "BLOCK 1",
		Parameters: tree.Parameters,
		Data:       tree.Data,
		Metadata:   map[string]string{"a": "1", "b": "2"},
		Table: types.Table{
			ColumnNames: tree.Columns,
			Rows: []types.Row{
				{"x": "450.0", "y": "10", "w": "1"},
				{"x": "460.0", "y": "12"},
			},
		},
		ChildNodeNames: []string{"PAGE 1", "PAGE 2"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Project() mismatch (-want +got):\n%s", diff)
	}

	s := l.Stats()
	assert.Equal(t, 0, s.Outstanding, "leaked: %v", l.Outstanding())
	assert.Equal(t, 0, s.Violations)
	// parameters, data, metadata, metadata keys, rows, 2 row handles, childNodeNames.
	assert.Equal(t, 8, s.Released)
}

func TestProject_TableRoundTrip(t *testing.T) {
	l := handle.NewLedger()
	tree := &scantest.Tree{
		Columns: []types.ColumnName{{Key: "c1", Value: "Col1"}},
		Rows:    []map[string]string{{"c1": "42"}},
	}

	got, err := Project(scantest.NodeOf(l, tree))
	require.NoError(t, err)
	assert.Equal(t, []types.ColumnName{{Key: "c1", Value: "Col1"}}, got.Table.ColumnNames)
	assert.Equal(t, []types.Row{{"c1": "42"}}, got.Table.Rows)
}

func TestProject_SparseRowIgnoresUndeclaredCells(t *testing.T) {
	l := handle.NewLedger()
	tree := &scantest.Tree{
		Columns: []types.ColumnName{{Key: "c1", Value: "Col1"}, {Key: "c2", Value: "Col2"}},
		Rows:    []map[string]string{{"c2": "b", "extra": "ignored"}},
	}

	got, err := Project(scantest.NodeOf(l, tree))
	require.NoError(t, err)
	assert.Equal(t, []types.Row{{"c2": "b"}}, got.Table.Rows)
}

func TestProject_EmptyNodeEncodesEmptyCollections(t *testing.T) {
	got, err := Project(scan.Node{Name: "bare"})
	require.NoError(t, err)

	assert.NotNil(t, got.Parameters)
	assert.NotNil(t, got.Data)
	assert.NotNil(t, got.Metadata)
	assert.NotNil(t, got.Table.ColumnNames)
	assert.NotNil(t, got.Table.Rows)
	assert.NotNil(t, got.ChildNodeNames)
}

func TestProject_MalformedReleasesEverything(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(l *handle.Ledger, n *scan.Node)
	}{
		{
			name: "non-finite data",
			mutate: func(l *handle.Ledger, n *scan.Node) {
				require.NoError(t, n.Data.Release())
				n.Data = handle.NewList(l, "data", []types.Point{{X: 1, Y: math.NaN()}})
			},
		},
		{
			name: "infinite x",
			mutate: func(l *handle.Ledger, n *scan.Node) {
				require.NoError(t, n.Data.Release())
				n.Data = handle.NewList(l, "data", []types.Point{{X: math.Inf(1), Y: 0}})
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := handle.NewLedger()
			n := scantest.NodeOf(l, &scantest.Tree{
				Name:     "bad",
				Metadata: map[string]string{"k": "v"},
				Rows:     []map[string]string{{}},
			})
			tt.mutate(l, &n)

			_, err := Project(n)
			assert.ErrorIs(t, err, ErrMalformed)

			s := l.Stats()
			assert.Equal(t, 0, s.Outstanding, "leaked: %v", l.Outstanding())
			assert.Equal(t, 0, s.Violations)
		})
	}
}

func TestProject_ReleasedCollectionIsReported(t *testing.T) {
	l := handle.NewLedger()
	n := scantest.NodeOf(l, scantest.Leaf("x"))
	require.NoError(t, n.Metadata.Release())

	_, err := Project(n)
	assert.ErrorIs(t, err, handle.ErrReleased)
	assert.Equal(t, 0, l.Stats().Outstanding)
}

func TestProject_PreservesParameterOrder(t *testing.T) {
	l := handle.NewLedger()
	params := []types.KeyValue{{Key: "z", Value: "1"}, {Key: "a", Value: "2"}, {Key: "m", Value: "3"}}

	got, err := Project(scantest.NodeOf(l, &scantest.Tree{Parameters: params}))
	require.NoError(t, err)
	assert.Equal(t, params, got.Parameters)
}
