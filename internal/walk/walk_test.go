// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package walk

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/scinode/internal/handle"
	"github.com/pdiddy/scinode/internal/scan"
	"github.com/pdiddy/scinode/internal/scan/scantest"
	"github.com/pdiddy/scinode/pkg/types"
)

// collect walks root and returns the visited paths.
func collect(t *testing.T, r Reader, opts Options) ([]string, error) {
	t.Helper()
	var paths []string
	err := Walk(context.Background(), r, "/", opts, func(path string, _ types.ProjectedNode) error {
		paths = append(paths, path)
		return nil
	})
	return paths, err
}

func TestChildPath(t *testing.T) {
	assert.Equal(t, "/0", ChildPath("/", 0))
	assert.Equal(t, "/3", ChildPath("/", 3))
	assert.Equal(t, "/0/1", ChildPath("/0", 1))
	assert.Equal(t, "/2/0/11", ChildPath("/2/0", 11))
}

func TestWalk_Order(t *testing.T) {
	tests := []struct {
		name string
		root *scantest.Tree
		want []string
	}{
		{
			name: "single root",
			root: scantest.Leaf("root"),
			want: []string{"/"},
		},
		{
			name: "root with three leaves",
			root: scantest.Branch("root", scantest.Leaf("a"), scantest.Leaf("b"), scantest.Leaf("c")),
			want: []string{"/", "/0", "/1", "/2"},
		},
		{
			name: "nested",
			root: scantest.Branch("root",
				scantest.Branch("a", scantest.Leaf("a0")),
				scantest.Leaf("b"),
			),
			want: []string{"/", "/0", "/0/0", "/1"},
		},
		{
			name: "deep and wide",
			root: scantest.Branch("root",
				scantest.Branch("a",
					scantest.Branch("a0", scantest.Leaf("a00"), scantest.Leaf("a01")),
					scantest.Leaf("a1"),
				),
				scantest.Branch("b", scantest.Leaf("b0")),
			),
			want: []string{"/", "/0", "/0/0", "/0/0/0", "/0/0/1", "/0/1", "/1", "/1/0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := handle.NewLedger()
			conv := scantest.NewConverter(l, tt.root)

			got, err := collect(t, conv, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, tt.root.Count())
			assert.Equal(t, tt.want, conv.Reads(), "each node is read exactly once")

			require.NoError(t, conv.Release())
			assert.Equal(t, 0, l.Stats().Outstanding)
		})
	}
}

func TestWalk_ProjectsNodes(t *testing.T) {
	l := handle.NewLedger()
	root := scantest.Branch("root", scantest.Leaf("child"))
	root.Parameters = []types.KeyValue{{Key: "TITLE", Value: "t"}}

	got := map[string]types.ProjectedNode{}
	err := Walk(context.Background(), scantest.NewConverter(l, root), "/", Options{}, func(path string, n types.ProjectedNode) error {
		got[path] = n
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "root", got["/"].Name)
	assert.Equal(t, []string{"child"}, got["/"].ChildNodeNames)
	assert.Equal(t, root.Parameters, got["/"].Parameters)
	assert.Equal(t, "child", got["/0"].Name)
}

func TestWalk_InconsistentChildCountIsHardFailure(t *testing.T) {
	l := handle.NewLedger()
	root := scantest.Branch("root", scantest.Leaf("a"))
	root.Phantom = []string{"ghost", "after-ghost"}

	conv := scantest.NewConverter(l, root)
	got, err := collect(t, conv, Options{})

	var re *ReadError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "/1", re.Path)
	assert.ErrorIs(t, err, scan.ErrNodeNotFound)
	assert.Equal(t, []string{"/", "/0"}, got, "no node after the failure is visited")
	assert.Equal(t, []string{"converter"}, l.Outstanding(), "only the converter is still held")
}

func TestWalk_ReadFailure(t *testing.T) {
	l := handle.NewLedger()
	boom := errors.New("checksum mismatch")
	conv := scantest.NewConverter(l, scantest.Branch("root",
		scantest.Branch("a", scantest.Leaf("a0")),
		scantest.Leaf("b"),
	))
	conv.FailAt = map[string]error{"/0/0": boom}

	got, err := collect(t, conv, Options{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"/", "/0"}, got)
	assert.NotContains(t, conv.Reads(), "/1")
}

func TestWalk_MaxDepth(t *testing.T) {
	root := scantest.Branch("root", scantest.Branch("a", scantest.Branch("b", scantest.Leaf("c"))))

	got, err := collect(t, scantest.NewConverter(nil, root), Options{MaxDepth: 3})
	require.NoError(t, err)
	assert.Len(t, got, 4)

	got, err = collect(t, scantest.NewConverter(nil, root), Options{MaxDepth: 2})
	assert.ErrorIs(t, err, ErrDepthExceeded)
	assert.Equal(t, []string{"/", "/0", "/0/0"}, got)
}

func TestWalk_VisitErrorStops(t *testing.T) {
	stop := errors.New("sink closed")
	conv := scantest.NewConverter(nil, scantest.Branch("root", scantest.Leaf("a"), scantest.Leaf("b")))

	n := 0
	err := Walk(context.Background(), conv, "/", Options{}, func(string, types.ProjectedNode) error {
		n++
		if n == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, []string{"/", "/0"}, conv.Reads())
}

func TestWalk_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	conv := scantest.NewConverter(nil, scantest.Branch("root", scantest.Leaf("a"), scantest.Leaf("b")))

	var got []string
	err := Walk(ctx, conv, "/", Options{}, func(path string, _ types.ProjectedNode) error {
		got = append(got, path)
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"/"}, got)
}

func TestWalk_Subtree(t *testing.T) {
	conv := scantest.NewConverter(nil, scantest.Branch("root",
		scantest.Leaf("a"),
		scantest.Branch("b", scantest.Leaf("b0"), scantest.Leaf("b1")),
	))

	var got []string
	err := Walk(context.Background(), conv, "/1", Options{}, func(path string, _ types.ProjectedNode) error {
		got = append(got, path)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/1", "/1/0", "/1/1"}, got)
}

func TestNodes(t *testing.T) {
	conv := scantest.NewConverter(nil, scantest.Branch("root", scantest.Leaf("a"), scantest.Leaf("b")))

	var got []string
	for e, err := range Nodes(context.Background(), conv, "/", Options{}) {
		require.NoError(t, err)
		got = append(got, e.Path+"="+e.Node.Name)
	}
	assert.Equal(t, []string{"/=root", "/0=a", "/1=b"}, got)
}

func TestNodes_IsLazy(t *testing.T) {
	conv := scantest.NewConverter(nil, scantest.Branch("root", scantest.Leaf("a"), scantest.Leaf("b")))

	for e, err := range Nodes(context.Background(), conv, "/", Options{}) {
		require.NoError(t, err)
		if e.Path == "/0" {
			break
		}
	}
	assert.Equal(t, []string{"/", "/0"}, conv.Reads())
}

func TestNodes_YieldsError(t *testing.T) {
	boom := errors.New("boom")
	conv := scantest.NewConverter(nil, scantest.Branch("root", scantest.Leaf("a")))
	conv.FailAt = map[string]error{"/0": boom}

	var paths []string
	var last error
	for e, err := range Nodes(context.Background(), conv, "/", Options{}) {
		if err != nil {
			last = err
			continue
		}
		paths = append(paths, e.Path)
	}
	assert.Equal(t, []string{"/"}, paths)
	assert.ErrorIs(t, last, boom)
}
