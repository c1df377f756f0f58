// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package walk enumerates the nodes of a document depth first, in pre-order.
// Children are addressed by position only: the child paths of "/" are "/0",
// "/1", ..., and those of "/0" are "/0/0", "/0/1", .... Nothing but the
// path strings is kept between reads.
package walk

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strconv"

	"github.com/pdiddy/scinode/internal/project"
	"github.com/pdiddy/scinode/internal/scan"
	"github.com/pdiddy/scinode/pkg/types"
)

// ErrDepthExceeded is returned when a document nests deeper than the
// configured maximum.
var ErrDepthExceeded = errors.New("maximum node depth exceeded")

// errStop ends a walk early without reporting an error.
var errStop = errors.New("walk stopped")

// Reader materializes nodes by path. scan.Converter satisfies it.
type Reader interface {
	Read(path string) (scan.Node, error)
}

// VisitFunc receives each projected node. Returning an error stops the walk
// and the error is returned from Walk.
type VisitFunc func(path string, node types.ProjectedNode) error

// ReadError reports the node path whose read or projection failed.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading node %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Options tunes a walk.
type Options struct {
	// MaxDepth bounds how deep the walk descends; the root is depth 0.
	// Zero means no bound.
	MaxDepth int
}

// ChildPath returns the path of the i-th child of parent.
func ChildPath(parent string, i int) string {
	if parent == scan.RootPath {
		return "/" + strconv.Itoa(i)
	}
	return parent + "/" + strconv.Itoa(i)
}

// Walk reads the node at root and every node below it, calling visit once
// per node before visiting its children. A failed read ends the walk; no
// node after it is visited. Walk checks ctx between nodes.
func Walk(ctx context.Context, r Reader, root string, opts Options, visit VisitFunc) error {
	w := walker{ctx: ctx, r: r, opts: opts, visit: visit}
	return w.node(root, 0)
}

type walker struct {
	ctx   context.Context
	r     Reader
	opts  Options
	visit VisitFunc
}

func (w *walker) node(path string, depth int) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}
	if w.opts.MaxDepth > 0 && depth > w.opts.MaxDepth {
		return &ReadError{Path: path, Err: ErrDepthExceeded}
	}

	native, err := w.r.Read(path)
	if err != nil {
		return &ReadError{Path: path, Err: err}
	}
	projected, err := project.Project(native)
	if err != nil {
		return &ReadError{Path: path, Err: err}
	}
	if err := w.visit(path, projected); err != nil {
		return err
	}

	for i := range projected.ChildCount() {
		if err := w.node(ChildPath(path, i), depth+1); err != nil {
			return err
		}
	}
	return nil
}

// Entry is one element of the sequence returned by Nodes.
type Entry struct {
	Path string
	Node types.ProjectedNode
}

// Nodes returns the walk as a lazy sequence. Each node is read only when the
// consumer asks for it. On failure the sequence yields a final zero Entry
// with the error. Ranging over the sequence again walks the reader again.
func Nodes(ctx context.Context, r Reader, root string, opts Options) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		err := Walk(ctx, r, root, opts, func(path string, node types.ProjectedNode) error {
			if !yield(Entry{Path: path, Node: node}, nil) {
				return errStop
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStop) {
			yield(Entry{}, err)
		}
	}
}
