// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package project copies native document nodes into JSON-safe values.
//
// Every collection handle a node carries, and every handle obtained while
// copying (metadata keys, table rows), has exactly one release point: a
// deferred call registered right after the handle is acquired. Handles are
// therefore released once on every exit path, including early returns on
// malformed input.
package project

import (
	"errors"
	"fmt"
	"math"

	"github.com/pdiddy/scinode/internal/handle"
	"github.com/pdiddy/scinode/internal/scan"
	"github.com/pdiddy/scinode/pkg/types"
)

// ErrMalformed is returned when a node's content cannot be projected.
var ErrMalformed = errors.New("malformed node")

// Project converts n into a ProjectedNode and releases n's collections.
func Project(n scan.Node) (out types.ProjectedNode, err error) {
	defer func() {
		if rerr := handle.ReleaseAll(n.Parameters, n.Data, n.Metadata, n.Table.Rows, n.ChildNodeNames); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()

	out.Name = n.Name
	if out.Parameters, err = copyList(n.Parameters); err != nil {
		return types.ProjectedNode{}, fmt.Errorf("parameters: %w", err)
	}
	if out.Data, err = copyList(n.Data); err != nil {
		return types.ProjectedNode{}, fmt.Errorf("data: %w", err)
	}
	if err = checkFinite(out.Data); err != nil {
		return types.ProjectedNode{}, fmt.Errorf("data: %w", err)
	}
	if out.Metadata, err = copyMetadata(n.Metadata); err != nil {
		return types.ProjectedNode{}, fmt.Errorf("metadata: %w", err)
	}
	if out.Table, err = copyTable(n.Table); err != nil {
		return types.ProjectedNode{}, fmt.Errorf("table: %w", err)
	}
	if out.ChildNodeNames, err = copyList(n.ChildNodeNames); err != nil {
		return types.ProjectedNode{}, fmt.Errorf("childNodeNames: %w", err)
	}
	return out, nil
}

// copyList copies a list in index order. An absent list yields an empty,
// non-nil slice so it encodes as [].
func copyList[T any](l *handle.List[T]) ([]T, error) {
	if l == nil {
		return []T{}, nil
	}
	size, err := l.Len()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, size)
	for i := range size {
		v, err := l.At(i)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// checkFinite rejects values JSON cannot carry.
func checkFinite(points []types.Point) error {
	for i, p := range points {
		if math.IsNaN(p.X) || math.IsInf(p.X, 0) || math.IsNaN(p.Y) || math.IsInf(p.Y, 0) {
			return fmt.Errorf("point %d (%v, %v) is not finite: %w", i, p.X, p.Y, ErrMalformed)
		}
	}
	return nil
}

func copyMetadata(m *handle.Map) (map[string]string, error) {
	out := map[string]string{}
	if m == nil {
		return out, nil
	}
	keys, err := m.Keys()
	if err != nil {
		return nil, err
	}
	defer keys.Release()

	names, err := copyList(keys)
	if err != nil {
		return nil, err
	}
	for _, k := range names {
		v, ok, err := m.Get(k)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("declared key %q has no value: %w", k, ErrMalformed)
		}
		out[k] = v
	}
	return out, nil
}

func copyTable(t scan.Table) (types.Table, error) {
	out := types.Table{
		ColumnNames: append(make([]types.ColumnName, 0, len(t.ColumnNames)), t.ColumnNames...),
		Rows:        []types.Row{},
	}
	if t.Rows == nil {
		return out, nil
	}
	count, err := t.Rows.Len()
	if err != nil {
		return types.Table{}, err
	}
	for i := range count {
		row, err := copyRow(t.Rows, i, out.ColumnNames)
		if err != nil {
			return types.Table{}, fmt.Errorf("row %d: %w", i, err)
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// copyRow copies the cells of row i in column order. Columns without a
// value in the row are left out.
func copyRow(rows *handle.RowList, i int, columns []types.ColumnName) (types.Row, error) {
	row, err := rows.At(i)
	if err != nil {
		return nil, err
	}
	defer row.Release()

	out := make(types.Row, len(columns))
	for _, col := range columns {
		v, ok, err := row.Get(col.Key)
		if err != nil {
			return nil, err
		}
		if ok {
			out[col.Key] = v
		}
	}
	return out, nil
}
