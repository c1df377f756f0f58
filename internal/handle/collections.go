// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package handle

import (
	"fmt"
	"maps"
	"slices"
)

// List is an ordered, index-addressed collection handle.
type List[T any] struct {
	ref
	items []T
}

// NewList allocates a list handle holding a copy of items.
func NewList[T any](l *Ledger, kind string, items []T) *List[T] {
	v := &List[T]{items: slices.Clone(items)}
	v.init(l, kind)
	return v
}

// Len returns the number of elements.
func (v *List[T]) Len() (int, error) {
	if err := v.check("size"); err != nil {
		return 0, err
	}
	return len(v.items), nil
}

// At returns the element at index i by value.
func (v *List[T]) At(i int) (T, error) {
	var zero T
	if err := v.check("get"); err != nil {
		return zero, err
	}
	if i < 0 || i >= len(v.items) {
		return zero, fmt.Errorf("%s[%d] of %d: %w", v.kind, i, len(v.items), ErrIndex)
	}
	return v.items[i], nil
}

func (v *List[T]) isNil() bool { return v == nil }

// Map is a string-to-string mapping handle.
type Map struct {
	ref
	keys   []string
	values map[string]string
}

// NewMap allocates a map handle holding a copy of m. Keys are enumerated in
// sorted order.
func NewMap(l *Ledger, kind string, m map[string]string) *Map {
	h := &Map{
		keys:   slices.Sorted(maps.Keys(m)),
		values: maps.Clone(m),
	}
	h.init(l, kind)
	return h
}

func (m *Map) isNil() bool { return m == nil }

// Keys allocates a new list handle with the map's keys. The caller releases
// it independently of the map.
func (m *Map) Keys() (*List[string], error) {
	if err := m.check("keys"); err != nil {
		return nil, err
	}
	return NewList(m.ledger, m.kind+".keys", m.keys), nil
}

// Get looks up key. ok is false when the map has no entry for key.
func (m *Map) Get(key string) (value string, ok bool, err error) {
	if err := m.check("get"); err != nil {
		return "", false, err
	}
	value, ok = m.values[key]
	return value, ok, nil
}

// RowList is a list of table rows. Every At call allocates a fresh row handle
// that the caller must release.
type RowList struct {
	ref
	rows []map[string]string
}

// NewRowList allocates a row list handle holding a copy of rows.
func NewRowList(l *Ledger, kind string, rows []map[string]string) *RowList {
	cp := make([]map[string]string, len(rows))
	for i, r := range rows {
		cp[i] = maps.Clone(r)
	}
	h := &RowList{rows: cp}
	h.init(l, kind)
	return h
}

func (r *RowList) isNil() bool { return r == nil }

// Len returns the number of rows.
func (r *RowList) Len() (int, error) {
	if err := r.check("size"); err != nil {
		return 0, err
	}
	return len(r.rows), nil
}

// At allocates a handle for row i.
func (r *RowList) At(i int) (*Map, error) {
	if err := r.check("get"); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(r.rows) {
		return nil, fmt.Errorf("%s[%d] of %d: %w", r.kind, i, len(r.rows), ErrIndex)
	}
	return NewMap(r.ledger, r.kind+".row", r.rows[i]), nil
}

// Token is a handle without contents. Objects that are handles themselves,
// such as scanners and converters, embed one to take part in a ledger.
type Token struct {
	ref
}

// NewToken allocates a token.
func NewToken(l *Ledger, kind string) *Token {
	t := &Token{}
	t.init(l, kind)
	return t
}

// Check reports ErrReleased once the token was released.
func (t *Token) Check(op string) error {
	return t.check(op)
}

func (t *Token) isNil() bool { return t == nil }
