// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scantest provides an in-memory conversion capability for tests.
// Every scanner, converter and node collection it hands out is allocated
// from a handle.Ledger so tests can assert that each was released once.
package scantest

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/afero"

	"github.com/pdiddy/scinode/internal/handle"
	"github.com/pdiddy/scinode/internal/scan"
	"github.com/pdiddy/scinode/pkg/types"
)

// Tree is one node of an in-memory document.
type Tree struct {
	Name       string
	Parameters []types.KeyValue
	Data       []types.Point
	Metadata   map[string]string
	Columns    []types.ColumnName
	Rows       []map[string]string
	Children   []*Tree

	// Phantom adds names of children the converter cannot read, to model
	// a document whose child count is inconsistent with its content.
	Phantom []string
}

// Leaf returns a node without children.
func Leaf(name string) *Tree {
	return &Tree{Name: name}
}

// Branch returns a node with children.
func Branch(name string, children ...*Tree) *Tree {
	return &Tree{Name: name, Children: children}
}

// Count returns the number of readable nodes in t.
func (t *Tree) Count() int {
	n := 1
	for _, c := range t.Children {
		n += c.Count()
	}
	return n
}

// Converter serves nodes of Root.
type Converter struct {
	Root   *Tree
	Ledger *handle.Ledger

	// FailAt makes Read return the error for a path.
	FailAt map[string]error

	token *handle.Token
	mu    sync.Mutex
	reads []string
}

// NewConverter returns a converter handle over root.
func NewConverter(l *handle.Ledger, root *Tree) *Converter {
	return &Converter{Root: root, Ledger: l, token: handle.NewToken(l, "converter")}
}

// Read implements scan.Converter.
func (c *Converter) Read(path string) (scan.Node, error) {
	if err := c.token.Check("read"); err != nil {
		return scan.Node{}, err
	}
	c.mu.Lock()
	c.reads = append(c.reads, path)
	c.mu.Unlock()

	if err, ok := c.FailAt[path]; ok {
		return scan.Node{}, err
	}
	indices, err := scan.ParsePath(path)
	if err != nil {
		return scan.Node{}, err
	}
	t := c.Root
	for _, i := range indices {
		if i >= len(t.Children) {
			return scan.Node{}, fmt.Errorf("%s: %w", path, scan.ErrNodeNotFound)
		}
		t = t.Children[i]
	}
	return NodeOf(c.Ledger, t), nil
}

// Reads returns the paths passed to Read in call order.
func (c *Converter) Reads() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.reads...)
}

// Release implements scan.Converter.
func (c *Converter) Release() error {
	return c.token.Release()
}

// NodeOf allocates the native form of t from l.
func NodeOf(l *handle.Ledger, t *Tree) scan.Node {
	names := make([]string, 0, len(t.Children)+len(t.Phantom))
	for _, c := range t.Children {
		names = append(names, c.Name)
	}
	names = append(names, t.Phantom...)
	return scan.Node{
		Name:       t.Name,
		Parameters: handle.NewList(l, "parameters", t.Parameters),
		Data:       handle.NewList(l, "data", t.Data),
		Metadata:   handle.NewMap(l, "metadata", t.Metadata),
		Table: scan.Table{
			ColumnNames: t.Columns,
			Rows:        handle.NewRowList(l, "table.rows", t.Rows),
		},
		ChildNodeNames: handle.NewList(l, "childNodeNames", names),
	}
}

// Scanner is the recognition handle of a Capability.
type Scanner struct {
	cap   *Capability
	token *handle.Token
}

// IsRecognized implements scan.Scanner.
func (s *Scanner) IsRecognized(string) bool {
	return s.token.Check("isRecognized") == nil && s.cap.Recognize
}

// GetConverter implements scan.Scanner. Each call allocates a new converter.
func (s *Scanner) GetConverter(path string) (scan.Converter, error) {
	if err := s.token.Check("getConverter"); err != nil {
		return nil, err
	}
	if s.cap.ConvErr != nil {
		return nil, s.cap.ConvErr
	}
	if !s.cap.Recognize || s.cap.Root == nil {
		return nil, fmt.Errorf("%s: %w", path, scan.ErrNoConverter)
	}
	conv := NewConverter(s.cap.Ledger, s.cap.Root)
	conv.FailAt = s.cap.FailAt
	s.cap.mu.Lock()
	s.cap.converters = append(s.cap.converters, conv)
	s.cap.mu.Unlock()
	return conv, nil
}

// Release implements scan.Scanner.
func (s *Scanner) Release() error {
	return s.token.Release()
}

// Capability hands out Scanners over one in-memory document.
type Capability struct {
	Ledger    *handle.Ledger
	Recognize bool
	Root      *Tree
	ConvErr   error
	ScanErr   error
	FailAt    map[string]error

	mu         sync.Mutex
	converters []*Converter
}

// Name implements scan.Capability.
func (c *Capability) Name() string { return "scantest" }

// NewScanner implements scan.Capability.
func (c *Capability) NewScanner(context.Context, afero.Fs) (scan.Scanner, error) {
	if c.ScanErr != nil {
		return nil, c.ScanErr
	}
	return &Scanner{cap: c, token: handle.NewToken(c.Ledger, "scanner")}, nil
}

// Converters returns the converters handed out so far.
func (c *Capability) Converters() []*Converter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Converter(nil), c.converters...)
}
