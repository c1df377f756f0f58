// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package treedoc is a conversion capability for node trees written as YAML
// or JSON. It serves as the reference format of the CLI and as a fixture
// for the pipeline: every scanner, converter and node collection it hands
// out is a handle allocated from the capability's ledger.
//
//	format: scinode-tree
//	node:
//	  name: Root
//	  parameters: [{key: TITLE, value: demo}]
//	  data: [{x: 1.5, y: 2}]
//	  metadata: {origin: lab}
//	  table:
//	    columnNames: [{key: c1, value: Col1}]
//	    rows: [{c1: "42"}]
//	  children: []
package treedoc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/scinode/internal/handle"
	"github.com/pdiddy/scinode/internal/scan"
	"github.com/pdiddy/scinode/pkg/types"
)

// FormatID is the value of the top-level "format" key.
const FormatID = "scinode-tree"

// peekSize bounds how much of a file the recognition check reads.
const peekSize = 4096

var extensions = map[string]bool{
	".yaml":   true,
	".yml":    true,
	".json":   true,
	".sntree": true,
}

// Document is the decoded file.
type Document struct {
	Format string `yaml:"format" json:"format"`
	Node   *Node  `yaml:"node" json:"node"`
}

// Node is one node of a Document.
type Node struct {
	Name       string            `yaml:"name" json:"name"`
	Parameters []types.KeyValue  `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Data       []types.Point     `yaml:"data,omitempty" json:"data,omitempty"`
	Metadata   map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
	Table      *Table            `yaml:"table,omitempty" json:"table,omitempty"`
	Children   []*Node           `yaml:"children,omitempty" json:"children,omitempty"`
}

// Table is the tabular part of a Node.
type Table struct {
	ColumnNames []types.ColumnName  `yaml:"columnNames" json:"columnNames"`
	Rows        []map[string]string `yaml:"rows" json:"rows"`
}

// Capability recognizes scinode-tree files.
type Capability struct {
	ledger *handle.Ledger
}

// New returns the capability. l may be nil.
func New(l *handle.Ledger) *Capability {
	return &Capability{ledger: l}
}

// Name implements scan.Capability.
func (c *Capability) Name() string { return "treedoc" }

// NewScanner implements scan.Capability.
func (c *Capability) NewScanner(_ context.Context, fsys afero.Fs) (scan.Scanner, error) {
	return &Scanner{fs: fsys, ledger: c.ledger, token: handle.NewToken(c.ledger, "treedoc.scanner")}, nil
}

// Scanner is the treedoc recognition handle.
type Scanner struct {
	fs     afero.Fs
	ledger *handle.Ledger
	token  *handle.Token
}

// IsRecognized checks the extension and the format key near the start of
// the file.
func (s *Scanner) IsRecognized(p string) bool {
	if s.token.Check("isRecognized") != nil {
		return false
	}
	if !extensions[strings.ToLower(path.Ext(p))] {
		return false
	}
	f, err := s.fs.Open(p)
	if err != nil {
		return false
	}
	defer f.Close()

	head, err := io.ReadAll(io.LimitReader(f, peekSize))
	if err != nil {
		return false
	}
	return hasFormatKey(head)
}

// hasFormatKey looks for the format key without decoding the whole file:
// a YAML document must declare it on its first key line, JSON anywhere in
// the first block.
func hasFormatKey(head []byte) bool {
	trimmed := bytes.TrimSpace(head)
	if bytes.HasPrefix(trimmed, []byte("{")) {
		return bytes.Contains(head, []byte(`"format"`)) && bytes.Contains(head, []byte(`"`+FormatID+`"`))
	}
	for _, line := range strings.Split(string(head), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || line == "---" {
			continue
		}
		var kv map[string]string
		if err := yaml.Unmarshal([]byte(line), &kv); err != nil {
			return false
		}
		return kv["format"] == FormatID
	}
	return false
}

// GetConverter parses the whole file and returns a converter over it.
func (s *Scanner) GetConverter(p string) (scan.Converter, error) {
	if err := s.token.Check("getConverter"); err != nil {
		return nil, err
	}
	b, err := afero.ReadFile(s.fs, p)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p, err)
	}
	doc, err := Decode(b)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", p, err)
	}
	return NewConverter(doc, s.ledger), nil
}

// Release implements scan.Scanner.
func (s *Scanner) Release() error {
	return s.token.Release()
}

// Decode parses a treedoc file. YAML is a superset of JSON, so one decoder
// handles both.
func Decode(b []byte) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if doc.Format != FormatID {
		return nil, fmt.Errorf("format %q, want %q", doc.Format, FormatID)
	}
	if doc.Node == nil {
		return nil, fmt.Errorf("document has no root node")
	}
	return &doc, nil
}

// Converter serves the nodes of one parsed document.
type Converter struct {
	root   *Node
	ledger *handle.Ledger
	token  *handle.Token
}

// NewConverter returns a converter handle over a decoded document, with
// node collections allocated from l.
func NewConverter(doc *Document, l *handle.Ledger) *Converter {
	return &Converter{root: doc.Node, ledger: l, token: handle.NewToken(l, "treedoc.converter")}
}

// Read returns the node at p.
func (c *Converter) Read(p string) (scan.Node, error) {
	if err := c.token.Check("read"); err != nil {
		return scan.Node{}, err
	}
	indices, err := scan.ParsePath(p)
	if err != nil {
		return scan.Node{}, err
	}
	n := c.root
	for depth, i := range indices {
		if i >= len(n.Children) || n.Children[i] == nil {
			return scan.Node{}, fmt.Errorf("%s: index %d at depth %d: %w", p, i, depth+1, scan.ErrNodeNotFound)
		}
		n = n.Children[i]
	}
	return c.native(n), nil
}

func (c *Converter) native(n *Node) scan.Node {
	names := make([]string, len(n.Children))
	for i, child := range n.Children {
		if child != nil {
			names[i] = child.Name
		}
	}
	out := scan.Node{
		Name:           n.Name,
		Parameters:     handle.NewList(c.ledger, "parameters", n.Parameters),
		Data:           handle.NewList(c.ledger, "data", n.Data),
		Metadata:       handle.NewMap(c.ledger, "metadata", n.Metadata),
		ChildNodeNames: handle.NewList(c.ledger, "childNodeNames", names),
	}
	var rows []map[string]string
	if n.Table != nil {
		out.Table.ColumnNames = n.Table.ColumnNames
		rows = n.Table.Rows
	}
	out.Table.Rows = handle.NewRowList(c.ledger, "table.rows", rows)
	return out
}

// Release implements scan.Converter.
func (c *Converter) Release() error {
	return c.token.Release()
}
