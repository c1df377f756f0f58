// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scan defines the contract between the extraction pipeline and a
// conversion capability: a Scanner recognizes a staged file and hands out a
// Converter, and a Converter materializes the document's nodes by path.
// Scanners and converters are handles and must be released exactly once.
package scan

import (
	"context"
	"errors"

	"github.com/spf13/afero"

	"github.com/pdiddy/scinode/internal/handle"
	"github.com/pdiddy/scinode/pkg/types"
)

var (
	// ErrInvalidPath is returned for a node path that is not "/" or a
	// sequence of "/index" segments.
	ErrInvalidPath = errors.New("invalid node path")

	// ErrNodeNotFound is returned when a node path points past the children
	// a document actually has.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoConverter is returned when no scanner recognizes a file.
	ErrNoConverter = errors.New("no suitable converter found")
)

// Table is the tabular part of a node. ColumnNames is a value; Rows is a
// handle.
type Table struct {
	ColumnNames []types.ColumnName
	Rows        *handle.RowList
}

// Node is one document node. The struct itself is a value; its collections
// are handles owned by whoever received the node. Absent collections are
// nil.
type Node struct {
	Name           string
	Parameters     *handle.List[types.KeyValue]
	Data           *handle.List[types.Point]
	Metadata       *handle.Map
	Table          Table
	ChildNodeNames *handle.List[string]
}

// Release frees every collection handle of n. It is meant for code that
// receives a node it will not project; the projector releases nodes itself.
func (n Node) Release() error {
	return handle.ReleaseAll(n.Parameters, n.Data, n.Metadata, n.Table.Rows, n.ChildNodeNames)
}

// Converter reads nodes of one recognized document.
type Converter interface {
	// Read returns the node at path ("/", "/0", "/0/1", ...).
	Read(path string) (Node, error)

	// Release frees the converter.
	Release() error
}

// Scanner is a recognition handle.
type Scanner interface {
	// IsRecognized reports whether the file at path is a supported format.
	// It is a shallow check.
	IsRecognized(path string) bool

	// GetConverter returns a converter bound to the file at path.
	GetConverter(path string) (Converter, error)

	// Release frees the scanner.
	Release() error
}

// Capability creates scanners that open files through fsys.
type Capability interface {
	// Name identifies the capability, e.g. "treedoc".
	Name() string

	// NewScanner acquires a recognition handle. Work the scanner does on
	// behalf of the read, such as running an external tool, is bound to ctx.
	NewScanner(ctx context.Context, fsys afero.Fs) (Scanner, error)
}
