// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// KeyValue is one ordered parameter of a document node.
type KeyValue struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Point is one sample of a node's numeric series.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// ColumnName pairs a column's internal key with its display label.
type ColumnName struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Row maps column keys to cell values. Rows are sparse: a column without a
// value in the source row has no entry.
type Row map[string]string

// Table is the tabular part of a projected node.
type Table struct {
	ColumnNames []ColumnName `json:"columnNames" yaml:"columnNames"`
	Rows        []Row        `json:"rows" yaml:"rows"`
}

// ProjectedNode is the JSON-safe projection of one document node. It shares
// no memory with the native node it was copied from, so it can be handed to
// another goroutine or process as is.
type ProjectedNode struct {
	Name           string            `json:"name" yaml:"name"`
	Parameters     []KeyValue        `json:"parameters" yaml:"parameters"`
	Data           []Point           `json:"data" yaml:"data"`
	Metadata       map[string]string `json:"metadata" yaml:"metadata"`
	Table          Table             `json:"table" yaml:"table"`
	ChildNodeNames []string          `json:"childNodeNames" yaml:"childNodeNames"`
}

// ChildCount returns the number of children the node declares.
func (n ProjectedNode) ChildCount() int {
	return len(n.ChildNodeNames)
}
