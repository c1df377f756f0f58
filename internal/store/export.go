// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// Export is a stored read with its nodes.
type Export struct {
	Read  ReadRecord   `json:"read" yaml:"read"`
	Nodes []NodeRecord `json:"nodes" yaml:"nodes"`
}

// Export formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Export loads the read matching id, as Get does, with its nodes.
func (s *Store) Export(ctx context.Context, id string) (Export, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return Export{}, err
	}
	nodes, err := s.Nodes(ctx, rec.ID)
	if err != nil {
		return Export{}, err
	}
	if nodes == nil {
		nodes = []NodeRecord{}
	}
	return Export{Read: rec, Nodes: nodes}, nil
}

// WriteExport writes the read matching id to w in format.
func (s *Store) WriteExport(ctx context.Context, id, format string, w io.Writer) error {
	exp, err := s.Export(ctx, id)
	if err != nil {
		return err
	}
	switch format {
	case FormatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(exp); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(exp); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}
