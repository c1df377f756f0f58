// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sink presents worker events on the orchestrator side.
package sink

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/pdiddy/scinode/pkg/types"
)

// Sink consumes the events of one or more reads.
type Sink interface {
	Handle(ev types.Event) error
}

// Func adapts a function to Sink.
type Func func(types.Event) error

// Handle implements Sink.
func (f Func) Handle(ev types.Event) error { return f(ev) }

// Multi passes each event to every sink, in order. All sinks see the event
// even when an earlier one fails.
func Multi(sinks ...Sink) Sink {
	return Func(func(ev types.Event) error {
		var errs []error
		for _, s := range sinks {
			if s == nil {
				continue
			}
			if err := s.Handle(ev); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// JSON writes every event as one line of JSON, the same framing the worker
// uses on its stdout.
type JSON struct {
	enc *json.Encoder
}

// NewJSON returns a JSON sink writing to w.
func NewJSON(w io.Writer) *JSON {
	return &JSON{enc: json.NewEncoder(w)}
}

// Handle implements Sink.
func (s *JSON) Handle(ev types.Event) error {
	if err := s.enc.Encode(ev); err != nil {
		return fmt.Errorf("writing %s event: %w", ev.Command, err)
	}
	return nil
}

// Text renders events for a terminal: a file header on showName and one
// block per node listing each projected field as JSON.
type Text struct {
	w io.Writer
}

// NewText returns a Text sink writing to w.
func NewText(w io.Writer) *Text {
	return &Text{w: w}
}

// Handle implements Sink. Events it does not know are skipped.
func (s *Text) Handle(ev types.Event) error {
	var buf bytes.Buffer
	switch data := ev.Data.(type) {
	case string:
		if ev.Command != types.EventShowName {
			return nil
		}
		fmt.Fprintf(&buf, "File: %s\n\n", data)
	case types.NodeContent:
		n := data.Node
		fmt.Fprintf(&buf, "Node path: %q\n", data.Path)
		fmt.Fprintf(&buf, "name: %s\n", stringify(n.Name))
		fmt.Fprintf(&buf, "parameters: %s\n", stringify(n.Parameters))
		fmt.Fprintf(&buf, "data: %s\n", stringify(n.Data))
		fmt.Fprintf(&buf, "metadata: %s\n", stringify(n.Metadata))
		fmt.Fprintf(&buf, "table: %s\n", stringify(n.Table))
		fmt.Fprintf(&buf, "childNodeNames: %s\n\n", stringify(n.ChildNodeNames))
	case types.ReadError:
		if data.Path != "" {
			fmt.Fprintf(&buf, "Error in %s at %q: %s\n", data.File, data.Path, data.Message)
		} else {
			fmt.Fprintf(&buf, "Error in %s: %s\n", data.File, data.Message)
		}
	case types.ReadSummary:
		if data.Status == types.ReadUnrecognized {
			fmt.Fprintf(&buf, "%s: format not recognized\n", data.File)
		} else {
			fmt.Fprintf(&buf, "%s: %s, %d nodes\n", data.File, data.Status, data.Nodes)
		}
	default:
		return nil
	}
	if _, err := s.w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing %s event: %w", ev.Command, err)
	}
	return nil
}

// stringify renders v as compact JSON without HTML escaping.
func stringify(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}
