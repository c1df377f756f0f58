// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Commands sent from the orchestrator to a worker.
const (
	CommandRead = "read"
)

// Events sent from a worker back to the orchestrator.
const (
	EventShowName        = "showName"
	EventShowNodeContent = "showNodeContent"
	EventError           = "error"
	EventReadComplete    = "readComplete"
)

// ReadStatus is the outcome of one read invocation.
type ReadStatus string

const (
	ReadRecognized   ReadStatus = "recognized"
	ReadUnrecognized ReadStatus = "unrecognized"
	ReadFailed       ReadStatus = "failed"
)

// FileRef identifies a user file handed to a worker. Data carries the file
// bytes inline; when Data is nil the worker reads the file at Path.
type FileRef struct {
	Name string `json:"name"`
	Path string `json:"path,omitempty"`
	Data []byte `json:"data,omitempty"`
}

// Open returns a reader over the file's bytes from the host filesystem or
// the inline data.
func (f FileRef) Open() (io.ReadCloser, error) {
	if f.Data != nil {
		return io.NopCloser(bytes.NewReader(f.Data)), nil
	}
	if f.Path == "" {
		return nil, fmt.Errorf("file %q has neither data nor path", f.Name)
	}
	return os.Open(f.Path)
}

// Command is a message from the orchestrator to a worker.
type Command struct {
	Command string  `json:"command"`
	File    FileRef `json:"file"`
}

// ReadCommand builds a read command for file.
func ReadCommand(file FileRef) Command {
	return Command{Command: CommandRead, File: file}
}

// NodeContent is the payload of a showNodeContent event.
type NodeContent struct {
	Path string        `json:"path"`
	Node ProjectedNode `json:"node"`
}

// ReadError is the payload of an error event.
type ReadError struct {
	File    string `json:"file"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// ReadSummary is the payload of the terminal readComplete event. It is sent
// after the staged file was unmounted and the reader released.
type ReadSummary struct {
	File   string     `json:"file"`
	Status ReadStatus `json:"status"`
	Nodes  int        `json:"nodes"`
}

// Event is a message from a worker to the orchestrator. Data holds a string
// for showName, NodeContent, ReadError or ReadSummary for the other events.
type Event struct {
	Command string `json:"command"`
	Data    any    `json:"data"`
}

// ShowName builds a showName event.
func ShowName(name string) Event {
	return Event{Command: EventShowName, Data: name}
}

// ShowNodeContent builds a showNodeContent event.
func ShowNodeContent(path string, node ProjectedNode) Event {
	return Event{Command: EventShowNodeContent, Data: NodeContent{Path: path, Node: node}}
}

// UnmarshalJSON decodes Data into the payload type selected by Command.
// Unknown commands keep Data as raw JSON.
func (e *Event) UnmarshalJSON(b []byte) error {
	var wire struct {
		Command string          `json:"command"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	e.Command = wire.Command

	var target any
	switch wire.Command {
	case EventShowName:
		var name string
		target = &name
	case EventShowNodeContent:
		target = &NodeContent{}
	case EventError:
		target = &ReadError{}
	case EventReadComplete:
		target = &ReadSummary{}
	default:
		e.Data = wire.Data
		return nil
	}
	if len(wire.Data) > 0 {
		if err := json.Unmarshal(wire.Data, target); err != nil {
			return fmt.Errorf("decoding %s payload: %w", wire.Command, err)
		}
	}
	switch v := target.(type) {
	case *string:
		e.Data = *v
	case *NodeContent:
		e.Data = *v
	case *ReadError:
		e.Data = *v
	case *ReadSummary:
		e.Data = *v
	}
	return nil
}
