// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package worker is the isolated side of the message channel. A Worker
// takes commands one at a time and answers with events: a read command is
// fully drained, down to the unmount of its staged file, before the next
// command is looked at.
package worker

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/scinode/internal/logging"
	"github.com/pdiddy/scinode/internal/pipeline"
	"github.com/pdiddy/scinode/pkg/types"
)

// ErrClosed is returned when sending to a connection that was closed.
var ErrClosed = errors.New("worker connection closed")

// Worker handles commands with a single pipeline.
type Worker struct {
	pipeline *pipeline.Pipeline
	logger   *zap.Logger
}

// New returns a worker that runs reads through p.
func New(p *pipeline.Pipeline, logger *zap.Logger) *Worker {
	return &Worker{pipeline: p, logger: logging.OrNop(logger)}
}

// Close releases the worker's staging context. Call it once Run or Handle
// have returned.
func (w *Worker) Close() error {
	if w.pipeline == nil {
		return nil
	}
	return w.pipeline.Close()
}

// Run handles commands from in until in is closed or ctx is done. Events
// are sent on out; Run never closes out.
func (w *Worker) Run(ctx context.Context, in <-chan types.Command, out chan<- types.Event) error {
	emit := func(ev types.Event) error {
		select {
		case out <- ev:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd, ok := <-in:
			if !ok {
				return nil
			}
			if err := w.Handle(ctx, cmd, emit); err != nil {
				return err
			}
		}
	}
}

// Handle processes one command. A read always ends with a readComplete
// event, preceded by an error event when the read failed. Unknown commands
// are logged and ignored. The returned error is non-nil only when the
// terminal events could not be delivered.
func (w *Worker) Handle(ctx context.Context, cmd types.Command, emit pipeline.EmitFunc) error {
	switch cmd.Command {
	case types.CommandRead:
		res := w.pipeline.Read(ctx, cmd.File, emit)
		if failure, failed := res.Failure(); failed {
			if err := emit(types.Event{Command: types.EventError, Data: failure}); err != nil {
				return fmt.Errorf("emitting error for %s: %w", cmd.File.Name, err)
			}
		}
		if err := emit(types.Event{Command: types.EventReadComplete, Data: res.Summary()}); err != nil {
			return fmt.Errorf("emitting completion for %s: %w", cmd.File.Name, err)
		}
		return nil
	default:
		w.logger.Warn("ignoring unknown command", zap.String("command", cmd.Command))
		return nil
	}
}
