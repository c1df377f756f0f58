// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package worker

import (
	"context"
	"sync"

	"github.com/pdiddy/scinode/pkg/types"
)

// Conn is the orchestrator's end of an in-process worker. The worker runs
// on its own goroutine and shares nothing with the caller but the two
// channels.
type Conn struct {
	cmds   chan types.Command
	events chan types.Event
	cancel context.CancelFunc
	done   chan struct{}
	err    error

	mu     sync.RWMutex
	closed bool
}

// Start runs w on a new goroutine. queue is the event buffer size. The
// caller must drain Events until it is closed.
func Start(ctx context.Context, w *Worker, queue int) *Conn {
	if queue < 0 {
		queue = 0
	}
	ctx, cancel := context.WithCancel(ctx)
	c := &Conn{
		cmds:   make(chan types.Command),
		events: make(chan types.Event, queue),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(c.done)
		defer close(c.events)
		c.err = w.Run(ctx, c.cmds, c.events)
	}()
	return c
}

// Send delivers cmd to the worker. It blocks while the worker is busy with
// an earlier command.
func (c *Conn) Send(ctx context.Context, cmd types.Command) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.cmds <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrClosed
	}
}

// Events returns the worker's events. The channel is closed when the
// worker stops.
func (c *Conn) Events() <-chan types.Event { return c.events }

// Close stops accepting commands, waits for the worker to finish the ones
// already sent and returns the worker's error.
func (c *Conn) Close() error {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.cmds)
	}
	c.mu.Unlock()
	<-c.done
	c.cancel()
	return c.err
}

// Terminate cancels the worker, abandoning any read in flight, and waits
// for it to stop. Cleanup of the abandoned read still runs.
func (c *Conn) Terminate() error {
	c.cancel()
	return c.Close()
}
