// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package worker

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/scinode/internal/logging"
	"github.com/pdiddy/scinode/pkg/types"
)

// maxLine bounds one NDJSON command; inline file data is base64 encoded on
// a single line.
const maxLine = 64 << 20

// DecodeCommands reads newline-delimited JSON commands from r and sends them
// on out until r is exhausted or ctx is done. Blank lines are skipped and
// lines that are not a JSON object are logged and dropped.
func DecodeCommands(ctx context.Context, r io.Reader, out chan<- types.Command, logger *zap.Logger) error {
	logger = logging.OrNop(logger)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var cmd types.Command
		if err := json.Unmarshal(b, &cmd); err != nil {
			logger.Warn("dropping malformed command", zap.Int("line", line), zap.Error(err))
			continue
		}
		select {
		case out <- cmd:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading commands: %w", err)
	}
	return nil
}

// EncodeEvents writes each event from in to w as one JSON line until in is
// closed.
func EncodeEvents(w io.Writer, in <-chan types.Event) error {
	enc := json.NewEncoder(w)
	for ev := range in {
		if err := enc.Encode(ev); err != nil {
			return fmt.Errorf("writing %s event: %w", ev.Command, err)
		}
	}
	return nil
}

// Serve runs w as an out-of-process worker: commands are NDJSON lines on r,
// events NDJSON lines on wr. It returns when r is exhausted and every
// command was handled, or when ctx is done.
func Serve(ctx context.Context, w *Worker, r io.Reader, wr io.Writer, queue int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmds := make(chan types.Command)
	events := make(chan types.Event, max(queue, 0))

	// The decoder is not part of the group: a read blocked on stdin must not
	// hold up shutdown.
	decodeErr := make(chan error, 1)
	go func() {
		decodeErr <- DecodeCommands(ctx, r, cmds, w.logger)
		close(cmds)
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(events)
		return w.Run(gctx, cmds, events)
	})
	g.Go(func() error {
		return EncodeEvents(wr, events)
	})
	err := g.Wait()

	select {
	case derr := <-decodeErr:
		if derr != nil && !errors.Is(derr, context.Canceled) {
			err = errors.Join(err, derr)
		}
	default:
	}
	return err
}
