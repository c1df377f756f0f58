// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package worker

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/scinode/internal/logging"
	"github.com/pdiddy/scinode/pkg/types"
)

// Factory builds the i-th worker of a pool. Every worker must own its own
// staging context.
type Factory func(i int) (*Worker, error)

// Pool reads several files concurrently, one file per worker at a time.
type Pool struct {
	workers []*Worker
	logger  *zap.Logger
}

// NewPool builds size workers with factory. When factory fails, the workers
// built so far are closed.
func NewPool(size int, factory Factory, logger *zap.Logger) (*Pool, error) {
	if size < 1 {
		size = 1
	}
	p := &Pool{logger: logging.OrNop(logger)}
	for i := range size {
		w, err := factory(i)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("creating worker %d: %w", i, err), p.Close())
		}
		p.workers = append(p.workers, w)
	}
	return p, nil
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Close closes every worker. The pool must not be used afterwards.
func (p *Pool) Close() error {
	var errs []error
	for _, w := range p.workers {
		errs = append(errs, w.Close())
	}
	return errors.Join(errs...)
}

// ReadAll reads every file and returns the events of each, indexed like
// files. A failed read is reported through its own events and does not stop
// the others; the error is non-nil only when ctx is done.
func (p *Pool) ReadAll(ctx context.Context, files []types.FileRef) ([][]types.Event, error) {
	idle := make(chan *Worker, len(p.workers))
	for _, w := range p.workers {
		idle <- w
	}
	results := make([][]types.Event, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(p.workers))
	for i, f := range files {
		g.Go(func() error {
			w := <-idle
			defer func() { idle <- w }()
			p.logger.Debug("pool read", zap.Int("index", i), zap.String("file", f.Name))

			var events []types.Event
			err := w.Handle(gctx, types.ReadCommand(f), func(ev types.Event) error {
				events = append(events, ev)
				return nil
			})
			results[i] = events
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}
