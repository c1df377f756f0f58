// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one read invocation: stage the file, resolve a
// converter, walk and project the document, emit one event per node, then
// unmount the file and release the converter. Cleanup happens on every
// path, whether the file was unrecognized, the document malformed or the
// read cancelled.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/scinode/internal/dispatch"
	"github.com/pdiddy/scinode/internal/handle"
	"github.com/pdiddy/scinode/internal/logging"
	"github.com/pdiddy/scinode/internal/scan"
	"github.com/pdiddy/scinode/internal/stage"
	"github.com/pdiddy/scinode/internal/walk"
	"github.com/pdiddy/scinode/pkg/types"
)

// EmitFunc delivers an event to the orchestrator. An error aborts the read.
type EmitFunc func(types.Event) error

// Result is the outcome of one read.
type Result struct {
	// ID correlates the log lines of one read.
	ID     string
	File   string
	Status types.ReadStatus
	// Nodes counts the showNodeContent events emitted.
	Nodes int
	// Path is the node path that failed, if any.
	Path string
	Err  error
}

// Summary returns the payload of the terminal readComplete event.
func (r Result) Summary() types.ReadSummary {
	return types.ReadSummary{File: r.File, Status: r.Status, Nodes: r.Nodes}
}

// Failure returns the payload of an error event, or false when the read did
// not fail.
func (r Result) Failure() (types.ReadError, bool) {
	if r.Err == nil {
		return types.ReadError{}, false
	}
	return types.ReadError{File: r.File, Path: r.Path, Message: r.Err.Error()}, true
}

// Pipeline reads files through one stager and one capability. It is not safe
// for concurrent use: the stager holds a single file at a time.
type Pipeline struct {
	stager     *stage.Stager
	capability scan.Capability
	ledger     *handle.Ledger
	walkOpts   walk.Options
	logger     *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = logging.OrNop(l) }
}

// WithLedger makes the pipeline report handles of l that a read left
// unreleased or released twice.
func WithLedger(l *handle.Ledger) Option {
	return func(p *Pipeline) { p.ledger = l }
}

// WithWalkOptions sets the walk options.
func WithWalkOptions(o walk.Options) Option {
	return func(p *Pipeline) { p.walkOpts = o }
}

// New returns a pipeline over stager and capability.
func New(stager *stage.Stager, capability scan.Capability, opts ...Option) *Pipeline {
	p := &Pipeline{stager: stager, capability: capability, logger: zap.NewNop()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Close releases the stager. The pipeline cannot read afterwards.
func (p *Pipeline) Close() error {
	return p.stager.Close()
}

// Read processes file, passing showName and showNodeContent events to emit.
func (p *Pipeline) Read(ctx context.Context, file types.FileRef, emit EmitFunc) Result {
	res := Result{ID: uuid.NewString(), File: file.Name}
	log := p.logger.With(zap.String("read_id", res.ID), zap.String("file", file.Name))
	before := p.ledger.Stats()
	start := time.Now()

	p.read(ctx, file, emit, log, &res)

	after := p.ledger.Stats()
	if leaked := after.Outstanding - before.Outstanding; leaked > 0 {
		log.Warn("handles left unreleased", zap.Int("count", leaked), zap.Strings("kinds", p.ledger.Outstanding()))
	}
	if v := after.Violations - before.Violations; v > 0 {
		log.Error("handle lifecycle violations", zap.Int("count", v), zap.Errors("violations", p.ledger.Violations()[before.Violations:]))
	}

	fields := []zap.Field{
		zap.String("status", string(res.Status)),
		zap.Int("nodes", res.Nodes),
		zap.Duration("elapsed", time.Since(start)),
	}
	if res.Err != nil {
		log.Warn("read failed", append(fields, zap.String("path", res.Path), zap.Error(res.Err))...)
	} else {
		log.Info("read complete", fields...)
	}
	return res
}

func (p *Pipeline) read(ctx context.Context, file types.FileRef, emit EmitFunc, log *zap.Logger, res *Result) {
	staged, err := p.stager.Mount(file)
	if err != nil {
		res.Status, res.Err = types.ReadFailed, err
		return
	}

	var conv scan.Converter
	defer func() {
		if err := p.stager.Unmount(staged); err != nil {
			log.Error("unmount failed", zap.String("path", staged), zap.Error(err))
			res.Status, res.Err = types.ReadFailed, errors.Join(res.Err, err)
		}
		if conv != nil {
			if err := conv.Release(); err != nil {
				log.Error("releasing converter failed", zap.Error(err))
				res.Status, res.Err = types.ReadFailed, errors.Join(res.Err, err)
			}
		}
	}()

	conv, err = dispatch.Resolve(ctx, p.capability, p.stager.FS(), staged, log)
	if err != nil {
		res.Status, res.Err = types.ReadFailed, err
		return
	}
	if conv == nil {
		res.Status = types.ReadUnrecognized
		return
	}
	res.Status = types.ReadRecognized

	if err := emit(types.ShowName(file.Name)); err != nil {
		res.Status, res.Err = types.ReadFailed, fmt.Errorf("emitting name: %w", err)
		return
	}

	err = walk.Walk(ctx, conv, scan.RootPath, p.walkOpts, func(path string, node types.ProjectedNode) error {
		if err := emit(types.ShowNodeContent(path, node)); err != nil {
			return fmt.Errorf("emitting node %s: %w", path, err)
		}
		res.Nodes++
		return nil
	})
	if err != nil {
		res.Status, res.Err = types.ReadFailed, err
		var re *walk.ReadError
		if errors.As(err, &re) {
			res.Path = re.Path
		}
	}
}
