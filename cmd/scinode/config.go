// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/scinode/internal/container"
	"github.com/pdiddy/scinode/internal/formats/external"
	"github.com/pdiddy/scinode/internal/formats/treedoc"
	"github.com/pdiddy/scinode/internal/handle"
	"github.com/pdiddy/scinode/internal/pipeline"
	"github.com/pdiddy/scinode/internal/scan"
	"github.com/pdiddy/scinode/internal/sink"
	"github.com/pdiddy/scinode/internal/stage"
	"github.com/pdiddy/scinode/internal/store"
	"github.com/pdiddy/scinode/internal/walk"
	"github.com/pdiddy/scinode/internal/worker"
	"github.com/pdiddy/scinode/pkg/types"
)

func init() {
	viper.SetDefault("stage.work_dir", types.DefaultWorkDir)
	viper.SetDefault("stage.backend", string(types.StageMemory))
	viper.SetDefault("worker.jobs", types.DefaultJobs)
	viper.SetDefault("worker.queue", types.DefaultQueue)
	viper.SetDefault("output.format", string(types.OutputText))
}

// bindFlags binds the named flags of cmd to config keys. Commands share
// keys, so binding happens when a command runs rather than in init.
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	for flag, key := range keys {
		_ = viper.BindPFlag(key, cmd.Flags().Lookup(flag))
	}
}

func loadConfig() (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg.WithDefaults(), nil
}

// newRegistry returns the built-in treedoc capability followed by the
// external formats of cfg, allocating handles from l.
func newRegistry(ctx context.Context, cfg types.Config, l *handle.Ledger) (*scan.Registry, error) {
	reg := scan.NewRegistry(treedoc.New(l))
	for _, f := range cfg.Formats.External {
		rt, err := container.Select(ctx, f.Runtime)
		if err != nil {
			return nil, fmt.Errorf("external format %s: %w", f.Name, err)
		}
		c, err := external.New(ctx, f, rt, l)
		if err != nil {
			return nil, err
		}
		reg.Register(c)
	}
	return reg, nil
}

// newWorker builds a worker with its own staging context and ledger.
func newWorker(ctx context.Context, cfg types.Config) (*worker.Worker, error) {
	stager, err := stage.FromConfig(cfg.Stage, logger)
	if err != nil {
		return nil, err
	}
	ledger := handle.NewLedger()
	reg, err := newRegistry(ctx, cfg, ledger)
	if err != nil {
		return nil, errors.Join(err, stager.Close())
	}
	p := pipeline.New(stager, reg,
		pipeline.WithLogger(logger),
		pipeline.WithLedger(ledger),
		pipeline.WithWalkOptions(walk.Options{MaxDepth: cfg.Walk.MaxDepth}),
	)
	return worker.New(p, logger), nil
}

// openStore opens the history store, or returns nil when it is disabled.
func openStore(cfg types.Config) (*store.Store, error) {
	if cfg.Store.Path == "" {
		return nil, nil
	}
	return store.Open(cfg.Store.Path, logger)
}

func presenter(cfg types.Config, cmd *cobra.Command) (sink.Sink, error) {
	switch cfg.Output.Format {
	case types.OutputText:
		return sink.NewText(cmd.OutOrStdout()), nil
	case types.OutputJSON:
		return sink.NewJSON(cmd.OutOrStdout()), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", cfg.Output.Format)
	}
}
