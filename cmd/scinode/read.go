// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/scinode/internal/sink"
	"github.com/pdiddy/scinode/internal/worker"
	"github.com/pdiddy/scinode/pkg/types"
)

var readCmd = &cobra.Command{
	Use:   "read <file>...",
	Short: "Read files and display every node",
	Long: `Read sends each file to a worker. When a registered capability
recognizes the format, every node is displayed in depth-first order;
otherwise the file is reported as not recognized.

With --jobs greater than one, files are read concurrently by a pool of
workers, each with its own staging directory. Output stays in argument
order.`,
	Args:   cobra.MinimumNArgs(1),
	PreRun: func(cmd *cobra.Command, args []string) { bindFlags(cmd, readFlagKeys) },
	RunE:   runRead,
}

var readFlagKeys = map[string]string{
	"format":    "output.format",
	"jobs":      "worker.jobs",
	"max-depth": "walk.max_depth",
	"backend":   "stage.backend",
	"store":     "store.path",
}

func init() {
	readCmd.Flags().StringP("format", "f", string(types.OutputText), "output format: text or json")
	readCmd.Flags().IntP("jobs", "j", types.DefaultJobs, "number of workers")
	readCmd.Flags().Int("max-depth", 0, "maximum nesting depth to walk (0 = unbounded)")
	readCmd.Flags().String("backend", string(types.StageMemory), "staging backend: memory or os")
	readCmd.Flags().String("store", "", "SQLite file to record reads in")
	rootCmd.AddCommand(readCmd)
}

func fileRefs(paths []string) []types.FileRef {
	refs := make([]types.FileRef, len(paths))
	for i, p := range paths {
		refs[i] = types.FileRef{Name: filepath.Base(p), Path: p}
	}
	return refs
}

func runRead(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out, err := presenter(cfg, cmd)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
		out = sink.Multi(out, st.Recorder(cmd.Context()))
	}

	files := fileRefs(args)
	var failed int
	count := sink.Func(func(ev types.Event) error {
		if s, ok := ev.Data.(types.ReadSummary); ok && s.Status == types.ReadFailed {
			failed++
		}
		return nil
	})
	out = sink.Multi(out, count)

	if cfg.Worker.Jobs > 1 && len(files) > 1 {
		err = readPool(cmd.Context(), cfg, files, out)
	} else {
		err = readSequential(cmd.Context(), cfg, files, out)
	}
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d read(s) failed", failed)
	}
	return nil
}

// readSequential streams the events of each file from a single worker.
func readSequential(ctx context.Context, cfg types.Config, files []types.FileRef, out sink.Sink) (err error) {
	w, err := newWorker(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, w.Close()) }()
	conn := worker.Start(ctx, w, cfg.Worker.Queue)
	for _, f := range files {
		if err := conn.Send(ctx, types.ReadCommand(f)); err != nil {
			return errors.Join(err, conn.Terminate())
		}
		for ev := range conn.Events() {
			if err := out.Handle(ev); err != nil {
				return errors.Join(err, conn.Terminate())
			}
			if ev.Command == types.EventReadComplete {
				break
			}
		}
	}
	return conn.Close()
}

// readPool reads all files on cfg.Worker.Jobs workers and presents the
// results in argument order.
func readPool(ctx context.Context, cfg types.Config, files []types.FileRef, out sink.Sink) (err error) {
	pool, err := worker.NewPool(cfg.Worker.Jobs, func(int) (*worker.Worker, error) {
		return newWorker(ctx, cfg)
	}, logger)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, pool.Close()) }()
	results, err := pool.ReadAll(ctx, files)
	for _, events := range results {
		for _, ev := range events {
			if herr := out.Handle(ev); herr != nil {
				return herr
			}
		}
	}
	return err
}
