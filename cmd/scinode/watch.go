// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/scinode/internal/sink"
	"github.com/pdiddy/scinode/internal/watch"
	"github.com/pdiddy/scinode/internal/worker"
	"github.com/pdiddy/scinode/pkg/types"
)

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Read a file and read it again whenever it changes",
	Long: `Watch reads a file like read does, then keeps watching it and sends a
new read command to the same worker each time the file is saved. Stop with
Ctrl-C.`,
	Args:   cobra.ExactArgs(1),
	PreRun: func(cmd *cobra.Command, args []string) { bindFlags(cmd, watchFlagKeys) },
	RunE:   runWatch,
}

var watchFlagKeys = map[string]string{
	"format":    "output.format",
	"max-depth": "walk.max_depth",
	"store":     "store.path",
}

func init() {
	watchCmd.Flags().StringP("format", "f", string(types.OutputText), "output format: text or json")
	watchCmd.Flags().Int("max-depth", 0, "maximum nesting depth to walk (0 = unbounded)")
	watchCmd.Flags().String("store", "", "SQLite file to record reads in")
	watchCmd.Flags().Duration("debounce", watch.DefaultDebounce, "quiet period before a change triggers a read")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
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
	w, err := newWorker(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	conn := worker.Start(ctx, w, cfg.Worker.Queue)
	file := fileRefs(args)[0]
	debounce, _ := cmd.Flags().GetDuration("debounce")

	err = watch.New(args[0], debounce, logger).Run(ctx, func(ctx context.Context) error {
		if err := conn.Send(ctx, types.ReadCommand(file)); err != nil {
			return err
		}
		for ev := range conn.Events() {
			if err := out.Handle(ev); err != nil {
				logger.Warn("presenting event failed", zap.String("command", ev.Command), zap.Error(err))
			}
			if ev.Command == types.EventReadComplete {
				return nil
			}
		}
		return worker.ErrClosed
	})
	if cerr := conn.Terminate(); cerr != nil && !errors.Is(cerr, context.Canceled) {
		err = errors.Join(err, cerr)
	}
	return errors.Join(err, w.Close())
}
