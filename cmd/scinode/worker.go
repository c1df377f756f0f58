// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/scinode/internal/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run a worker speaking the protocol on stdin and stdout",
	Long: `Worker reads one JSON command per line from stdin and writes one JSON
event per line to stdout. A read command names the file by path or carries
its bytes inline as base64:

  {"command":"read","file":{"name":"a.yaml","path":"/data/a.yaml"}}

Each read answers with showName, one showNodeContent per node, an error
event if the read failed, and a final readComplete. Unknown commands are
logged to stderr and ignored. The worker exits when stdin is closed.`,
	Args:   cobra.NoArgs,
	PreRun: func(cmd *cobra.Command, args []string) { bindFlags(cmd, workerFlagKeys) },
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		w, err := newWorker(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		err = worker.Serve(cmd.Context(), w, os.Stdin, cmd.OutOrStdout(), cfg.Worker.Queue)
		return errors.Join(err, w.Close())
	},
}

var workerFlagKeys = map[string]string{
	"max-depth": "walk.max_depth",
	"backend":   "stage.backend",
	"queue":     "worker.queue",
}

func init() {
	workerCmd.Flags().Int("max-depth", 0, "maximum nesting depth to walk (0 = unbounded)")
	workerCmd.Flags().String("backend", "memory", "staging backend: memory or os")
	workerCmd.Flags().Int("queue", 64, "event buffer size")

	rootCmd.AddCommand(workerCmd)
}
