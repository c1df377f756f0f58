// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/scinode/internal/store"
	"github.com/pdiddy/scinode/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past reads recorded in the history store",
	Long: `History lists reads recorded with --store (or store.path in the
config), newest first. Use export with a read id to get its nodes.`,
	Args:   cobra.NoArgs,
	PreRun: func(cmd *cobra.Command, args []string) { bindFlags(cmd, storeFlagKeys) },
	RunE:   runHistory,
}

var exportCmd = &cobra.Command{
	Use:   "export <read-id>",
	Short: "Export a recorded read with all its nodes",
	Long: `Export writes one recorded read, with every node in walk order, as
YAML or JSON. A unique prefix of the read id is enough.`,
	Args:   cobra.ExactArgs(1),
	PreRun: func(cmd *cobra.Command, args []string) { bindFlags(cmd, storeFlagKeys) },
	RunE:   runExport,
}

var storeFlagKeys = map[string]string{
	"store": "store.path",
}

func init() {
	historyCmd.Flags().String("store", "", "SQLite history file")
	historyCmd.Flags().String("file", "", "only reads of this file name")
	historyCmd.Flags().String("status", "", "only reads with this status: recognized, unrecognized or failed")
	historyCmd.Flags().Int("limit", 50, "maximum number of reads")
	historyCmd.Flags().Bool("json", false, "output as JSON")

	exportCmd.Flags().String("store", "", "SQLite history file")
	exportCmd.Flags().String("format", store.FormatYAML, "export format: yaml or json")
	exportCmd.Flags().StringP("output", "o", "", "write to this file instead of stdout")

	rootCmd.AddCommand(historyCmd, exportCmd)
}

func requireStore() (*store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Store.Path == "" {
		return nil, fmt.Errorf("no history store: set --store or store.path")
	}
	return store.Open(cfg.Store.Path, logger)
}

func runHistory(cmd *cobra.Command, args []string) error {
	st, err := requireStore()
	if err != nil {
		return err
	}
	defer st.Close()

	file, _ := cmd.Flags().GetString("file")
	status, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")
	reads, err := st.List(cmd.Context(), store.ListOptions{File: file, Status: types.ReadStatus(status), Limit: limit})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(reads)
	}

	if len(reads) == 0 {
		fmt.Fprintln(out, "No reads recorded.")
		return nil
	}
	fmt.Fprintf(out, "%-8s  %-20s  %-30s  %-12s  %5s  %s\n", "ID", "Started", "File", "Status", "Nodes", "Error")
	fmt.Fprintln(out, strings.Repeat("-", 100))
	for _, r := range reads {
		name := r.File
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		msg := r.ErrorMessage
		if r.ErrorPath != "" {
			msg = r.ErrorPath + ": " + msg
		}
		fmt.Fprintf(out, "%-8s  %-20s  %-30s  %-12s  %5d  %s\n",
			r.ID[:8], r.StartedAt.Local().Format("2006-01-02 15:04:05"), name, r.Status, r.Nodes, msg)
	}
	fmt.Fprintf(out, "\n%d reads\n", len(reads))
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	st, err := requireStore()
	if err != nil {
		return err
	}
	defer st.Close()

	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	w := cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}
	return st.WriteExport(cmd.Context(), args[0], format, w)
}
