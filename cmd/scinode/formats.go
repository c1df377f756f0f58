// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/scinode/internal/handle"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List the registered conversion capabilities",
	Long: `Formats lists the conversion capabilities in the order they are asked
to recognize a file: the built-in treedoc format, then every external
format configured under formats.external. External tools are checked for
availability.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := newRegistry(cmd.Context(), cfg, handle.NewLedger())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for i, name := range reg.Names() {
			fmt.Fprintf(out, "%d. %s\n", i+1, name)
		}
		for _, f := range cfg.Formats.External {
			fmt.Fprintf(out, "   %s: %s via %s %s\n", f.Name, strings.Join(f.Extensions, ", "), f.Image, strings.Join(f.Args, " "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}
