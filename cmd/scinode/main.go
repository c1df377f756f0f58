// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the scinode CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/scinode/internal/logging"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is built once flags and config are parsed.
var logger = zap.NewNop()

// rootCmd is the base command for the scinode CLI.
var rootCmd = &cobra.Command{
	Use:   "scinode",
	Short: "Read hierarchical scientific documents in an isolated worker",
	Long: `scinode stages a file into a worker's private filesystem, asks the
registered conversion capabilities whether they recognize its format and, if
one does, walks the document depth first. Every node is projected into plain
JSON (parameters, data points, metadata, table, child names) and sent back
to the orchestrator as an event.

Use read to display files, worker to run the worker protocol over stdin and
stdout, watch to re-read a file on change, and history or export to inspect
past reads.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(viper.GetBool("verbose"))
		if err != nil {
			return err
		}
		logger = l
		if f := viper.ConfigFileUsed(); f != "" {
			logger.Debug("using config file", zap.String("path", f))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./scinode.yaml or ~/.config/scinode/scinode.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("scinode")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "scinode"))
		}
	}

	viper.SetEnvPrefix("SCINODE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			fmt.Fprintln(os.Stderr, "reading config:", err)
		}
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
