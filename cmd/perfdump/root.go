// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"log/slog"

	"github.com/go-perf/perfdata/internal/logging"
	"github.com/go-perf/perfdata/perffile/dumpconfig"
	"github.com/spf13/cobra"
)

// flagInput is shared by every subcommand; cobra.Command.Args
// validation happens per-subcommand since "header" and "meta" take no
// positional arguments beyond the file.
var (
	flagInput    string
	flagConfig   string
	flagLogLevel string

	logger *slog.Logger
	dcfg   *dumpconfig.Config
)

var rootCmd = &cobra.Command{
	Use:   "perfdump",
	Short: "Inspect Linux perf.data and Android simpleperf profiles",
	Long: `perfdump reads a perf.data (or simpleperf) profile and prints
its metadata or its records, without needing perf or simpleperf
installed.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logging.New(flagLogLevel)
		if flagConfig == "" {
			dcfg = dumpconfig.Default()
			return nil
		}
		cfg, err := dumpconfig.Load(flagConfig)
		if err != nil {
			return err
		}
		dcfg = cfg
		logger.Debug("loaded config", slog.String("path", flagConfig))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagInput, "input", "i", "perf.data", "profile `file` to read")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "optional YAML config `file` (see perffile/dumpconfig)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log `level`: debug, info, warn, error")
}
