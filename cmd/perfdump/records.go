// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"log/slog"

	"github.com/go-perf/perfdata/perffile"
	"github.com/go-perf/perfdata/perffile/dumpconfig"
	"github.com/spf13/cobra"
)

var flagOrder string

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Dump the profile's records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		order := dcfg.Order
		if flagOrder != "" {
			order = dumpconfig.Order(flagOrder)
			if err := (&dumpconfig.Config{Order: order, JitdumpBufferSize: 4096}).Validate(); err != nil {
				return fmt.Errorf("unknown order %q; must be one of: file, time, causal", flagOrder)
			}
		}

		logger.Info("opening profile", slog.String("path", flagInput))
		f, err := perffile.Open(flagInput)
		if err != nil {
			return err
		}
		defer f.Close()

		rs := f.Records(order.Perffile())
		for rs.Next() {
			fmt.Printf("%v %+v\n", rs.Record.Type(), rs.Record)
		}
		return rs.Err()
	},
}

func init() {
	recordsCmd.Flags().StringVar(&flagOrder, "order", "", "sort `order`; one of: file, time, causal (overrides config)")
	rootCmd.AddCommand(recordsCmd)
}
