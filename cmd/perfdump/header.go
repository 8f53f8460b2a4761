// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"log/slog"

	"github.com/go-perf/perfdata/perffile"
	"github.com/spf13/cobra"
)

var headerCmd = &cobra.Command{
	Use:   "header",
	Short: "Print a one-line summary of the profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Info("opening profile", slog.String("path", flagInput))
		f, err := perffile.Open(flagInput)
		if err != nil {
			return err
		}
		defer f.Close()

		fmt.Printf("version=%s arch=%s events=%d\n", f.Meta.Version, f.Meta.Arch, len(f.Events))
		for _, event := range f.Events {
			fmt.Printf("  %s\n", event.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(headerCmd)
}
