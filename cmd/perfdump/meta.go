// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/go-perf/perfdata/perffile"
	"github.com/spf13/cobra"
)

var metaCmd = &cobra.Command{
	Use:   "meta",
	Short: "Print the profile's feature-section metadata",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Info("opening profile", slog.String("path", flagInput))
		f, err := perffile.Open(flagInput)
		if err != nil {
			return err
		}
		defer f.Close()

		if f.Meta.BuildIDs != nil {
			fmt.Printf("build IDs:\n")
			for _, bid := range f.Meta.BuildIDs {
				fmt.Printf("  %v\n", bid)
			}
		}

		for _, hdr := range []struct {
			label string
			val   interface{}
		}{
			{"hostname", f.Meta.Hostname},
			{"OS release", f.Meta.OSRelease},
			{"version", f.Meta.Version},
			{"arch", f.Meta.Arch},
			{"CPUs online", f.Meta.CPUsOnline},
			{"CPUs available", f.Meta.CPUsAvail},
			{"CPU desc", f.Meta.CPUDesc},
			{"CPUID", f.Meta.CPUID},
			{"total memory", f.Meta.TotalMem},
			{"cmdline", f.Meta.CmdLine},
			{"core groups", f.Meta.CoreGroups},
			{"thread groups", f.Meta.ThreadGroups},
			{"NUMA nodes", f.Meta.NUMANodes},
			{"PMU mappings", f.Meta.PMUMappings},
			{"groups", f.Meta.Groups},
			{"event descs", f.Meta.EventDescs},
			{"simpleperf files", f.Meta.SimpleperfFiles},
		} {
			v := reflect.ValueOf(hdr.val)
			if v.IsZero() {
				continue
			}
			fmt.Printf("%s: %v\n", hdr.label, hdr.val)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(metaCmd)
}
