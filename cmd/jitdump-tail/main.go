// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command jitdump-tail follows a jitdump file as a JIT process writes
// to it, rendering the most recent CODE_LOAD/CODE_MOVE/CODE_CLOSE
// events and a live sparkline of the records read at each poll tick.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	interval := flag.Duration("interval", 500*time.Millisecond, "poll `interval`")
	logLevel := flag.String("log-level", "info", "log `level`: debug, info, warn, error")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: jitdump-tail [flags] <jitdump-file>")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	m, err := newModel(flag.Arg(0), *interval, *logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "jitdump-tail:", err)
		os.Exit(1)
	}
	defer m.file.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "jitdump-tail:", err)
		os.Exit(1)
	}
}
