// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package logging constructs the structured logger used by the CLI
// tools (cmd/perfdump, cmd/jitdump-tail). The parser packages
// (perffile, jitdump) never log: they report everything through
// returned errors.
package logging

import (
	"log/slog"
	"os"
)

// New constructs a *slog.Logger that writes JSON-structured log
// records to stderr at the requested minimum level. level is one of
// "debug", "info", "warn", "error"; any other value (including "")
// behaves as "info".
func New(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
