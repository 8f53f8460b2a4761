// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-perf/perfdata/internal/logging"
	"github.com/go-perf/perfdata/jitdump"
)

// maxRecentEvents bounds the scrollback of rendered JIT events so the
// program doesn't grow its model unbounded over a long-running trace.
const maxRecentEvents = 12

const sparklineWidth = 40
const sparklineHeight = 6

type tickMsg time.Time

// Model is the bubbletea model driving the live jitdump view. It
// polls a jitdump.Reader on a ticker, which is the only goroutine
// anywhere in this module that calls into jitdump.Reader -- the
// reader itself stays single-threaded.
type Model struct {
	path     string
	file     *os.File
	reader   *jitdump.Reader
	interval time.Duration
	logger   *slog.Logger

	spark sparkline.Model

	recent []string
	rate   float64
	count  int
	total  int

	width, height int
	err           error
}

func newModel(path string, interval time.Duration, logLevel string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w", path, err)
	}
	r, err := jitdump.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading jitdump header from %q: %w", path, err)
	}
	return &Model{
		path:     path,
		file:     f,
		reader:   r,
		interval: interval,
		logger:   logging.New(logLevel),
		spark:    sparkline.New(sparklineWidth, sparklineHeight),
	}, nil
}

func (m *Model) Init() tea.Cmd {
	m.logger.Info("following jitdump file", slog.String("path", m.path))
	return tick(m.interval)
}

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		return m, nil

	case tickMsg:
		m.poll()
		m.spark.Push(float64(m.count))
		m.rate = float64(m.count) / m.interval.Seconds()
		m.count = 0
		return m, tick(m.interval)
	}
	return m, nil
}

// poll drains every record that has fully arrived since the last
// tick. jitdump.Reader.NextRecord returns (nil, nil) once it catches
// up to the writer, which is exactly the "nothing new yet" signal
// this loop treats as a reason to stop, not an error.
func (m *Model) poll() {
	for {
		raw, err := m.reader.NextRecord()
		if err != nil {
			m.err = err
			m.logger.Warn("jitdump read error", slog.Any("error", err))
			return
		}
		if raw == nil {
			return
		}
		m.count++
		m.total++

		rec, err := raw.Parse()
		if err != nil {
			m.logger.Debug("skipping unparseable record", slog.Any("error", err))
			continue
		}
		if line, ok := describeRecord(rec); ok {
			m.pushRecent(line)
		}
	}
}

func (m *Model) pushRecent(line string) {
	m.recent = append(m.recent, line)
	if len(m.recent) > maxRecentEvents {
		m.recent = m.recent[len(m.recent)-maxRecentEvents:]
	}
}

func describeRecord(rec jitdump.Record) (string, bool) {
	switch r := rec.(type) {
	case jitdump.CodeLoadRecord:
		return loadStyle.Render(fmt.Sprintf("LOAD  pid=%d tid=%d addr=%#x size=%d %s",
			r.Pid, r.Tid, r.CodeAddr, len(r.CodeBytes), r.FunctionName)), true
	case jitdump.CodeMoveRecord:
		return moveStyle.Render(fmt.Sprintf("MOVE  pid=%d tid=%d %#x -> %#x",
			r.Pid, r.Tid, r.OldCodeAddr, r.NewCodeAddr)), true
	case jitdump.CodeCloseRecord:
		return closeStyle.Render("CLOSE"), true
	default:
		return "", false
	}
}
