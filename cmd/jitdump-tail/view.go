// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	title := titleStyle.Render(fmt.Sprintf("jitdump-tail — %s — %.1f rec/s — %d total",
		m.path, m.rate, m.total))

	m.spark.Draw()
	graph := sparkStyle.Render(m.spark.View())

	var events strings.Builder
	if len(m.recent) == 0 {
		events.WriteString(helpStyle.Render("waiting for records..."))
	}
	for _, line := range m.recent {
		events.WriteString(line)
		events.WriteByte('\n')
	}

	sections := []string{title, graph, events.String()}
	if m.err != nil {
		sections = append(sections, errStyle.Render(m.err.Error()))
	}
	sections = append(sections, helpStyle.Render("q to quit"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
