// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	sparkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("36")).
			MarginTop(1)

	loadStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	moveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))

	closeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	errStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")).
			MarginTop(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)
)
