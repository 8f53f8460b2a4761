// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jitdump

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeDebugInfoLookup(t *testing.T) {
	rec := CodeDebugInfoRecord{
		Entries: []DebugEntry{
			{CodeAddr: 0x1000, Line: 1, FilePath: "a.go"},
			{CodeAddr: 0x1010, Line: 2, FilePath: "a.go"},
			{CodeAddr: 0x1030, Line: 3, FilePath: "b.go"},
		},
	}

	// Below the first entry: no coverage.
	_, ok := rec.Lookup(0x0fff)
	require.False(t, ok)

	// Exactly on an entry's address.
	e, ok := rec.Lookup(0x1000)
	require.True(t, ok)
	require.Equal(t, uint32(1), e.Line)

	// Between two entries: the earlier one covers it.
	e, ok = rec.Lookup(0x1020)
	require.True(t, ok)
	require.Equal(t, uint32(2), e.Line)

	// Past the last entry: the last one covers it (to the end of the
	// function).
	e, ok = rec.Lookup(0xffff)
	require.True(t, ok)
	require.Equal(t, uint32(3), e.Line)

	// No entries at all.
	empty := CodeDebugInfoRecord{}
	_, ok = empty.Lookup(0x1000)
	require.False(t, ok)
}
