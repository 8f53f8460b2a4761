// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"strings"
	"testing"

	"github.com/go-perf/perfdata/jitdump"
	"github.com/stretchr/testify/require"
)

func TestDescribeRecord(t *testing.T) {
	line, ok := describeRecord(jitdump.CodeLoadRecord{
		Pid: 1, Tid: 2, CodeAddr: 0x1000, FunctionName: "foo",
	})
	require.True(t, ok)
	require.True(t, strings.Contains(line, "foo"))

	line, ok = describeRecord(jitdump.CodeMoveRecord{
		Pid: 1, Tid: 2, OldCodeAddr: 0x1000, NewCodeAddr: 0x2000,
	})
	require.True(t, ok)
	require.True(t, strings.Contains(line, "MOVE"))

	line, ok = describeRecord(jitdump.CodeCloseRecord{})
	require.True(t, ok)
	require.True(t, strings.Contains(line, "CLOSE"))

	_, ok = describeRecord(jitdump.UnknownRecord{})
	require.False(t, ok)
}

func TestPushRecentCapsScrollback(t *testing.T) {
	m := &Model{}
	for i := 0; i < maxRecentEvents+5; i++ {
		m.pushRecent("line")
	}
	require.Len(t, m.recent, maxRecentEvents)
}
