// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package perffile

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// This replicates the round-buffered sorter scenario from the perf
// FINISHED_ROUND documentation: two per-CPU streams, each individually
// time-ordered, interleaved with a round boundary after which any
// event below the previous round's max can safely be emitted.
//
//	============ PASS n =================
//	   CPU 0         |   CPU 1
//	                 |
//	cnt1 timestamps  |   cnt2 timestamps
//	      1          |         2
//	      2          |         3
//	      -          |         4  <--- max recorded
//
//	============ PASS n + 1 ==============
//	   CPU 0         |   CPU 1
//	                 |
//	cnt1 timestamps  |   cnt2 timestamps
//	      3          |         5
//	      4          |         6
//	      5          |         7 <---- max recorded
//
//	  Flush every event below timestamp 4
//
//	============ PASS n + 2 ==============
//	   CPU 0         |   CPU 1
//	                 |
//	cnt1 timestamps  |   cnt2 timestamps
//	      6          |         8
//	      7          |         9
//	      -          |         10
//
//	  Flush every event below timestamp 7
//	  etc...
func TestSorterRounds(t *testing.T) {
	s := newSorter[int, string](0, func(a, b int) bool { return a < b })

	s.insertUnordered(1, "1") // cpu 0
	s.insertUnordered(2, "2") // cpu 1
	s.insertUnordered(3, "3") // cpu 1
	s.insertUnordered(2, "2") // cpu 0
	s.insertUnordered(4, "4") // cpu 1
	requireNone(t, s)
	s.finishRound()
	requireNone(t, s)

	s.insertUnordered(3, "3") // cpu 0
	s.insertUnordered(5, "5") // cpu 1
	s.insertUnordered(6, "6") // cpu 1
	s.insertUnordered(7, "7") // cpu 1
	s.insertUnordered(4, "4") // cpu 0
	s.insertUnordered(5, "5") // cpu 0
	requireNone(t, s)
	s.finishRound()
	requireNext(t, s, "1", "2", "2", "3", "3", "4", "4")
	requireNone(t, s)

	s.insertUnordered(6, "6") // cpu 0
	s.insertUnordered(8, "8") // cpu 1
	s.insertUnordered(9, "9") // cpu 1
	s.insertUnordered(7, "7") // cpu 0
	s.insertUnordered(10, "10")
	requireNone(t, s)
	s.finishRound()
	requireNext(t, s, "5", "5", "6", "6", "7", "7")
	requireNone(t, s)

	s.finish()
	requireNext(t, s, "8", "9", "10")
	requireNone(t, s)
}

func requireNone(t *testing.T, s *sorter[int, string]) {
	t.Helper()
	_, ok := s.getNext()
	require.False(t, ok)
}

func requireNext(t *testing.T, s *sorter[int, string], want ...string) {
	t.Helper()
	for _, w := range want {
		v, ok := s.getNext()
		require.True(t, ok)
		require.Equal(t, w, v)
	}
}
