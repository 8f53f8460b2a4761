// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package perffile

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDsoIndexLookupBuildID(t *testing.T) {
	buildIDs := []BuildIDInfo{
		{CPUMode: CPUModeUser, Filename: "/usr/bin/myapp", BuildID: BuildID{1, 2, 3}},
		{CPUMode: CPUModeUser, Filename: "/lib/libc.so.6", BuildID: BuildID{4, 5, 6}},
		{CPUMode: CPUModeKernel, Filename: "[kernel.kallsyms]", BuildID: BuildID{7, 8, 9}},
	}
	idx := NewDsoIndex(buildIDs, nil)

	key, ok := DetectDsoKey([]byte("/usr/bin/myapp"), CPUModeUser)
	require.True(t, ok)
	b, ok := idx.LookupBuildID(key)
	require.True(t, ok)
	require.Equal(t, BuildID{1, 2, 3}, b.BuildID)

	key, ok = DetectDsoKey([]byte("[kernel.kallsyms]_text"), CPUModeKernel)
	require.True(t, ok)
	b, ok = idx.LookupBuildID(key)
	require.True(t, ok)
	require.Equal(t, BuildID{7, 8, 9}, b.BuildID)

	key, ok = DetectDsoKey([]byte("/no/such/path"), CPUModeUser)
	require.True(t, ok)
	_, ok = idx.LookupBuildID(key)
	require.False(t, ok)
}

func TestDsoIndexLookupSimpleperfFile(t *testing.T) {
	files := []SimpleperfFile{
		{Path: "/system/lib64/libart.so", Type: SimpleperfDSOElfFile},
		{Path: "[kernel.kallsyms]", Type: SimpleperfDSOKernel},
	}
	idx := NewDsoIndex(nil, files)

	key, ok := DetectDsoKey([]byte("/system/lib64/libart.so"), CPUModeUser)
	require.True(t, ok)
	f, ok := idx.LookupSimpleperfFile(key)
	require.True(t, ok)
	require.Equal(t, "/system/lib64/libart.so", f.Path)

	key, ok = DetectDsoKey([]byte("[kernel.kallsyms]_stext"), CPUModeKernel)
	require.True(t, ok)
	f, ok = idx.LookupSimpleperfFile(key)
	require.True(t, ok)
	require.Equal(t, SimpleperfDSOKernel, int(f.Type))
}
