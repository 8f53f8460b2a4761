// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package perffile

import (
	"bytes"
)

// DsoKeyKind distinguishes the cases of DsoKey.
type DsoKeyKind int

const (
	DsoKeyKernel DsoKeyKind = iota
	DsoKeyGuestKernel
	DsoKeyVdso32
	DsoKeyVdsoX32
	DsoKeyVdso64
	DsoKeyVsyscall
	DsoKeyKernelModule
	DsoKeyUser
)

// DsoKey is a canonicalized key that cross-references an Mmap record
// with its entry in a file's build ID list: the two don't always
// agree on path string, e.g. an Mmap path of "[kernel.kallsyms]_text"
// against a build ID entry of "[kernel.kallsyms]" or of
// "/full/path/to/vmlinux".
//
// Grounded on original_source/src/dso_key.rs's DsoKey enum.
type DsoKey struct {
	Kind DsoKeyKind

	// ModuleName holds the kernel module name (without file extension,
	// e.g. "[snd-seq-device]") when Kind is DsoKeyKernelModule.
	ModuleName string

	// FileName and FullPath identify a user-space DSO when Kind is
	// DsoKeyUser. FullPath is kept as raw bytes because on Linux a
	// path is not guaranteed to be valid UTF-8.
	FileName string
	FullPath []byte
}

// DetectDsoKey builds a DsoKey from an mmap path and the CPUMode the
// mapping was recorded under (usually taken from a record's Misc
// field). It reports false for things that aren't real DSOs at all,
// such as "//anon" mappings.
func DetectDsoKey(path []byte, cpuMode CPUMode) (DsoKey, bool) {
	switch {
	case bytes.Equal(path, []byte("//anon")),
		bytes.Equal(path, []byte("[stack]")),
		bytes.Equal(path, []byte("[heap]")),
		bytes.Equal(path, []byte("[vvar]")):
		return DsoKey{}, false
	}

	if bytes.HasPrefix(path, []byte("[kernel.kallsyms]")) {
		if cpuMode == CPUModeGuestKernel {
			return DsoKey{Kind: DsoKeyGuestKernel}, true
		}
		return DsoKey{Kind: DsoKeyKernel}, true
	}
	if bytes.HasPrefix(path, []byte("[guest.kernel.kallsyms")) {
		return DsoKey{Kind: DsoKeyGuestKernel}, true
	}
	switch {
	case bytes.Equal(path, []byte("[vdso32]")):
		return DsoKey{Kind: DsoKeyVdso32}, true
	case bytes.Equal(path, []byte("[vdsox32]")):
		return DsoKey{Kind: DsoKeyVdsoX32}, true
	case bytes.Equal(path, []byte("[vdso]")):
		// This could also be Vdso32 when recording on a 32-bit
		// machine; there's no way to tell from the path alone.
		return DsoKey{Kind: DsoKeyVdso64}, true
	case bytes.Equal(path, []byte("[vsyscall]")):
		return DsoKey{Kind: DsoKeyVsyscall}, true
	}

	if (cpuMode == CPUModeKernel || cpuMode == CPUModeGuestKernel) && bytes.HasPrefix(path, []byte("[")) {
		return DsoKey{Kind: DsoKeyKernelModule, ModuleName: string(path)}, true
	}

	filename := path
	if i := bytes.LastIndexByte(path, '/'); i >= 0 {
		filename = path[i+1:]
	}

	if kmodName, ok := stripSuffix(filename, ".ko"); ok {
		switch cpuMode {
		case CPUModeKernel, CPUModeGuestKernel:
			// "/lib/modules/5.13.0-35-generic/kernel/sound/core/snd-seq-device.ko" -> "[snd-seq-device]"
			return DsoKey{Kind: DsoKeyKernelModule, ModuleName: "[" + kmodName + "]"}, true
		}
	}

	switch cpuMode {
	case CPUModeKernel:
		return DsoKey{Kind: DsoKeyKernel}, true
	case CPUModeGuestKernel:
		return DsoKey{Kind: DsoKeyGuestKernel}, true
	case CPUModeUser, CPUModeGuestUser:
		full := append([]byte(nil), path...)
		return DsoKey{Kind: DsoKeyUser, FileName: string(filename), FullPath: full}, true
	default:
		return DsoKey{}, false
	}
}

func stripSuffix(b []byte, suffix string) (string, bool) {
	if !bytes.HasSuffix(b, []byte(suffix)) {
		return "", false
	}
	return string(b[:len(b)-len(suffix)]), true
}

// Name is the short, human-readable string for the DSO, suitable for
// display in a profiler UI.
func (k DsoKey) Name() string {
	switch k.Kind {
	case DsoKeyKernel:
		return "[kernel.kallsyms]"
	case DsoKeyGuestKernel:
		return "[guest.kernel.kallsyms]"
	case DsoKeyVdso32:
		return "[vdso32]"
	case DsoKeyVdsoX32:
		return "[vdsox32]"
	case DsoKeyVdso64:
		return "[vdso]"
	case DsoKeyVsyscall:
		return "[vsyscall]"
	case DsoKeyKernelModule:
		return k.ModuleName
	case DsoKeyUser:
		return k.FileName
	default:
		return ""
	}
}

// String implements fmt.Stringer for debugging.
func (k DsoKey) String() string {
	if k.Kind == DsoKeyUser {
		return k.FileName + " (" + string(k.FullPath) + ")"
	}
	return k.Name()
}
