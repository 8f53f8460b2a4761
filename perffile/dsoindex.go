// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package perffile

import (
	"github.com/cespare/xxhash/v2"
)

// DsoIndex accelerates DsoKey lookups against a file's build ID list
// and simpleperf FILE2 symbol table, either of which can hold
// thousands of entries in a long trace -- an O(n) scan per Mmap
// record would dominate processing time for such traces. DsoIndex
// hashes each entry's canonicalized DsoKey once, up front, and then
// resolves a lookup with a single map access instead of a scan.
//
// Grounded on arloliu-mebo's use of xxhash to key its internal
// time-series blob index: the same shape of problem, hashing a
// variable-length byte key (there, a series name; here, a DSO's
// canonical path) down to an array/map slot.
type DsoIndex struct {
	buildIDs    []BuildIDInfo
	buildIDKeys map[uint64][]int // dsoKeyHash(key) -> indices into buildIDs

	simpleperfFiles []SimpleperfFile
	simpleperfKeys  map[uint64][]int // dsoKeyHash(key) -> indices into simpleperfFiles
}

// NewDsoIndex builds a DsoIndex over a file's build ID list and
// simpleperf symbol-file table. Either slice may be nil.
func NewDsoIndex(buildIDs []BuildIDInfo, simpleperfFiles []SimpleperfFile) *DsoIndex {
	idx := &DsoIndex{
		buildIDs:        buildIDs,
		buildIDKeys:     make(map[uint64][]int, len(buildIDs)),
		simpleperfFiles: simpleperfFiles,
		simpleperfKeys:  make(map[uint64][]int, len(simpleperfFiles)),
	}
	for i, b := range buildIDs {
		key, ok := DetectDsoKey([]byte(b.Filename), b.CPUMode)
		if !ok {
			continue
		}
		h := dsoKeyHash(key)
		idx.buildIDKeys[h] = append(idx.buildIDKeys[h], i)
	}
	for i, f := range simpleperfFiles {
		key, ok := DetectDsoKey([]byte(f.Path), simpleperfFileCPUMode(f))
		if !ok {
			continue
		}
		h := dsoKeyHash(key)
		idx.simpleperfKeys[h] = append(idx.simpleperfKeys[h], i)
	}
	return idx
}

// simpleperfFileCPUMode infers the CPUMode DetectDsoKey needs to
// canonicalize a SimpleperfFile's Path the same way it would an Mmap
// record's path for the equivalent DSO: simpleperf's FILE2 table
// tags each entry with a DSO Type rather than a CPUMode, so this maps
// the two kernel-ish types onto CPUModeKernel and everything else
// (ELF, dex, symbol-map, unknown) onto CPUModeUser.
func simpleperfFileCPUMode(f SimpleperfFile) CPUMode {
	switch f.Type {
	case SimpleperfDSOKernel, SimpleperfDSOKernelModule:
		return CPUModeKernel
	default:
		return CPUModeUser
	}
}

// dsoKeyHash hashes a DsoKey's canonicalized identity (its Kind plus
// whichever fields that Kind uses) with xxhash. Two DsoKeys of the
// same Kind hash the same when their ModuleName (kernel modules) or
// FullPath (user DSOs) match; two user DSOs with the same Name() but
// different full paths hash differently.
func dsoKeyHash(key DsoKey) uint64 {
	h := xxhash.New()
	h.Write([]byte{byte(key.Kind)})
	switch key.Kind {
	case DsoKeyKernelModule:
		h.WriteString(key.ModuleName)
	case DsoKeyUser:
		h.Write(key.FullPath)
	}
	return h.Sum64()
}

// dsoKeyEqual reports whether two DsoKeys identify the same DSO. It
// resolves the rare xxhash collision between buckets that dsoKeyHash
// placed together.
func dsoKeyEqual(a, b DsoKey) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case DsoKeyKernelModule:
		return a.ModuleName == b.ModuleName
	case DsoKeyUser:
		return a.FileName == b.FileName && string(a.FullPath) == string(b.FullPath)
	default:
		return true
	}
}

// LookupBuildID returns the build ID list entry matching key, if any.
func (idx *DsoIndex) LookupBuildID(key DsoKey) (BuildIDInfo, bool) {
	for _, i := range idx.buildIDKeys[dsoKeyHash(key)] {
		b := idx.buildIDs[i]
		if candidate, ok := DetectDsoKey([]byte(b.Filename), b.CPUMode); ok && dsoKeyEqual(candidate, key) {
			return b, true
		}
	}
	return BuildIDInfo{}, false
}

// LookupSimpleperfFile returns the simpleperf FILE2 table entry
// matching key, if any.
func (idx *DsoIndex) LookupSimpleperfFile(key DsoKey) (*SimpleperfFile, bool) {
	for _, i := range idx.simpleperfKeys[dsoKeyHash(key)] {
		f := &idx.simpleperfFiles[i]
		if candidate, ok := DetectDsoKey([]byte(f.Path), simpleperfFileCPUMode(*f)); ok && dsoKeyEqual(candidate, key) {
			return f, true
		}
	}
	return nil, false
}
