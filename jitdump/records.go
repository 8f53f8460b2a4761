// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jitdump

import (
	"encoding/binary"
	"sort"
)

// Record is a parsed jitdump record body. It is implemented by
// CodeLoadRecord, CodeMoveRecord, CodeDebugInfoRecord,
// CodeCloseRecord, CodeUnwindingInfoRecord, and UnknownRecord for any
// record type a future jitdump version might add.
//
// Grounded on original_source/src/jitdump/record.rs's JitDumpRecord
// enum, expressed as a Go interface instead of a sum type.
type Record interface {
	// Type identifies which concrete record type this is.
	Type() RecordType
}

// RawRecord is a record whose header has been parsed but whose body
// has not; Parse decodes the body according to Type.
type RawRecord struct {
	// Header is the record's header, as read from the stream.
	Header RecordHeader

	// StartOffset is the stream offset of this record's header.
	StartOffset uint64

	// Body is the record's raw, undecoded body bytes.
	Body []byte

	order binary.ByteOrder
}

func (r RawRecord) decoder() bufDecoder {
	return bufDecoder{buf: r.Body, order: r.order}
}

// Parse decodes r's body into a concrete Record according to r's
// type. An unrecognized record type (one beyond what this package
// knows how to parse) decodes to an UnknownRecord rather than an
// error, so a reader can skip forward through record kinds a future
// jitdump version adds without failing the whole stream.
func (r RawRecord) Parse() (Record, error) {
	switch r.Header.Type {
	case RecordTypeCodeLoad:
		return parseCodeLoad(r)
	case RecordTypeCodeMove:
		return parseCodeMove(r)
	case RecordTypeCodeDebugInfo:
		return parseCodeDebugInfo(r)
	case RecordTypeCodeClose:
		return CodeCloseRecord{}, nil
	case RecordTypeCodeUnwindingInfo:
		return parseCodeUnwindingInfo(r)
	default:
		return UnknownRecord{RawType: r.Header.Type, Body: r.Body}, nil
	}
}

// CodeLoadRecord describes a single jitted function: its name,
// address range, and machine code.
type CodeLoadRecord struct {
	Pid, Tid     uint32
	Vma          uint64
	CodeAddr     uint64
	CodeIndex    uint64
	FunctionName string
	CodeBytes    []byte
}

func (CodeLoadRecord) Type() RecordType { return RecordTypeCodeLoad }

func parseCodeLoad(r RawRecord) (Record, error) {
	d := r.decoder()
	if d.len() < 4+4+8+8+8+8 {
		return nil, errf(KindTruncated, "CODE_LOAD record shorter than its fixed fields")
	}
	rec := CodeLoadRecord{
		Pid:      d.u32(),
		Tid:      d.u32(),
		Vma:      d.u64(),
		CodeAddr: d.u64(),
	}
	codeSize := d.u64()
	rec.CodeIndex = d.u64()
	name, err := d.cstring()
	if err != nil {
		return nil, wrapf(KindMalformed, err, "CODE_LOAD function name")
	}
	rec.FunctionName = name
	code, err := d.bytes(int(codeSize))
	if err != nil {
		return nil, wrapf(KindTruncated, err, "CODE_LOAD code bytes")
	}
	rec.CodeBytes = code
	return rec, nil
}

// CodeMoveRecord records that a previously-loaded function's code was
// relocated, identified by the CodeIndex its CodeLoadRecord used.
type CodeMoveRecord struct {
	Pid, Tid                 uint32
	Vma                      uint64
	OldCodeAddr, NewCodeAddr uint64
	CodeSize                 uint64
	CodeIndex                uint64
}

func (CodeMoveRecord) Type() RecordType { return RecordTypeCodeMove }

func parseCodeMove(r RawRecord) (Record, error) {
	d := r.decoder()
	if d.len() < 4+4+8+8+8+8+8 {
		return nil, errf(KindTruncated, "CODE_MOVE record shorter than its fixed fields")
	}
	return CodeMoveRecord{
		Pid:         d.u32(),
		Tid:         d.u32(),
		Vma:         d.u64(),
		OldCodeAddr: d.u64(),
		NewCodeAddr: d.u64(),
		CodeSize:    d.u64(),
		CodeIndex:   d.u64(),
	}, nil
}

// DebugEntry maps one contiguous range of a function's code bytes,
// starting at CodeAddr and running to the next entry's CodeAddr (or
// to the end of the function for the last entry), to a source
// location.
type DebugEntry struct {
	CodeAddr uint64
	Line     uint32
	Column   uint32
	FilePath string
}

// CodeDebugInfoRecord maps a jitted function's address ranges to
// source locations. Entries are sorted by CodeAddr.
type CodeDebugInfoRecord struct {
	CodeAddr uint64
	Entries  []DebugEntry
}

func (CodeDebugInfoRecord) Type() RecordType { return RecordTypeCodeDebugInfo }

func parseCodeDebugInfo(r RawRecord) (Record, error) {
	d := r.decoder()
	if d.len() < 8+8 {
		return nil, errf(KindTruncated, "CODE_DEBUG_INFO record shorter than its fixed fields")
	}
	codeAddr := d.u64()
	nrEntry := d.u64()
	if nrEntry > uint64(d.len()/(8+4+4+1)) {
		return nil, errf(KindMalformed, "CODE_DEBUG_INFO declares %d entries, more than its body could hold", nrEntry)
	}
	entries := make([]DebugEntry, 0, nrEntry)
	for i := uint64(0); i < nrEntry; i++ {
		if d.len() < 8+4+4 {
			return nil, errf(KindTruncated, "CODE_DEBUG_INFO truncated mid-entry")
		}
		e := DebugEntry{
			CodeAddr: d.u64(),
			Line:     d.u32(),
			Column:   d.u32(),
		}
		path, err := d.cstring()
		if err != nil {
			return nil, wrapf(KindMalformed, err, "CODE_DEBUG_INFO file path")
		}
		e.FilePath = path
		entries = append(entries, e)
	}
	return CodeDebugInfoRecord{CodeAddr: codeAddr, Entries: entries}, nil
}

// Lookup returns the entry covering addr: the entry with the greatest
// CodeAddr <= addr. It returns false if addr falls before the first
// entry's CodeAddr (including when there are no entries at all).
func (r CodeDebugInfoRecord) Lookup(addr uint64) (DebugEntry, bool) {
	i := sort.Search(len(r.Entries), func(i int) bool {
		return r.Entries[i].CodeAddr > addr
	})
	if i == 0 {
		return DebugEntry{}, false
	}
	return r.Entries[i-1], true
}

// CodeCloseRecord marks the end of the jitted code's lifetime; it
// carries no fields of its own.
type CodeCloseRecord struct{}

func (CodeCloseRecord) Type() RecordType { return RecordTypeCodeClose }

// CodeUnwindingInfoRecord carries DWARF CFI data (an eh_frame section
// and its index) for unwinding through a jitted function's stack
// frame.
type CodeUnwindingInfoRecord struct {
	MappedSize uint64
	EhFrameHdr []byte
	EhFrame    []byte
}

func (CodeUnwindingInfoRecord) Type() RecordType { return RecordTypeCodeUnwindingInfo }

func parseCodeUnwindingInfo(r RawRecord) (Record, error) {
	d := r.decoder()
	if d.len() < 8+8+8 {
		return nil, errf(KindTruncated, "CODE_UNWINDING_INFO record shorter than its fixed fields")
	}
	unwindDataSize := d.u64()
	ehFrameHdrSize := d.u64()
	mappedSize := d.u64()
	unwindData, err := d.bytes(int(unwindDataSize))
	if err != nil {
		return nil, wrapf(KindTruncated, err, "CODE_UNWINDING_INFO unwind data")
	}
	if ehFrameHdrSize > uint64(len(unwindData)) {
		return nil, errf(KindMalformed, "CODE_UNWINDING_INFO eh_frame_hdr size %d exceeds unwind data %d", ehFrameHdrSize, len(unwindData))
	}
	return CodeUnwindingInfoRecord{
		MappedSize: mappedSize,
		EhFrameHdr: unwindData[:ehFrameHdrSize],
		EhFrame:    unwindData[ehFrameHdrSize:],
	}, nil
}

// UnknownRecord is any record type this package doesn't know how to
// parse the body of, preserved as raw bytes.
type UnknownRecord struct {
	RawType RecordType
	Body    []byte
}

func (r UnknownRecord) Type() RecordType { return r.RawType }
