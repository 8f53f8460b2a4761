// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jitdump

import "encoding/binary"

// HeaderSize is the size in bytes of the jitdump file header.
const HeaderSize = 40

// RecordHeaderSize is the size in bytes of the header that precedes
// every jitdump record.
const RecordHeaderSize = 16

// magicBigEndian and magicLittleEndian are the two four-byte magic
// values a jitdump stream can start with. Unlike perf.data's
// endian-invariant magic, jitdump's magic bytes spell "JiTD" when read
// in the file's own endian, so which of the two ASCII encodings is
// present tells you the endian directly -- "JiTD" means the file is
// big-endian, and its little-endian mirror image "DTiJ" means the
// file is little-endian.
var (
	magicBigEndian    = [4]byte{'J', 'i', 'T', 'D'}
	magicLittleEndian = [4]byte{'D', 'T', 'i', 'J'}
)

// Header is the jitdump file header.
type Header struct {
	// Magic is the four raw magic bytes read from the stream: either
	// "JiTD" or "DTiJ".
	Magic [4]byte

	// Version is the jitdump format version. Only version 1 is
	// defined; the reader stores the value as read and does not
	// reject other versions.
	Version uint32

	// TotalSize is the size in bytes of this header, including any
	// trailing padding a future version might add after the fields
	// this package understands.
	TotalSize uint32

	// ElfMachineArch is the ELF e_machine value of the architecture
	// the jitted code targets.
	ElfMachineArch uint32

	// Pid is the process ID of the JIT runtime that wrote this file.
	Pid uint32

	// Timestamp is when the file was created, in nanoseconds, in
	// whatever clock the runtime used (commonly CLOCK_MONOTONIC).
	Timestamp uint64

	// Flags is a bitmask of file-level flags. No flags are currently
	// defined.
	Flags uint64
}

// parseHeader parses a jitdump file header from data and returns the
// header together with the byte order the rest of the stream is
// encoded in.
//
// Grounded on original_source/src/jitdump/header.rs's
// JitDumpHeader::parse.
func parseHeader(data []byte) (Header, binary.ByteOrder, error) {
	var h Header
	if len(data) < 8 {
		return h, nil, errf(KindTruncated, "jitdump header shorter than magic+version+size")
	}
	copy(h.Magic[:], data[:4])

	var order binary.ByteOrder
	switch h.Magic {
	case magicBigEndian:
		order = binary.BigEndian
	case magicLittleEndian:
		order = binary.LittleEndian
	default:
		return h, nil, errf(KindBadMagic, "unrecognized jitdump magic %q", h.Magic)
	}

	h.Version = order.Uint32(data[4:8])
	if len(data) < HeaderSize {
		return h, nil, errf(KindTruncated, "jitdump header truncated before its declared fields")
	}
	h.TotalSize = order.Uint32(data[8:12])
	h.ElfMachineArch = order.Uint32(data[12:16])
	// data[16:20] is a reserved pad word.
	h.Pid = order.Uint32(data[20:24])
	h.Timestamp = order.Uint64(data[24:32])
	h.Flags = order.Uint64(data[32:40])

	if h.TotalSize < HeaderSize {
		return h, nil, errf(KindMalformed, "jitdump header declares total_size %d smaller than the minimum %d", h.TotalSize, HeaderSize)
	}
	return h, order, nil
}

// RecordHeader is the fixed-size header that precedes every jitdump
// record.
type RecordHeader struct {
	// Type identifies the record's body layout.
	Type RecordType

	// TotalSize is the size in bytes of the record, including this
	// header.
	TotalSize uint32

	// Timestamp is when the record was created, in the same clock as
	// the file header's Timestamp.
	Timestamp uint64
}

// RecordType identifies a jitdump record's body layout.
type RecordType uint32

const (
	RecordTypeCodeLoad          RecordType = 0
	RecordTypeCodeMove          RecordType = 1
	RecordTypeCodeDebugInfo     RecordType = 2
	RecordTypeCodeClose         RecordType = 3
	RecordTypeCodeUnwindingInfo RecordType = 4
)

func (t RecordType) String() string {
	switch t {
	case RecordTypeCodeLoad:
		return "CODE_LOAD"
	case RecordTypeCodeMove:
		return "CODE_MOVE"
	case RecordTypeCodeDebugInfo:
		return "CODE_DEBUG_INFO"
	case RecordTypeCodeClose:
		return "CODE_CLOSE"
	case RecordTypeCodeUnwindingInfo:
		return "CODE_UNWINDING_INFO"
	default:
		return "UNKNOWN"
	}
}

func parseRecordHeader(order binary.ByteOrder, data []byte) RecordHeader {
	return RecordHeader{
		Type:      RecordType(order.Uint32(data[0:4])),
		TotalSize: order.Uint32(data[4:8]),
		Timestamp: order.Uint64(data[8:16]),
	}
}
