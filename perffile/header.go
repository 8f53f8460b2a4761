// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package perffile

import (
	"encoding/binary"
	"io"
)

// parseMagic returns the byte order implied by a perf.data magic
// value and whether the magic identifies file mode (as opposed to
// pipe mode). Little-endian file-mode files begin "PERFILE2", and
// their big-endian counterparts are exactly byte-reversed,
// "2ELIFREP" -- so the first byte alone (magic[0] == 'P') tells the
// two apart, the same test original_source/src/header.rs uses.
//
// Pipe-mode files and streams use the same magic values, but their
// header is only 16 bytes (magic plus size) instead of the full file
// header; callers distinguish file mode from pipe mode by
// context (NewFile vs NewPipe), not by the magic value itself.
func parseMagic(magic [8]byte) (order binary.ByteOrder, version1 bool, ok bool) {
	switch string(magic[:]) {
	case "PERFILE2":
		return binary.LittleEndian, false, true
	case "2ELIFREP":
		return binary.BigEndian, false, true
	case "PERFFILE":
		return binary.LittleEndian, true, true
	case "ELFIFREP": // hypothetical big-endian v1; perf itself never wrote this
		return binary.BigEndian, true, true
	default:
		return nil, false, false
	}
}

// readHeader reads and validates the fixed-size file-mode header
// (fileHeader) starting at the beginning of r, determining byte order
// from the magic.
func readHeader(r io.ReaderAt) (fileHeader, binary.ByteOrder, error) {
	var hdr fileHeader
	sr := io.NewSectionReader(r, 0, 1024)

	var magic [8]byte
	if _, err := io.ReadFull(sr, magic[:]); err != nil {
		return hdr, nil, wrapf(KindTruncated, err, "reading file magic")
	}
	order, v1, ok := parseMagic(magic)
	if !ok {
		return hdr, nil, errf(KindBadMagic, "bad or unsupported file magic %q", string(magic[:]))
	}
	if v1 {
		return hdr, nil, errf(KindUnsupportedVersion, "version 1 profiles are not supported")
	}
	hdr.Magic = magic

	if err := binary.Read(sr, order, &hdr.Size); err != nil {
		return hdr, nil, wrapf(KindTruncated, err, "reading header size")
	}
	if err := binary.Read(sr, order, &hdr.AttrSize); err != nil {
		return hdr, nil, wrapf(KindTruncated, err, "reading attr size")
	}
	if err := binary.Read(sr, order, &hdr.Attrs); err != nil {
		return hdr, nil, wrapf(KindTruncated, err, "reading attrs section")
	}
	if err := binary.Read(sr, order, &hdr.Data); err != nil {
		return hdr, nil, wrapf(KindTruncated, err, "reading data section")
	}
	var eventTypes fileSection // unused in v2; only read to keep the cursor aligned
	if err := binary.Read(sr, order, &eventTypes); err != nil {
		return hdr, nil, wrapf(KindTruncated, err, "reading event types section")
	}
	if err := binary.Read(sr, order, &hdr.Features); err != nil {
		return hdr, nil, wrapf(KindTruncated, err, "reading feature bitmap")
	}

	if hdr.Data.Size == 0 {
		return hdr, nil, errf(KindTruncated, "truncated data file; was the recorder properly terminated?")
	}
	return hdr, order, nil
}

// perfPipeHeader is the minimal 16-byte header used in pipe mode,
// after which metadata arrives as synthesized HEADER_ATTR/
// HEADER_FEATURE/etc. records embedded in the record stream itself
// instead of fixed file sections.
type perfPipeHeader struct {
	Magic [8]byte
	Size  uint64
}

// readPipeHeader reads the pipe-mode header from r, which need not
// support seeking.
func readPipeHeader(r io.Reader) (binary.ByteOrder, error) {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, wrapf(KindTruncated, err, "reading pipe magic")
	}
	order, v1, ok := parseMagic(magic)
	if !ok {
		return nil, errf(KindBadMagic, "bad or unsupported pipe magic %q", string(magic[:]))
	}
	if v1 {
		return nil, errf(KindUnsupportedVersion, "version 1 profiles are not supported")
	}
	var size uint64
	if err := binary.Read(r, order, &size); err != nil {
		return nil, wrapf(KindTruncated, err, "reading pipe header size")
	}
	const knownSize = 16 // magic + size
	if size > knownSize {
		if _, err := io.CopyN(io.Discard, r, int64(size-knownSize)); err != nil {
			return nil, wrapf(KindTruncated, err, "skipping extended pipe header")
		}
	}
	return order, nil
}
