// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package perffile

import (
	"bytes"
	"io"
)

// PipeRecordIter iterates over the records of a perf.data stream
// recorded in pipe mode ("perf record -o -"), where file-level
// metadata -- event attributes and feature sections -- arrives as
// synthesized user records embedded in the stream itself instead of
// the fixed file sections a seekable perf.data has, because a pipe
// can't be seeked back into once the session ends.
//
// Grounded on original_source/src/header.rs's PerfPipeHeader handling
// and tools/perf/util/header.c's pipe-mode session-open path,
// generalizing the teacher's file-mode New/Records (which assume a
// seekable io.ReaderAt) to a plain io.Reader.
type PipeRecordIter struct {
	f  *File
	rs *Records

	// sawAttr is false until the first real HEADER_ATTR record
	// replaces the placeholder attribute NewPipe seeds f.attrs with.
	sawAttr bool
}

// NewPipe reads the minimal pipe-mode header from r and returns a
// *File -- whose Meta and Events fill in as synthesized records are
// consumed from the stream -- together with an iterator over its
// records.
//
// Unlike NewFile, the returned File's metadata is not complete until
// the iterator has been driven past the HEADER_ATTR/HEADER_FEATURE
// records that normally precede the profiled events in a
// well-formed pipe-mode stream.
func NewPipe(r io.Reader) (*File, *PipeRecordIter, error) {
	order, err := readPipeHeader(r)
	if err != nil {
		return nil, nil, err
	}
	f := &File{order: order, Events: make([]*EventAttr, 0)}
	// Seed a trivial one-attribute resolver so records that precede
	// the first real HEADER_ATTR (there shouldn't be any, but the
	// decoder must not nil-dereference) still resolve to something.
	f.attrs = []fileAttr{{}}
	f.resolver, _ = newAttrResolver(f.attrs, nil)

	rs := &Records{f: f, sr: r}
	return f, &PipeRecordIter{f: f, rs: rs}, nil
}

// Next returns the next record, or io.EOF once the stream is
// exhausted. HEADER_ATTR records update it's File's Events/attrs as
// they're seen (and returned to the caller as UserRecords, like any
// other metadata record); HEADER_FEATURE records update File.Meta the
// same way the fixed feature sections do in file mode.
// PERF_RECORD_FINISHED_ROUND, like in file mode, is internal-only and
// consumed here rather than ever being handed to the caller.
func (it *PipeRecordIter) Next() (PerfFileRecord, error) {
	for {
		if !it.rs.Next() {
			if err := it.rs.Err(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		rec := it.rs.Record
		if rec.Type() == recordTypeFinishedRound {
			continue
		}
		if rec.Type() < recordTypeUserStart {
			return EventRecord{AttrIndex: rec.Common().AttrIndex, Record: rec}, nil
		}

		if unk, ok := rec.(*RecordUnknown); ok {
			switch rec.Type() {
			case recordTypeAttr:
				if err := it.ingestAttr(unk.Data); err != nil {
					return nil, err
				}
			case recordTypeHeaderFeature:
				if err := it.ingestFeature(unk.Data); err != nil {
					return nil, err
				}
			}
		}
		return UserRecord{Record: rec}, nil
	}
}

// ingestAttr decodes a PERF_RECORD_HEADER_ATTR body (a perf_event_attr
// followed by the trailing array of ids that share it) and appends
// the resulting attribute, rebuilding the id resolver so later
// samples resolve against it.
func (it *PipeRecordIter) ingestAttr(body []byte) error {
	order := it.f.order
	var fa fileAttr
	sr := bytes.NewReader(body)
	if err := readEventAttr(sr, order, &fa); err != nil {
		return wrapf(KindTruncated, err, "reading pipe-mode event attr")
	}
	rest := body[len(body)-sr.Len():]
	if len(rest)%8 != 0 {
		return errf(KindMalformed, "pipe-mode attr id array has odd length %d", len(rest))
	}
	ids := make([]attrID, len(rest)/8)
	for i := range ids {
		ids[i] = attrID(order.Uint64(rest[i*8:]))
	}

	idToAttrIndex := map[attrID]int{}
	if !it.sawAttr {
		it.f.attrs = it.f.attrs[:0]
		it.sawAttr = true
	} else {
		// Carry forward ids resolved from earlier HEADER_ATTR
		// records; otherwise rebuilding the resolver below would
		// forget every attribute but this one.
		for k, v := range it.f.resolver.idToAttrIndex {
			idToAttrIndex[k] = v
		}
	}
	it.f.attrs = append(it.f.attrs, fa)
	it.f.Events = append(it.f.Events, &it.f.attrs[len(it.f.attrs)-1].Attr)

	for _, id := range ids {
		idToAttrIndex[id] = len(it.f.attrs) - 1
	}
	applyEventDescs(it.f.attrs, it.f.Meta.EventDescs, idToAttrIndex)
	resolver, err := newAttrResolver(it.f.attrs, idToAttrIndex)
	if err != nil {
		return err
	}
	it.f.resolver = resolver
	return nil
}

// ingestFeature decodes a PERF_RECORD_HEADER_FEATURE body, which
// wraps a feature index followed by the same payload bytes a file-mode
// feature section would contain.
func (it *PipeRecordIter) ingestFeature(body []byte) error {
	order := it.f.order
	if len(body) < 8 {
		return errf(KindTruncated, "truncated pipe-mode feature record")
	}
	bit := feature(order.Uint64(body[:8]))
	payload := body[8:]
	ra := bytesReaderAt(payload)
	sec := fileSection{Offset: 0, Size: uint64(len(payload))}
	if err := it.f.Meta.parse(bit, sec, ra, order); err != nil {
		return err
	}
	if bit != featureEventDesc || len(it.f.Meta.EventDescs) == 0 {
		return nil
	}
	// An EVENT_DESC record can arrive before or after the HEADER_ATTR
	// records it names -- pipe mode has no fixed section order to rely
	// on -- so re-apply it against whatever attrs have been seen so
	// far every time one is ingested.
	idToAttrIndex := map[attrID]int{}
	for k, v := range it.f.resolver.idToAttrIndex {
		idToAttrIndex[k] = v
	}
	applyEventDescs(it.f.attrs, it.f.Meta.EventDescs, idToAttrIndex)
	resolver, err := newAttrResolver(it.f.attrs, idToAttrIndex)
	if err != nil {
		return err
	}
	it.f.resolver = resolver
	return nil
}

// bytesReaderAt adapts a []byte to io.ReaderAt for feature parsers
// that expect to read from an absolute offset, as file mode's fixed
// sections do.
type bytesReaderAt []byte

func (b bytesReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(b)) {
		return 0, errf(KindTruncated, "feature read past end of record")
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.ErrUnexpectedEOF
	}
	return n, nil
}
