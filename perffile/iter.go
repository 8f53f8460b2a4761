// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package perffile

import "io"

// PerfFileRecord is the sum type produced by a FileRecordIter or
// PipeRecordIter: every record is either an EventRecord, sampled by
// one of the profile's EventAttrs, or a UserRecord carrying container
// or session metadata (attribute definitions, feature sections,
// build IDs, and the like).
//
// Grounded on original_source/src/record.rs's PerfFileRecord enum.
type PerfFileRecord interface {
	isPerfFileRecord()
}

// EventRecord is a record produced by a profiled event.
type EventRecord struct {
	AttrIndex int
	Record    Record
}

func (EventRecord) isPerfFileRecord() {}

// UserRecord is a container-level record: an attribute definition, a
// feature section, a build ID, or similar metadata that describes the
// profile rather than something it observed.
type UserRecord struct {
	Record Record
}

func (UserRecord) isPerfFileRecord() {}

// FileRecordIter iterates over the records of a file-mode perf.data
// file, wrapping the File's lower-level Records iterator (which
// already parses each record's fields) into the PerfFileRecord sum
// type the rest of the package's external API is expressed in.
type FileRecordIter struct {
	rs *Records
}

// Iter returns a FileRecordIter over f's records in the given order.
func (f *File) Iter(order RecordsOrder) *FileRecordIter {
	return &FileRecordIter{rs: f.Records(order)}
}

// Next returns the next record, or io.EOF once the stream is
// exhausted. PERF_RECORD_FINISHED_ROUND is internal bookkeeping for
// the causal/time sorting pass (reader.go's sortRecordOffsets) and is
// consumed here rather than ever being handed to the caller.
func (it *FileRecordIter) Next() (PerfFileRecord, error) {
	for {
		if !it.rs.Next() {
			if err := it.rs.Err(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		if it.rs.Record.Type() == recordTypeFinishedRound {
			continue
		}
		if it.rs.Record.Type() >= recordTypeUserStart {
			return UserRecord{Record: it.rs.Record}, nil
		}
		return EventRecord{AttrIndex: it.rs.Record.Common().AttrIndex, Record: it.rs.Record}, nil
	}
}

// NewFile reads a perf.data file from r and returns both the parsed
// File (its metadata, already fully read) and an iterator over its
// records in file order.
//
// The caller must keep r open as long as it is using either return
// value.
func NewFile(r io.ReaderAt) (*File, *FileRecordIter, error) {
	f, err := New(r)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Iter(RecordsFileOrder), nil
}
