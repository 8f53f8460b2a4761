// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package perffile

import (
	"encoding/binary"
	"io"
	"os"
	"reflect"
)

// A File is a perf.data file. It consists of a sequence of records,
// which can be retrieved with the Records method, as well as several
// optional metadata fields.
type File struct {
	// Meta contains the metadata for this profile, such as
	// information about the hardware.
	Meta FileMeta

	// Events lists all events that may appear in this profile.
	Events []*EventAttr

	r      io.ReaderAt
	closer io.Closer
	hdr    fileHeader
	order  binary.ByteOrder

	attrs    []fileAttr
	resolver *attrResolver
}

// New reads a "perf.data" file from r.
//
// The caller must keep r open as long as it is using the returned
// *File.
func New(r io.ReaderAt) (*File, error) {
	// See perf_session__open in tools/perf/util/session.c.
	hdr, order, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	file := &File{r: r, hdr: hdr, order: order, Events: make([]*EventAttr, 0)}

	// Read EventAttrs. Note that the attr size is represented in
	// both the file header and in each individual attr, but perf
	// doesn't validate the file-level attr size.
	if file.hdr.AttrSize == 0 {
		return nil, errf(KindMalformed, "bad attr size 0")
	}
	nAttrs := int(file.hdr.Attrs.Size / file.hdr.AttrSize)
	if nAttrs == 0 {
		return nil, errf(KindMalformed, "no event types")
	} else if nAttrs > 64*1024 {
		return nil, errf(KindMalformed, "too many attrs or bad attr size")
	}
	file.attrs = make([]fileAttr, nAttrs)
	attrSR := file.hdr.Attrs.sectionReader(r)
	for i := 0; i < nAttrs; i++ {
		if err := readFileAttr(attrSR, order, &file.attrs[i]); err != nil {
			return nil, err
		}
		file.Events = append(file.Events, &file.attrs[i].Attr)
	}

	// Read EventAttr IDs and build the id -> attribute-index map.
	idToAttrIndex := make(map[attrID]int)
	for i, attr := range file.attrs {
		var ids []attrID
		if err := readSlice(attr.IDs.sectionReader(r), order, &ids); err != nil {
			return nil, err
		}
		for _, id := range ids {
			idToAttrIndex[id] = i
		}
	}

	// Load feature sections. EVENT_DESC, if present, refines
	// idToAttrIndex (it can name ids the plain per-attr IDs section
	// didn't enumerate) and supplies each EventAttr's Name, so the
	// resolver is built after this loop rather than before it.
	sr := io.NewSectionReader(r, int64(file.hdr.Data.Offset+file.hdr.Data.Size), int64(numFeatureBits*binary.Size(fileSection{})))
	for bit := feature(0); bit < feature(numFeatureBits); bit++ {
		if !file.hdr.hasFeature(bit) {
			continue
		}
		sec := fileSection{}
		if err := binary.Read(sr, order, &sec); err != nil {
			return nil, err
		}
		if err := file.Meta.parse(bit, sec, file.r, order); err != nil {
			return nil, err
		}
	}

	applyEventDescs(file.attrs, file.Meta.EventDescs, idToAttrIndex)

	resolver, err := newAttrResolver(file.attrs, idToAttrIndex)
	if err != nil {
		return nil, err
	}
	file.resolver = resolver

	return file, nil
}

// applyEventDescs folds the EVENT_DESC feature section's (name, ids)
// entries into attrs' Name fields and idToAttrIndex. An entry's ids
// are matched against the attribute they already identify when the
// per-attr IDs section named them, or against this entry's own
// position when descs and attrs correspond one-to-one and the entry
// carries no ids of its own (as in a single-event file, where
// EVENT_DESC's id list is sometimes omitted as redundant).
func applyEventDescs(attrs []fileAttr, descs []EventDesc, idToAttrIndex map[attrID]int) {
	if len(descs) == 0 {
		return
	}
	positional := len(descs) == len(attrs)
	for i, d := range descs {
		idx := -1
		for _, id := range d.IDs {
			if existing, ok := idToAttrIndex[id]; ok {
				idx = existing
			} else if positional {
				idToAttrIndex[id] = i
				idx = i
			}
		}
		if idx == -1 && positional && len(d.IDs) == 0 {
			idx = i
		}
		if idx >= 0 && idx < len(attrs) {
			attrs[idx].Attr.Name = d.Name
		}
	}
}

// Open opens the named "perf.data" file using os.Open.
//
// The caller must call f.Close() on the returned file when it is
// done.
func Open(name string) (*File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	ff, err := New(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	ff.closer = f
	return ff, nil
}

func readFileAttr(sr *io.SectionReader, order binary.ByteOrder, fa *fileAttr) error {
	// See read_attr in tools/perf/util/header.c.
	if err := readEventAttr(sr, order, fa); err != nil {
		return err
	}
	// Finally, read the IDs fileSection, which follows the eventAttr
	// in the file-mode attrs array (but not in a pipe-mode
	// PERF_RECORD_HEADER_ATTR record, whose trailing IDs are inline
	// u64s instead -- see readEventAttr's other caller in pipe.go).
	return binary.Read(sr, order, &fa.IDs)
}

// readEventAttr reads one perf_event_attr from sr and converts it
// into fa.Attr, handling the struct's self-describing variable size
// (attr.Size) the same way across every caller. It does not read
// anything beyond the attr itself.
func readEventAttr(sr io.Reader, order binary.ByteOrder, fa *fileAttr) error {
	// Read the common prefix of all event attr versions.
	var attr eventAttrVN
	if err := binary.Read(sr, order, &attr.eventAttrV0); err != nil {
		return err
	}
	if attr.Size == 0 {
		// Assume ABI v0
		attr.Size = 64
	} else if attr.Size > uint32(binary.Size(&attr)) {
		return errf(KindUnsupportedVersion, "event attr size %d too large; more recent and unsupported format", attr.Size)
	} else {
		// Read whatever's left. There are specific versions
		// of this structure, but perf doesn't try to
		// distinguish them, so neither do we.
		left := int(attr.Size) - binary.Size(&attr.eventAttrV0)
		rattr := reflect.ValueOf(&attr).Elem()
		for i := 1; i < rattr.NumField() && left > 0; i++ {
			field := rattr.Field(i).Addr().Interface()
			err := binary.Read(sr, order, field)
			if err != nil {
				return err
			}
			left -= binary.Size(field)
		}
	}

	// Convert on-disk perf_event_attr in to EventAttr.
	fa.Attr.Type = attr.Type
	fa.Attr.Config[0] = attr.Config
	if attr.Flags&EventFlagFreq == 0 {
		fa.Attr.SamplePeriod = attr.SamplePeriodOrFreq
	} else {
		fa.Attr.SampleFreq = attr.SamplePeriodOrFreq
	}
	fa.Attr.SampleFormat = attr.SampleFormat
	fa.Attr.ReadFormat = attr.ReadFormat
	fa.Attr.Flags = attr.Flags &^ eventFlagPreciseMask
	fa.Attr.Precise = EventPrecision((attr.Flags & eventFlagPreciseMask) >> eventFlagPreciseShift)
	if attr.Flags&EventFlagWakeupWatermark == 0 {
		fa.Attr.WakeupEvents = attr.WakeupEventsOrWatermark
	} else {
		fa.Attr.WakeupWatermark = attr.WakeupEventsOrWatermark
	}
	fa.Attr.BPType = attr.BPType
	if attr.Type == EventTypeBreakpoint {
		fa.Attr.BPAddr = attr.BPAddrOrConfig1
		fa.Attr.BPLen = attr.BPLenOrConfig2
	} else {
		fa.Attr.Config[1] = attr.BPAddrOrConfig1
		fa.Attr.Config[2] = attr.BPLenOrConfig2
	}
	fa.Attr.SampleRegsUser = attr.SampleRegsUser
	fa.Attr.SampleStackUser = attr.SampleStackUser
	fa.Attr.AuxWatermark = attr.AuxWatermark
	return nil
}

// Close closes the File.
//
// If the File was created using New directly instead of Open, Close
// has no effect.
func (f *File) Close() error {
	var err error
	if f.closer != nil {
		err = f.closer.Close()
		f.closer = nil
	}
	return err
}

// readSlice reads an entire section into a slice.  v must be a
// pointer to a slice; the slice itself may be nil.  The section size
// must be an exact multiple of the size of the element type of v.
func readSlice(sr *io.SectionReader, order binary.ByteOrder, v interface{}) error {
	// Figure out slice value size
	vt := reflect.TypeOf(v)
	if vt.Kind() != reflect.Ptr || vt.Elem().Kind() != reflect.Slice {
		panic("v must be a pointer to a slice")
	}
	et := vt.Elem().Elem()
	esize := binary.Size(reflect.Zero(et).Interface())
	nelem := int(sr.Size() / int64(esize))
	if sr.Size()%int64(esize) != 0 {
		return errf(KindMalformed, "section size %d is not a multiple of element size %d", sr.Size(), esize)
	}

	// Create slice
	reflect.ValueOf(v).Elem().Set(reflect.MakeSlice(vt.Elem(), nelem, nelem))

	// Read in to slice
	return binary.Read(sr, order, v)
}

//go:generate stringer -type=RecordsOrder

type RecordsOrder int

const (
	// RecordsFileOrder requests records in file order. This is
	// efficient because it allows streaming the records directly
	// from the file, but the records may not be in time-stamp or
	// even causal order.
	RecordsFileOrder RecordsOrder = iota

	// RecordsCausalOrder requests records in causal order. This
	// is weakly time-ordered: any two records will be in
	// time-stamp order *unless* those records are both
	// RecordSamples. This is potentially more efficient than
	// RecordsTimeOrder, though currently the implementation does
	// not distinguish.
	RecordsCausalOrder

	// RecordsTimeOrder requests records in time-stamp order. This
	// is the most expensive iteration order because it requires
	// buffering and/or re-reading potentially large sections of
	// the input file in order to sort the records.
	RecordsTimeOrder
)

// Records returns an iterator over the records in the profile. The
// order argument specifies the order for iterating through the
// records in this File. Callers should choose the least
// resource-intensive iteration order that satisfies their needs.
func (f *File) Records(order RecordsOrder) *Records {
	if order == RecordsCausalOrder || order == RecordsTimeOrder {
		// Sort the records by making two passes: a first pass
		// over the file in file order feeds (offset, time-stamp)
		// pairs into a round-buffered sorter (sorter.go), flushed
		// at each PERF_RECORD_FINISHED_ROUND boundary exactly as
		// perf's own process_finished_round does in session.c; a
		// second pass then re-reads the file in the resulting
		// offset order. Using the round sorter instead of a single
		// whole-file sort.Stable matters for real traces: it lets
		// records that are already fully ordered (everything below
		// the previous round's max) leave the sorter as soon as a
		// round closes, rather than only resolving valid position
		// after absolutely every record has been seen.
		pos, err := f.sortRecordOffsets()
		if err != nil {
			return &Records{err: err}
		}
		return &Records{f: f, sr: newBufferedSectionReader(f.hdr.Data.sectionReader(f.r)), order: pos}
	}

	return &Records{f: f, sr: newBufferedSectionReader(f.hdr.Data.sectionReader(f.r))}
}

// timeSortKey orders records with a time-stamp before records without
// one, and time-stamped records amongst themselves by time-stamp; its
// zero value is the smallest possible key, matching what newSorter's
// zero parameter expects as the pre-round-1 floor.
type timeSortKey struct {
	noTime bool
	time   uint64
}

func lessTimeSortKey(a, b timeSortKey) bool {
	if a.noTime != b.noTime {
		return !a.noTime
	}
	if a.noTime {
		return false
	}
	return a.time < b.time
}

// sortRecordOffsets makes a single pass over the file in file order,
// feeding each record's (time-stamp, offset) into a round-buffered
// sorter.sorter and returning the resulting offsets in time-stamp
// order.
func (f *File) sortRecordOffsets() ([]int64, error) {
	s := newSorter[timeSortKey, int64](timeSortKey{}, lessTimeSortKey)
	rs := f.Records(RecordsFileOrder)
	for rs.Next() {
		if rs.Record.Type() == recordTypeFinishedRound {
			s.finishRound()
			continue
		}
		c := rs.Record.Common()
		key := timeSortKey{noTime: c.Format&SampleFormatTime == 0, time: c.Time}
		s.insertUnordered(key, c.Offset)
	}
	if rs.Err() != nil {
		return nil, rs.Err()
	}
	s.finish()

	pos := make([]int64, 0, len(s.outgoing))
	for {
		v, ok := s.getNext()
		if !ok {
			break
		}
		pos = append(pos, v)
	}
	return pos, nil
}
