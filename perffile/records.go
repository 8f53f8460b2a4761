// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package perffile

import (
	"encoding/binary"
	"io"
)

// A Records is an iterator over the records in a "perf.data" file.
//
// Typical usage is
//
//	rs := file.Records(RecordsFileOrder)
//	for rs.Next() {
//	  switch r := rs.Record.(type) {
//	    ...
//	  }
//	}
//	if err := rs.Err(); err != nil { ... }
type Records struct {
	f   *File
	sr  io.Reader // *bufferedSectionReader (file mode) or the raw pipe reader
	err error

	// The current record.  Determine which type of record this is
	// using a type switch.
	Record Record

	// Read buffer.  Reused (and resized) by Next.
	buf []byte

	// order, when non-nil, gives the absolute file offsets to visit
	// in turn instead of reading sr sequentially -- used by
	// RecordsCausalOrder/RecordsTimeOrder, which re-read records in
	// time-stamp order after a first pass collected (offset,
	// time-stamp) pairs. orderIdx is the next index into order.
	order    []int64
	orderIdx int

	// pending holds decompressed sub-records awaiting decoding, for
	// PERF_RECORD_COMPRESSED/COMPRESSED2 bodies: each such record's
	// payload is itself a concatenation of ordinary records, which
	// Next expands transparently before resuming from sr.
	pending []byte

	// compressedCarry holds the bytes of a record that straddled the
	// end of one decompressed chunk: the header and/or body were cut
	// short by the chunk boundary. It's prepended to the next
	// COMPRESSED/COMPRESSED2 chunk's decompressed output rather than
	// being dropped or treated as truncation.
	compressedCarry []byte

	// virtualOffset substitutes for a real file offset for records
	// that arrive from inside a decompressed chunk, which has no
	// byte offset of its own in the outer file. It starts at the
	// offset of the COMPRESSED record and counts up, so ordering
	// within one chunk stays deterministic.
	virtualOffset int64

	decomp zstdDecompressor

	// Cache for common record types
	recordMmap   RecordMmap
	recordComm   RecordComm
	recordExit   RecordExit
	recordFork   RecordFork
	recordSample RecordSample
}

// Err returns the first error encountered by Records.
func (r *Records) Err() error {
	return r.err
}

// Next fetches the next record into r.Record.  It returns true if
// successful, and false if it reaches the end of the record stream or
// encounters an error.
//
// The record stored in r.Record may be reused by later invocations of
// Next, so if the caller may need the record after another call to
// Next, it must make its own copy.
func (r *Records) Next() bool {
	// See perf_evsel__parse_sample
	if r.err != nil {
		return false
	}

	for {
		if len(r.pending) > 0 {
			if r.decodeFromPending() {
				return true
			}
			if r.err != nil {
				return false
			}
			// Pending chunk fully drained; resume from the stream.
			continue
		}
		if r.decodeFromStream() {
			return true
		}
		if r.err != nil {
			return false
		}
		if len(r.pending) > 0 {
			// The record just read was PERF_RECORD_COMPRESSED(2);
			// its decompressed body is now in r.pending.
			continue
		}
		return false // clean end of stream
	}
}

// decodeFromPending decodes the record at the front of r.pending --
// the still-undecoded tail of a decompressed PERF_RECORD_COMPRESSED(2)
// chunk, which has no offset of its own in the outer file and so is
// assigned a monotonically increasing virtualOffset instead.
//
// A record that straddles the end of this chunk (its header hasn't
// fully arrived, or its declared size runs past what this chunk
// decompressed to) is not an error: its bytes are saved in
// r.compressedCarry and prepended to the next chunk's decompressed
// output in decodeBody, per spec §4.E's requirement that a
// partial-record carry buffer persist across compressed chunks.
func (r *Records) decodeFromPending() bool {
	order := r.f.order
	if len(r.pending) < 8 {
		r.compressedCarry = r.pending
		r.pending = nil
		return false
	}
	var hdr recordHeader
	hdr.Type = RecordType(order.Uint32(r.pending[0:4]))
	hdr.Misc = recordMisc(order.Uint16(r.pending[4:6]))
	hdr.Size = order.Uint16(r.pending[6:8])
	if hdr.Size < 8 {
		r.err = errf(KindMalformed, "decompressed record declares size %d smaller than the 8-byte record header", hdr.Size)
		return false
	}
	if int(hdr.Size) > len(r.pending) {
		r.compressedCarry = r.pending
		r.pending = nil
		return false
	}
	body := r.pending[8:hdr.Size]
	r.pending = r.pending[hdr.Size:]
	common := RecordCommon{Offset: r.virtualOffset}
	r.virtualOffset++
	return r.decodeBody(&hdr, &common, body)
}

// decodeFromStream reads and decodes the next record, either
// sequentially from r.sr (file or pipe order) or, when r.order is
// set, by seeking directly to the next position in that slice (causal
// and time order, which re-read the file in sorted-by-timestamp
// offset order after a first sequential pass).
func (r *Records) decodeFromStream() bool {
	if r.order != nil {
		return r.decodeAtOrderedPosition()
	}

	var common RecordCommon
	var hdr recordHeader
	order := r.f.order

	if sk, ok := r.sr.(interface {
		Seek(offset int64, whence int) (int64, error)
	}); ok {
		offset, _ := sk.Seek(0, 1)
		common.Offset = offset + int64(r.f.hdr.Data.Offset)
	}

	if err := binary.Read(r.sr, order, &hdr); err != nil {
		if err != io.EOF {
			r.err = err
		}
		return false
	}

	rlen := int(hdr.Size - 8)
	if rlen > len(r.buf) {
		r.buf = make([]byte, rlen)
	}
	body := r.buf[:rlen]
	if _, err := io.ReadFull(r.sr, body); err != nil {
		r.err = err
		return false
	}
	return r.decodeBody(&hdr, &common, body)
}

// decodeAtOrderedPosition reads the record at r.order[r.orderIdx],
// an absolute offset into the underlying file, and advances orderIdx.
func (r *Records) decodeAtOrderedPosition() bool {
	if r.orderIdx >= len(r.order) {
		return false
	}
	pos := r.order[r.orderIdx]
	r.orderIdx++

	end := int64(r.f.hdr.Data.Offset + r.f.hdr.Data.Size)
	sr := io.NewSectionReader(r.f.r, pos, end-pos)

	var hdr recordHeader
	order := r.f.order
	if err := binary.Read(sr, order, &hdr); err != nil {
		r.err = err
		return false
	}
	rlen := int(hdr.Size - 8)
	if rlen > len(r.buf) {
		r.buf = make([]byte, rlen)
	}
	body := r.buf[:rlen]
	if _, err := io.ReadFull(sr, body); err != nil {
		r.err = err
		return false
	}
	common := RecordCommon{Offset: pos}
	return r.decodeBody(&hdr, &common, body)
}

func (r *Records) decodeBody(hdr *recordHeader, common *RecordCommon, body []byte) bool {
	order := r.f.order
	bd := &bufDecoder{body, order}

	switch hdr.Type {
	case recordTypeCompressed, recordTypeCompressed2:
		out, err := r.decomp.decompress(body)
		if err != nil {
			r.err = wrapf(KindZstdDecompress, err, "decompressing record")
			return false
		}
		if len(r.compressedCarry) > 0 {
			out = append(r.compressedCarry, out...)
			r.compressedCarry = nil
		}
		r.pending = out
		r.virtualOffset = common.Offset
		return false // caller's loop retries from r.pending

	case recordTypeFinishedInit:
		r.Record = &RecordUnknown{*hdr, *common, body}
		return true
	}

	// Parse common sample_id fields
	if r.f.resolver.info.sampleIDAll && hdr.Type != RecordTypeSample && hdr.Type < recordTypeUserStart {
		r.parseCommon(bd, common)
	}

	// Parse record
	// TODO: Don't array out-of-bounds on short records
	switch hdr.Type {
	default:
		// As far as I can tell, RecordTypeRead can never
		// appear in a perf.data file.
		r.Record = &RecordUnknown{*hdr, *common, bd.buf}

	case RecordTypeMmap:
		r.Record = r.parseMmap(bd, hdr, common, false)

	case RecordTypeLost:
		r.Record = r.parseLost(bd, hdr, common)

	case RecordTypeComm:
		r.Record = r.parseComm(bd, hdr, common)

	case RecordTypeExit:
		r.Record = r.parseExit(bd, hdr, common)

	case RecordTypeThrottle:
		r.Record = r.parseThrottle(bd, hdr, common, true)

	case RecordTypeUnthrottle:
		r.Record = r.parseThrottle(bd, hdr, common, false)

	case RecordTypeFork:
		r.Record = r.parseFork(bd, hdr, common)

	case RecordTypeSample:
		r.Record = r.parseSample(bd, hdr)

	case recordTypeMmap2:
		r.Record = r.parseMmap(bd, hdr, common, true)
	}
	if r.err != nil {
		return false
	}
	return true
}

func (r *Records) getAttr(id attrID) *EventAttr {
	idx := r.f.resolver.resolve(id, true)
	return &r.f.attrs[idx].Attr
}

// getAttrIndexed is like getAttr but also returns the attribute's
// index into f.attrs, for records whose RecordCommon carries an
// AttrIndex.
func (r *Records) getAttrIndexed(id attrID, hasID bool) (int, *EventAttr) {
	idx := r.f.resolver.resolve(id, hasID)
	return idx, &r.f.attrs[idx].Attr
}

// parseCommon parses the common sample_id structure in the trailer of
// non-sample records.
func (r *Records) parseCommon(bd *bufDecoder, o *RecordCommon) bool {
	// Get EventAttr ID
	hasID := r.f.resolver.info.recordIDOffset != -1
	if !hasID {
		o.ID = 0
	} else {
		o.ID = attrID(bd.order.Uint64(bd.buf[len(bd.buf)+r.f.resolver.info.recordIDOffset:]))
	}
	o.AttrIndex = r.f.resolver.resolve(o.ID, hasID)
	o.EventAttr = &r.f.attrs[o.AttrIndex].Attr

	// Narrow decoder to the trailer
	commonLen := o.EventAttr.SampleFormat.trailerBytes()
	bd = &bufDecoder{bd.buf[len(bd.buf)-commonLen:], bd.order}

	// Decode trailer
	t := o.EventAttr.SampleFormat
	o.Format = t
	o.PID = int(bd.i32If(t&SampleFormatTID != 0))
	o.TID = int(bd.i32If(t&SampleFormatTID != 0))
	o.Time = bd.u64If(t&SampleFormatTime != 0)
	bd.u64If(t&SampleFormatID != 0)
	o.StreamID = bd.u64If(t&SampleFormatStreamID != 0)
	o.CPU = bd.u32If(t&SampleFormatCPU != 0)
	o.Res = bd.u32If(t&SampleFormatCPU != 0)
	return true
}

func (r *Records) parseMmap(bd *bufDecoder, hdr *recordHeader, common *RecordCommon, v2 bool) Record {
	o := &r.recordMmap
	o.RecordCommon = *common
	o.Format |= SampleFormatTID

	// Decode hdr.Misc
	o.Data = (hdr.Misc&recordMiscMmapData != 0)

	// Decode fields
	o.PID, o.TID = int(bd.i32()), int(bd.i32())
	o.Addr, o.Len, o.PgOff = bd.u64(), bd.u64(), bd.u64()
	if v2 {
		o.Major, o.Minor = bd.u32(), bd.u32()
		o.Ino, o.InoGeneration = bd.u64(), bd.u64()
		o.Prot, o.Flags = bd.u32(), bd.u32()
	}
	o.Filename = bd.cstring()

	return o
}

func (r *Records) parseLost(bd *bufDecoder, hdr *recordHeader, common *RecordCommon) Record {
	o := &RecordLost{RecordCommon: *common}
	o.Format |= SampleFormatID

	o.ID = attrID(bd.u64())
	o.AttrIndex, o.EventAttr = r.getAttrIndexed(o.ID, true)
	o.NumLost = bd.u64()

	return o
}

func (r *Records) parseComm(bd *bufDecoder, hdr *recordHeader, common *RecordCommon) Record {
	o := &r.recordComm
	o.RecordCommon = *common
	o.Format |= SampleFormatTID

	// Decode hdr.Misc
	o.Exec = (hdr.Misc&recordMiscCommExec != 0)

	// Decode fields
	o.PID, o.TID = int(bd.i32()), int(bd.i32())
	o.Comm = bd.cstring()

	return o
}

func (r *Records) parseExit(bd *bufDecoder, hdr *recordHeader, common *RecordCommon) Record {
	o := &r.recordExit
	o.RecordCommon = *common
	o.Format |= SampleFormatTID | SampleFormatTime

	o.PID, o.PPID = int(bd.i32()), int(bd.i32())
	o.TID, o.PTID = int(bd.i32()), int(bd.i32())
	o.Time = bd.u64()

	return o
}

func (r *Records) parseThrottle(bd *bufDecoder, hdr *recordHeader, common *RecordCommon, enable bool) Record {
	o := &RecordThrottle{RecordCommon: *common, Enable: enable}
	o.Format |= SampleFormatTime | SampleFormatID | SampleFormatStreamID

	o.Time = bd.u64()
	// Throttle events always have an event attr ID, even if the
	// IDs aren't recorded, and getAttr's fallback-to-attribute-0
	// behavior already covers that case.
	o.AttrIndex, o.EventAttr = r.getAttrIndexed(attrID(bd.u64()), true)
	o.StreamID = bd.u64()

	return o
}

func (r *Records) parseFork(bd *bufDecoder, hdr *recordHeader, common *RecordCommon) Record {
	o := &r.recordFork
	o.RecordCommon = *common
	o.Format |= SampleFormatTID | SampleFormatTime

	o.PID, o.PPID = int(bd.i32()), int(bd.i32())
	o.TID, o.PTID = int(bd.i32()), int(bd.i32())
	o.Time = bd.u64()

	return o
}

func (r *Records) parseSample(bd *bufDecoder, hdr *recordHeader) Record {
	o := &r.recordSample

	// Get sample EventAttr ID
	hasID := r.f.resolver.info.sampleIDOffset != -1
	if !hasID {
		o.ID = 0
	} else {
		o.ID = attrID(bd.order.Uint64(bd.buf[r.f.resolver.info.sampleIDOffset:]))
	}
	o.AttrIndex = r.f.resolver.resolve(o.ID, hasID)
	o.EventAttr = &r.f.attrs[o.AttrIndex].Attr

	// Decode hdr.Misc
	o.CPUMode = CPUMode(hdr.Misc & recordMiscCPUModeMask)
	o.ExactIP = (hdr.Misc&recordMiscExactIP != 0)

	// Decode the rest of the sample
	t := o.EventAttr.SampleFormat
	o.Format = t
	bd.u64If(t&SampleFormatIdentifier != 0)
	o.IP = bd.u64If(t&SampleFormatIP != 0)
	o.PID = int(bd.i32If(t&SampleFormatTID != 0))
	o.TID = int(bd.i32If(t&SampleFormatTID != 0))
	o.Time = bd.u64If(t&SampleFormatTime != 0)
	o.Addr = bd.u64If(t&SampleFormatAddr != 0)
	bd.u64If(t&SampleFormatID != 0)
	o.StreamID = bd.u64If(t&SampleFormatStreamID != 0)
	o.CPU = bd.u32If(t&SampleFormatCPU != 0)
	o.Res = bd.u32If(t&SampleFormatCPU != 0)
	o.Period = bd.u64If(t&SampleFormatPeriod != 0)

	if t&SampleFormatRead != 0 {
		r.parseReadFormat(bd, o.EventAttr.ReadFormat, &o.SampleRead)
	}

	if t&SampleFormatCallchain != 0 {
		callchainLen := int(bd.u64())
		if o.Callchain == nil || cap(o.Callchain) < callchainLen {
			o.Callchain = make([]uint64, callchainLen)
		} else {
			o.Callchain = o.Callchain[:callchainLen]
		}
		bd.u64s(o.Callchain)
	} else {
		o.Callchain = nil
	}

	rawSize := bd.u32If(t&SampleFormatRaw != 0)
	bd.skip(int(rawSize))

	if t&SampleFormatBranchStack != 0 {
		count := int(bd.u64())
		if o.BranchStack == nil || cap(o.BranchStack) < count {
			o.BranchStack = make([]BranchRecord, count)
		} else {
			o.BranchStack = o.BranchStack[:count]
		}
		for i := range o.BranchStack {
			o.BranchStack[i].From = bd.u64()
			o.BranchStack[i].To = bd.u64()
			o.BranchStack[i].Flags = bd.u64()
		}
	}

	if t&SampleFormatRegsUser != 0 {
		o.RegsABI = SampleRegsABI(bd.u64())
		count := weight(o.EventAttr.SampleRegsUser)
		if o.Regs == nil || cap(o.Regs) < count {
			o.Regs = make([]uint64, count)
		} else {
			o.Regs = o.Regs[:count]
		}
		bd.u64s(o.Regs)
	}

	if t&SampleFormatStackUser != 0 {
		size := int(bd.u64())
		if o.StackUser == nil || cap(o.StackUser) < size {
			o.StackUser = make([]byte, size)
		} else {
			o.StackUser = o.StackUser[:size]
		}
		bd.bytes(o.StackUser)
		o.StackUserDynSize = bd.u64()
	} else {
		o.StackUser = nil
		o.StackUserDynSize = 0
	}

	o.Weight = bd.u64If(t&SampleFormatWeight != 0)

	if t&SampleFormatDataSrc != 0 {
		o.DataSrc = decodeDataSrc(bd.u64())
	}

	transaction := bd.u64If(t&SampleFormatTransaction != 0)
	o.Transaction = Transaction(transaction & 0xffffffff)
	o.AbortCode = uint32(transaction >> 32)

	return o
}

func (r *Records) parseReadFormat(bd *bufDecoder, f ReadFormat, out *[]SampleRead) {
	n := 1
	if f&ReadFormatGroup != 0 {
		n = int(bd.u64())
	}

	if *out == nil || cap(*out) < n {
		*out = make([]SampleRead, n)
	} else {
		*out = (*out)[:n]
	}

	if f&ReadFormatGroup == 0 {
		o := &(*out)[0]
		o.Value = bd.u64()
		o.TimeEnabled = bd.u64If(f&ReadFormatTotalTimeEnabled != 0)
		o.TimeRunning = bd.u64If(f&ReadFormatTotalTimeRunning != 0)
		if f&ReadFormatID != 0 {
			o.EventAttr = r.getAttr(attrID(bd.u64()))
		} else {
			o.EventAttr = nil
		}
	} else {
		for i := range *out {
			o := &(*out)[i]
			o.TimeEnabled = bd.u64If(f&ReadFormatTotalTimeEnabled != 0)
			o.TimeRunning = bd.u64If(f&ReadFormatTotalTimeRunning != 0)
			o.Value = bd.u64()
			if f&ReadFormatID != 0 {
				o.EventAttr = r.getAttr(attrID(bd.u64()))
			} else {
				o.EventAttr = nil
			}
		}
	}
}

func decodeDataSrc(d uint64) (out DataSrc) {
	// See perf_mem_data_src in include/uapi/linux/perf_event.h
	op := (d >> 0) & 0x1f
	lvl := (d >> 5) & 0x3fff
	snoop := (d >> 19) & 0x1f
	lock := (d >> 24) & 0x3
	dtlb := (d >> 26) & 0x7f

	if op&0x1 != 0 {
		out.Op = DataSrcOpNA
	} else {
		out.Op = DataSrcOp(op >> 1)
	}

	if lvl&0x1 != 0 {
		out.Miss, out.Level = false, DataSrcLevelNA
	} else {
		out.Miss = (lvl & 0x4) != 0
		out.Level = DataSrcLevel(lvl >> 3)
	}

	if snoop&0x1 != 0 {
		out.Snoop = DataSrcSnoopNA
	} else {
		out.Snoop = DataSrcSnoop(snoop >> 1)
	}

	if lock&0x1 != 0 {
		out.Locked = DataSrcLockNA
	} else if lock&0x02 != 0 {
		out.Locked = DataSrcLockLocked
	} else {
		out.Locked = DataSrcLockUnlocked
	}

	if dtlb&0x1 != 0 {
		out.TLB = DataSrcTLBNA
	} else {
		out.TLB = DataSrcTLB(dtlb >> 1)
	}
	return
}

func weight(x uint64) int {
	x -= (x >> 1) & 0x5555555555555555
	x = (x & 0x3333333333333333) + ((x >> 2) & 0x3333333333333333)
	x = (x + (x >> 4)) & 0x0f0f0f0f0f0f0f0f
	return int((x * 0x0101010101010101) >> 56)
}
