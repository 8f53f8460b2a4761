// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package perffile

// idScheme names the three ways a file's event attributes let the
// reader map a record back to the EventAttr that produced it. See
// original_source/src/file_reader.rs's IdParseInfos enum, which this
// mirrors.
type idScheme int

const (
	// idSchemeOnlyOneEvent means the file has exactly one EventAttr,
	// so every record trivially belongs to it; no ID field is
	// needed or consulted.
	idSchemeOnlyOneEvent idScheme = iota

	// idSchemeSame means the file has multiple EventAttrs, but they
	// all agree on where the ID field lives in a sample (and in a
	// non-sample's sample_id trailer, and on whether that trailer is
	// present at all), so one shared RecordIDInfo applies uniformly
	// and idToAttrIndex resolves the actual attribute.
	idSchemeSame

	// idSchemePerAttribute means the file has multiple EventAttrs
	// whose other sample-format bits differ, and the only reason the
	// ID field's offset can still be located before knowing which
	// attribute a record belongs to is that every attribute sets
	// SampleFormatIdentifier, which fixes the ID at a constant offset
	// regardless of any other format bit.
	idSchemePerAttribute
)

// recordIDInfo is where to find a record's attribute ID.
type recordIDInfo struct {
	sampleIDOffset int  // byte offset of ID within a sample record, or -1
	recordIDOffset int  // byte offset of ID from the end of a non-sample record's sample_id trailer, or -1
	sampleIDAll    bool // whether non-sample records carry a sample_id trailer at all
}

// attrResolver maps records to the EventAttr that produced them.
type attrResolver struct {
	attrs         []fileAttr
	idToAttrIndex map[attrID]int
	scheme        idScheme
	info          recordIDInfo
}

// newAttrResolver validates attrs and builds the id-to-attribute
// mapping, selecting among the three schemes above. It returns a
// *Error of KindNoAttributes, KindMalformed (several attributes but
// no IDs), KindNoIdentifier, or KindInconsistentAttrs when attrs
// cannot be resolved unambiguously.
func newAttrResolver(attrs []fileAttr, idToAttrIndex map[attrID]int) (*attrResolver, error) {
	if len(attrs) == 0 {
		return nil, errf(KindNoAttributes, "no event attributes")
	}
	if len(attrs) == 1 {
		a := &attrs[0].Attr
		return &attrResolver{
			attrs:         attrs,
			idToAttrIndex: idToAttrIndex,
			scheme:        idSchemeOnlyOneEvent,
			info: recordIDInfo{
				sampleIDOffset: a.SampleFormat.sampleIDOffset(),
				recordIDOffset: a.SampleFormat.recordIDOffset(),
				sampleIDAll:    a.Flags&EventFlagSampleIDAll != 0,
			},
		}, nil
	}

	first := &attrs[0].Attr
	info := recordIDInfo{
		sampleIDOffset: first.SampleFormat.sampleIDOffset(),
		recordIDOffset: first.SampleFormat.recordIDOffset(),
		sampleIDAll:    first.Flags&EventFlagSampleIDAll != 0,
	}

	allSame := true
	allHaveIdentifier := first.SampleFormat&SampleFormatIdentifier != 0
	for i := range attrs {
		a := &attrs[i].Attr
		if a.SampleFormat&SampleFormatIdentifier == 0 {
			allHaveIdentifier = false
		}
		sOff := a.SampleFormat.sampleIDOffset()
		rOff := a.SampleFormat.recordIDOffset()
		idAll := a.Flags&EventFlagSampleIDAll != 0
		if sOff != info.sampleIDOffset || rOff != info.recordIDOffset || idAll != info.sampleIDAll {
			allSame = false
		}
	}

	if len(idToAttrIndex) == 0 {
		return nil, errf(KindMalformed, "file has multiple event attributes, but no IDs")
	}
	if info.sampleIDOffset == -1 || info.recordIDOffset == -1 {
		return nil, errf(KindNoIdentifier, "multiple events, but samples have no event ID field")
	}

	if allSame {
		return &attrResolver{attrs: attrs, idToAttrIndex: idToAttrIndex, scheme: idSchemeSame, info: info}, nil
	}

	if !allHaveIdentifier {
		return nil, errf(KindNoIdentifier, "event attributes disagree on sample layout, and not all carry PERF_SAMPLE_IDENTIFIER")
	}
	// With SampleFormatIdentifier set on every attr, sampleIDOffset
	// and recordIDOffset are fixed (0 and -8) regardless of any
	// other format bit -- see SampleFormat.sampleIDOffset -- so
	// info computed from the first attr already applies to all of
	// them. Only sampleIDAll must still agree, since it's not
	// implied by SampleFormatIdentifier.
	for i := range attrs {
		idAll := attrs[i].Attr.Flags&EventFlagSampleIDAll != 0
		if idAll != info.sampleIDAll {
			return nil, errf(KindInconsistentAttrs, "event attributes disagree on sample_id_all despite PERF_SAMPLE_IDENTIFIER")
		}
	}
	return &attrResolver{attrs: attrs, idToAttrIndex: idToAttrIndex, scheme: idSchemePerAttribute, info: info}, nil
}

// resolve returns the attribute index for id, falling back to
// attribute 0 when id is unknown -- the documented, spec-mandated
// behavior for ids that don't appear in any HEADER_ATTR/ID_INDEX
// mapping (see DESIGN.md's Open Questions).
func (r *attrResolver) resolve(id attrID, hasID bool) int {
	if r.scheme == idSchemeOnlyOneEvent || !hasID {
		return 0
	}
	if idx, ok := r.idToAttrIndex[id]; ok {
		return idx
	}
	return 0
}
