// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package perffile

import "fmt"

// Kind classifies the errors perffile can return, mirroring the
// closed error taxonomy a perf.data reader needs to distinguish: a
// caller handling "unrecognized magic" very plausibly wants different
// behavior than one handling "truncated read".
//
// This is a deliberately coarser taxonomy than original_source's
// per-field Truncated{Header,FeatureSection,PerfEventData,String,
// StringList} and per-check InvalidHeaderSize/InvalidPerfEventSize/
// StringLengthTooLong/StringUtf8/SectionSizeTooBig/
// InconsistentAttributeSizes/NoEventTypesInSimpleperfMetaInfo
// variants: this package's decoder doesn't carry a distinct Go type
// per struct field being decoded, so those all fold into KindTruncated
// or KindMalformed by what went wrong (ran off the end of the data,
// vs. violated a structural invariant) rather than by which field was
// being read. KindZstdFeatureDisabled has no equivalent here, since
// zstd support is always compiled in.
type Kind int

const (
	// KindOther covers errors not otherwise classified, including
	// I/O errors from the underlying reader.
	KindOther Kind = iota

	// KindBadMagic means the file or stream did not start with a
	// recognized perf.data magic value.
	KindBadMagic

	// KindUnsupportedVersion means the file declared a version of
	// the container format this package does not implement (for
	// example, the version 1 "PERFFILE" layout).
	KindUnsupportedVersion

	// KindTruncated means a read ran off the end of the available
	// data: a section, record, or string was shorter than its
	// declared length required.
	KindTruncated

	// KindMalformed means the data violated a structural invariant
	// of the format that isn't simple truncation: a bad section
	// size, an attr size of zero, and so on.
	KindMalformed

	// KindInconsistentAttrs means a file had more than one event
	// attribute, all carrying SampleFormatIdentifier, but the
	// attributes disagreed on whether non-sample records carry a
	// sample_id trailer.
	KindInconsistentAttrs

	// KindNoIdentifier means a file has multiple event attributes
	// but the first attribute's samples have no event ID field, or
	// the attributes disagree on where the ID is and not every one
	// carries SampleFormatIdentifier, so there is no way to route a
	// sample back to its attribute.
	KindNoIdentifier

	// KindNoAttributes means a file's attrs section contained zero
	// event descriptors.
	KindNoAttributes

	// KindZstdDecompress means a PERF_RECORD_COMPRESSED or
	// PERF_RECORD_COMPRESSED2 payload failed to decompress.
	KindZstdDecompress
)

func (k Kind) String() string {
	switch k {
	case KindBadMagic:
		return "bad magic"
	case KindUnsupportedVersion:
		return "unsupported version"
	case KindTruncated:
		return "truncated"
	case KindMalformed:
		return "malformed"
	case KindInconsistentAttrs:
		return "inconsistent attributes"
	case KindNoIdentifier:
		return "no identifier"
	case KindNoAttributes:
		return "no attributes"
	case KindZstdDecompress:
		return "zstd decompress"
	default:
		return "error"
	}
}

// An Error is an error produced while parsing a perf.data file or
// stream. Every error this package returns for a parsing problem (as
// opposed to an I/O error from the caller's io.Reader/io.ReaderAt) can
// be type-asserted to *Error to recover its Kind.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // wrapped cause, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("perffile: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("perffile: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so
// callers can write errors.Is(err, &perffile.Error{Kind: perffile.KindTruncated}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func errf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func wrapf(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}
