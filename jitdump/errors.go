// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jitdump

import "fmt"

// Kind classifies the errors this package can return.
type Kind int

const (
	// KindOther covers errors not otherwise classified, including
	// I/O errors from the underlying reader.
	KindOther Kind = iota

	// KindBadMagic means the stream did not start with either jitdump
	// magic value ("JiTD" big-endian or "DTiJ" little-endian).
	KindBadMagic

	// KindTruncated means a read ran off the end of the available
	// data for something that isn't expected to grow later, such as
	// the fixed-size file header.
	KindTruncated

	// KindMalformed means the data violated a structural invariant of
	// the format that isn't simple truncation: a header shorter than
	// its own minimum size, a record whose declared size is smaller
	// than its header, and so on.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindBadMagic:
		return "bad magic"
	case KindTruncated:
		return "truncated"
	case KindMalformed:
		return "malformed"
	default:
		return "error"
	}
}

// An Error is an error produced while parsing a jitdump stream.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("jitdump: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("jitdump: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

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
