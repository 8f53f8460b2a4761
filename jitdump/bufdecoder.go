// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jitdump

import "encoding/binary"

// bufDecoder is a small binary cursor over an in-memory record body,
// mirroring perffile's bufDecoder of the same name.
type bufDecoder struct {
	buf   []byte
	order binary.ByteOrder
}

func (b *bufDecoder) u32() uint32 {
	x := b.order.Uint32(b.buf)
	b.buf = b.buf[4:]
	return x
}

func (b *bufDecoder) u64() uint64 {
	x := b.order.Uint64(b.buf)
	b.buf = b.buf[8:]
	return x
}

// cstring reads a NUL-terminated string, the convention jitdump uses
// for every variable-length string field (unlike perf.data's
// length-prefixed strings).
func (b *bufDecoder) cstring() (string, error) {
	for i, c := range b.buf {
		if c == 0 {
			s := string(b.buf[:i])
			b.buf = b.buf[i+1:]
			return s, nil
		}
	}
	return "", errf(KindMalformed, "string field is missing its NUL terminator")
}

// bytes takes the next n bytes as a slice sharing the decoder's
// backing array.
func (b *bufDecoder) bytes(n int) ([]byte, error) {
	if n > len(b.buf) {
		return nil, errf(KindTruncated, "record body shorter than a declared field")
	}
	x := b.buf[:n]
	b.buf = b.buf[n:]
	return x, nil
}

// rest returns every remaining byte, advancing past it.
func (b *bufDecoder) rest() []byte {
	x := b.buf
	b.buf = nil
	return x
}

func (b *bufDecoder) len() int { return len(b.buf) }
