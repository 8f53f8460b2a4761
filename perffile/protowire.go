// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package perffile

import "fmt"

// This file implements just enough of the protobuf wire format to
// decode the single message simpleperf embeds in its FILE2 feature
// section (SimpleperfFileRecord, see simpleperf.go). There's no
// third-party protobuf runtime anywhere in this module's dependency
// surface, so rather than pull one in for a single fixed schema, we
// hand-decode the (field number, wire type, value) triples the same
// way bufDecoder hand-decodes the rest of perf.data's binary layout.

const (
	wireVarint     = 0
	wireFixed64    = 1
	wireBytes      = 2
	wireStartGroup = 3
	wireEndGroup   = 4
	wireFixed32    = 5
)

// protoReader walks a length-delimited protobuf message.
type protoReader struct {
	buf []byte
}

// next returns the next field's number, wire type, and raw payload
// (already consumed from buf). ok is false at end of input.
func (p *protoReader) next() (field int, wireType int, payload []byte, ok bool, err error) {
	if len(p.buf) == 0 {
		return 0, 0, nil, false, nil
	}
	tag, n, err := p.varint()
	if err != nil {
		return 0, 0, nil, false, err
	}
	field = int(tag >> 3)
	wireType = int(tag & 7)
	_ = n
	switch wireType {
	case wireVarint:
		v, _, err := p.varint()
		if err != nil {
			return 0, 0, nil, false, err
		}
		payload = varintBytes(v)
	case wireFixed64:
		if len(p.buf) < 8 {
			return 0, 0, nil, false, fmt.Errorf("protowire: truncated fixed64")
		}
		payload, p.buf = p.buf[:8], p.buf[8:]
	case wireBytes:
		l, _, err := p.varint()
		if err != nil {
			return 0, 0, nil, false, err
		}
		if uint64(len(p.buf)) < l {
			return 0, 0, nil, false, fmt.Errorf("protowire: truncated length-delimited field")
		}
		payload, p.buf = p.buf[:l], p.buf[l:]
	case wireFixed32:
		if len(p.buf) < 4 {
			return 0, 0, nil, false, fmt.Errorf("protowire: truncated fixed32")
		}
		payload, p.buf = p.buf[:4], p.buf[4:]
	default:
		return 0, 0, nil, false, fmt.Errorf("protowire: unsupported wire type %d", wireType)
	}
	return field, wireType, payload, true, nil
}

// varint consumes a base-128 varint from the front of p.buf.
func (p *protoReader) varint() (uint64, int, error) {
	var x uint64
	var s uint
	for i := 0; i < len(p.buf); i++ {
		b := p.buf[i]
		if b < 0x80 {
			if i > 9 || (i == 9 && b > 1) {
				return 0, 0, fmt.Errorf("protowire: varint overflow")
			}
			x |= uint64(b) << s
			p.buf = p.buf[i+1:]
			return x, i + 1, nil
		}
		x |= uint64(b&0x7f) << s
		s += 7
	}
	return 0, 0, fmt.Errorf("protowire: truncated varint")
}

func varintBytes(v uint64) []byte {
	b := make([]byte, 8)
	for i := range b {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

func decodeVarintPayload(payload []byte) uint64 {
	var x uint64
	for i := 0; i < 8 && i < len(payload); i++ {
		x |= uint64(payload[i]) << (8 * i)
	}
	return x
}
