// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jitdump

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// growingReader simulates reading a file that a JIT runtime is still
// appending to: Read only ever serves bytes up to *avail, returning
// io.EOF past that point even though more bytes exist in data -- a
// later call succeeds once avail has grown, the same way re-reading a
// regular *os.File does once the file has grown past where a previous
// read hit EOF.
type growingReader struct {
	data  []byte
	pos   int
	avail *int
}

func (g *growingReader) Read(p []byte) (int, error) {
	if g.pos >= *g.avail {
		return 0, io.EOF
	}
	n := copy(p, g.data[g.pos:*g.avail])
	g.pos += n
	return n, nil
}

func appendHeader(buf []byte, order binary.ByteOrder) []byte {
	magic := magicLittleEndian
	if order == binary.BigEndian {
		magic = magicBigEndian
	}
	buf = append(buf, magic[:]...)
	buf = appendU32(buf, order, 1)          // version
	buf = appendU32(buf, order, HeaderSize) // total_size
	buf = appendU32(buf, order, 0xB7)       // elf_machine_arch (EM_X86_64)
	buf = appendU32(buf, order, 0)          // pad
	buf = appendU32(buf, order, 4242)       // pid
	buf = appendU64(buf, order, 1000)       // timestamp
	buf = appendU64(buf, order, 0)          // flags
	return buf
}

func appendU32(buf []byte, order binary.ByteOrder, v uint32) []byte {
	var b [4]byte
	order.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendU64(buf []byte, order binary.ByteOrder, v uint64) []byte {
	var b [8]byte
	order.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

// appendCodeLoad appends a complete CODE_LOAD record (header + body)
// to buf and returns the result.
func appendCodeLoad(buf []byte, order binary.ByteOrder, pid, tid uint32, codeAddr uint64, name string, code []byte) []byte {
	body := appendU32(nil, order, pid)
	body = appendU32(body, order, tid)
	body = appendU64(body, order, codeAddr) // vma
	body = appendU64(body, order, codeAddr)
	body = appendU64(body, order, uint64(len(code)))
	body = appendU64(body, order, 1) // code_index
	body = append(body, name...)
	body = append(body, 0) // NUL terminator
	body = append(body, code...)

	total := RecordHeaderSize + len(body)
	buf = appendU32(buf, order, uint32(RecordTypeCodeLoad))
	buf = appendU32(buf, order, uint32(total))
	buf = appendU64(buf, order, 2000) // timestamp
	buf = append(buf, body...)
	return buf
}

func TestReaderRoundTrip(t *testing.T) {
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		var stream []byte
		stream = appendHeader(stream, order)
		stream = appendCodeLoad(stream, order, 100, 101, 0x4000, "main.run", []byte{0x90, 0x90, 0xc3})

		jr, err := NewReader(bytes.NewReader(stream))
		require.NoError(t, err)
		require.Equal(t, uint32(4242), jr.Header().Pid)

		rr, err := jr.NextRecord()
		require.NoError(t, err)
		require.NotNil(t, rr)
		rec, err := rr.Parse()
		require.NoError(t, err)
		load, ok := rec.(CodeLoadRecord)
		require.True(t, ok)
		require.Equal(t, "main.run", load.FunctionName)
		require.Equal(t, uint64(0x4000), load.CodeAddr)
		require.Equal(t, []byte{0x90, 0x90, 0xc3}, load.CodeBytes)

		rr, err = jr.NextRecord()
		require.NoError(t, err)
		require.Nil(t, rr)
	}
}

func TestReaderTailsGrowingFile(t *testing.T) {
	order := binary.LittleEndian
	var full []byte
	full = appendHeader(full, order)
	full = appendCodeLoad(full, order, 1, 2, 0x1000, "first", []byte{0x01})
	secondStart := len(full)
	full = appendCodeLoad(full, order, 3, 4, 0x2000, "second", []byte{0x02, 0x03})

	// Initially only the header, the complete first record, and the
	// second record's header are available -- its body is truncated.
	avail := secondStart + RecordHeaderSize
	r := &growingReader{data: full, avail: &avail}

	jr, err := NewReader(r)
	require.NoError(t, err)

	rr, err := jr.NextRecord()
	require.NoError(t, err)
	require.NotNil(t, rr)
	rec, err := rr.Parse()
	require.NoError(t, err)
	require.Equal(t, "first", rec.(CodeLoadRecord).FunctionName)

	// The second record's body hasn't arrived yet.
	rr, err = jr.NextRecord()
	require.NoError(t, err)
	require.Nil(t, rr)

	// Its header is already visible, though.
	hdr, err := jr.NextRecordHeader()
	require.NoError(t, err)
	require.NotNil(t, hdr)
	require.Equal(t, RecordTypeCodeLoad, hdr.Type)

	// The file grows to completion.
	avail = len(full)
	rr, err = jr.NextRecord()
	require.NoError(t, err)
	require.NotNil(t, rr)
	rec, err = rr.Parse()
	require.NoError(t, err)
	require.Equal(t, "second", rec.(CodeLoadRecord).FunctionName)
}

func TestReaderBadMagic(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte("XXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXX")))
	require.Error(t, err)
	var jerr *Error
	require.ErrorAs(t, err, &jerr)
	require.Equal(t, KindBadMagic, jerr.Kind)
}
