// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package jitdump parses the jitdump sidecar format emitted by JIT
// runtimes (the V8/JVM/etc "perf jitdump" convention): a small header
// followed by a stream of timestamped records describing code that
// was loaded, moved, or annotated with debug info.
package jitdump

import "io"

// bufReader buffers reads from r in fixed-size chunks, while letting a
// caller ask for more bytes than are currently buffered without
// treating a short read as fatal -- the read may simply not have
// arrived yet, as when tailing a jitdump file a JIT is still writing.
//
// Most of the time a read is satisfied entirely out of fixed, the
// reused chunk buffer. When a record's bytes straddle a chunk
// boundary, the unread tail of fixed (and any previously straddling
// data already in dynamic) is copied into dynamic, which grows to fit,
// and fixed is refilled from the front. This keeps the steady-state
// case allocation-free while still handling records larger than one
// chunk.
//
// Grounded on original_source/src/jitdump/buffered_reader.rs's
// BufferedReader, simplified from its exact two-buffer bookkeeping:
// consumeData here always returns a contiguous, possibly newly
// allocated, slice rather than Rust's zero-copy Single/Split view,
// since a straddling read is the rare case and Go has no borrow
// checker to make the zero-copy version free to express.
type bufReader struct {
	r io.Reader

	fixed        []byte // reused chunk-sized scratch buffer
	fixedReadPos int    // next unread byte in fixed
	writePos     int    // valid bytes written into fixed[:writePos]

	dynamic        []byte // holds data moved out of fixed when a read straddles a refill
	dynamicReadPos int
	inDynamic      bool
}

// newBufReader returns a bufReader that reads chunkSize bytes from r
// at a time.
func newBufReader(r io.Reader, chunkSize int) *bufReader {
	return &bufReader{r: r, fixed: make([]byte, chunkSize)}
}

// newBufReaderWithPrefix returns a bufReader whose fixed buffer is
// preloaded with bytes already read from r (such as the jitdump header
// read while sniffing the magic), so those bytes aren't lost.
// consumedLen bytes at the front of buf are already consumed (by the
// header parse); writeLen is how much of buf holds valid data.
func newBufReaderWithPrefix(r io.Reader, buf []byte, consumedLen, writeLen int) *bufReader {
	return &bufReader{r: r, fixed: buf, fixedReadPos: consumedLen, writePos: writeLen}
}

func (b *bufReader) availableLen() int {
	if b.inDynamic {
		return len(b.dynamic) - b.dynamicReadPos + b.writePos
	}
	return b.writePos - b.fixedReadPos
}

// readExactOrUntilEOF reads into buf until it's full or r is
// exhausted, returning however many bytes actually landed. It never
// treats a short read (n < len(buf)) followed by io.EOF as an error.
func readExactOrUntilEOF(r io.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
	}
	return total, nil
}

// readMore tries to make at least n additional bytes available beyond
// what availableLen already reports, growing dynamic and refilling
// fixed as needed. It returns false (with no error) if r ran dry
// before n more bytes arrived -- the caller's request is simply not
// satisfiable yet, not a failure.
func (b *bufReader) readMore(n int) (bool, error) {
	got := 0
	for got < n {
		if b.writePos < len(b.fixed) {
			m, err := readExactOrUntilEOF(b.r, b.fixed[b.writePos:])
			b.writePos += m
			got += m
			if err != nil {
				return false, err
			}
			if m == 0 {
				return false, nil
			}
			continue
		}

		// fixed is full and has nothing left to grow into; move its
		// unread tail (plus any still-unread dynamic data) into
		// dynamic and free fixed up for another chunk.
		if !b.inDynamic {
			b.dynamic = append(b.dynamic[:0], b.fixed[b.fixedReadPos:]...)
		} else {
			merged := append([]byte(nil), b.dynamic[b.dynamicReadPos:]...)
			merged = append(merged, b.fixed...)
			b.dynamic = merged
		}
		b.inDynamic = true
		b.dynamicReadPos = 0
		b.fixedReadPos = 0
		b.writePos = 0
	}
	return true, nil
}

// consumeData returns the next n bytes of the stream, advancing the
// read cursor, or (nil, false, nil) if fewer than n bytes are
// currently available from r (a non-fatal short read: try again
// later).
func (b *bufReader) consumeData(n int) ([]byte, bool, error) {
	if avail := b.availableLen(); avail < n {
		ok, err := b.readMore(n - avail)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
	}

	if !b.inDynamic {
		start := b.fixedReadPos
		b.fixedReadPos += n
		return b.fixed[start:b.fixedReadPos], true, nil
	}

	remaining := len(b.dynamic) - b.dynamicReadPos
	if n <= remaining {
		start := b.dynamicReadPos
		b.dynamicReadPos += n
		return b.dynamic[start:b.dynamicReadPos], true, nil
	}

	// The request straddles the dynamic/fixed boundary; this is the
	// one case that needs an extra copy to hand back a contiguous
	// slice.
	out := make([]byte, n)
	copy(out, b.dynamic[b.dynamicReadPos:])
	fromFixed := n - remaining
	copy(out[remaining:], b.fixed[:fromFixed])
	b.inDynamic = false
	b.fixedReadPos = fromFixed
	return out, true, nil
}

// skipBytes discards n bytes without buffering them, seeking the
// underlying reader forward when n exceeds what's already buffered.
func (b *bufReader) skipBytes(n int, seek func(offset int64) error) error {
	avail := b.availableLen()
	if avail >= n {
		if !b.inDynamic {
			b.fixedReadPos += n
			return nil
		}
		remaining := len(b.dynamic) - b.dynamicReadPos
		if n <= remaining {
			b.dynamicReadPos += n
			return nil
		}
		b.inDynamic = false
		b.fixedReadPos = n - remaining
		return nil
	}

	extra := int64(n - avail)
	if err := seek(extra); err != nil {
		return err
	}
	b.inDynamic = false
	b.fixedReadPos = 0
	b.writePos = 0
	return nil
}
