// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package perffile

import (
	"os"

	"github.com/edsrzf/mmap-go"
)

// mmapReaderAt adapts an mmap.MMap to io.ReaderAt, and keeps the
// backing *os.File and mapping alive until Close.
type mmapReaderAt struct {
	data mmap.MMap
	file *os.File
}

func (m *mmapReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(m.data)) {
		return 0, errf(KindTruncated, "read offset %d past end of mapped file", off)
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, errf(KindTruncated, "short read at offset %d", off)
	}
	return n, nil
}

func (m *mmapReaderAt) Close() error {
	unmapErr := m.data.Unmap()
	closeErr := m.file.Close()
	if unmapErr != nil {
		return unmapErr
	}
	return closeErr
}

// OpenMmap opens the named perf.data file and memory-maps it rather
// than reading it with ordinary file I/O. This avoids copying the
// file's bytes through a read buffer, which matters for large traces
// accessed primarily through random-access feature and build-ID
// sections rather than a single linear scan.
//
// The caller must call f.Close() on the returned file when done; this
// unmaps the file as well as closing the descriptor.
func OpenMmap(name string) (*File, error) {
	osFile, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	data, err := mmap.Map(osFile, mmap.RDONLY, 0)
	if err != nil {
		osFile.Close()
		return nil, err
	}
	ra := &mmapReaderAt{data: data, file: osFile}

	f, err := New(ra)
	if err != nil {
		ra.Close()
		return nil, err
	}
	f.closer = ra
	return f, nil
}
