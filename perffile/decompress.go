// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package perffile

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// zstdDecompressor decompresses the payloads of PERF_RECORD_COMPRESSED
// and PERF_RECORD_COMPRESSED2 records. The underlying *zstd.Decoder is
// created lazily, on the first compressed record encountered (since
// most profiles never use compression at all), and then reused across
// every subsequent compressed chunk by resetting it onto each new
// chunk's bytes rather than allocating a fresh decoder -- mirroring
// original_source/src/decompression.rs's ZstdDecompressor, which
// keeps a single zstd_safe::DCtx alive via get_or_insert_with and
// drives it with decompress_stream across calls instead of a
// stateless one-shot decode per chunk.
type zstdDecompressor struct {
	dec *zstd.Decoder
}

func (z *zstdDecompressor) decompress(compressed []byte) ([]byte, error) {
	if z.dec == nil {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		z.dec = dec
	}
	if err := z.dec.Reset(bytes.NewReader(compressed)); err != nil {
		return nil, fmt.Errorf("resetting zstd decoder: %w", err)
	}
	out, err := io.ReadAll(z.dec)
	if err != nil {
		return nil, fmt.Errorf("zstd decompression failed: %w", err)
	}
	return out, nil
}

func (z *zstdDecompressor) close() {
	if z.dec != nil {
		z.dec.Close()
		z.dec = nil
	}
}
