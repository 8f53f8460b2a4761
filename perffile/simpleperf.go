// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package perffile

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Constants for SimpleperfFile.Type, matching simpleperf's
// DSO_* constants (simpleperf_dso_type in the Android sources).
const (
	SimpleperfDSOKernel       = 0
	SimpleperfDSOKernelModule = 1
	SimpleperfDSOElfFile      = 2
	SimpleperfDSODexFile      = 3
	SimpleperfDSOSymbolMap    = 4
	SimpleperfDSOUnknownFile  = 5
)

// A SimpleperfFile is an on-device symbol table simpleperf attaches to
// a DSO, decoded from the FILE2 feature section.
type SimpleperfFile struct {
	Path     string
	Type     uint32
	MinVaddr uint64
	Symbols  []SimpleperfSymbol // sorted by VAddr

	// Exactly one of the following is meaningful, depending on Type.
	DexFileOffsets           []uint64 // Type == SimpleperfDSODexFile
	ElfFileOffsetOfMinVaddr  uint64   // Type == SimpleperfDSOElfFile
	KernelModuleMemoryOffset uint64   // Type == SimpleperfDSOKernelModule
}

// A SimpleperfSymbol is one entry of a SimpleperfFile's symbol table.
type SimpleperfSymbol struct {
	VAddr uint64
	Len   uint32
	Name  string
}

// Lookup returns the symbol covering addr, if any, using a binary
// search over the (pre-sorted) symbol table.
func (f *SimpleperfFile) Lookup(addr uint64) (SimpleperfSymbol, bool) {
	i := sort.Search(len(f.Symbols), func(i int) bool { return f.Symbols[i].VAddr > addr }) - 1
	if i < 0 {
		return SimpleperfSymbol{}, false
	}
	sym := f.Symbols[i]
	if addr >= sym.VAddr && (sym.Len == 0 || addr < sym.VAddr+uint64(sym.Len)) {
		return sym, true
	}
	return SimpleperfSymbol{}, false
}

// parseMetaInfoMap parses simpleperf's NUL-separated key/value META_INFO
// section into a map. Simpleperf assembles the section as alternating
// NUL-terminated key and value strings.
func parseMetaInfoMap(data []byte) (map[string]string, error) {
	parts := strings.Split(string(data), "\x00")
	m := make(map[string]string, len(parts)/2)
	for i := 0; i+1 < len(parts); i += 2 {
		m[parts[i]] = parts[i+1]
	}
	return m, nil
}

// simpleperfEventTypes extracts the "event_type_info" entry of a
// META_INFO map, which lists "name,type,config" triples separated by
// newlines.
func simpleperfEventTypes(info map[string]string) []SimpleperfEventType {
	raw, ok := info["event_type_info"]
	if !ok {
		return nil
	}
	var out []SimpleperfEventType
	for _, line := range strings.Split(raw, "\n") {
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) != 3 {
			continue
		}
		typ, err1 := strconv.ParseUint(parts[1], 10, 64)
		cfg, err2 := strconv.ParseUint(parts[2], 10, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, SimpleperfEventType{Name: parts[0], Type: typ, Config: cfg})
	}
	return out
}

// parseSimpleperfFile2Section parses the FILE2 feature section: a
// sequence of (length uint32, protobuf-encoded SimpleperfFileRecord)
// pairs, with length encoded in order.
func parseSimpleperfFile2Section(data []byte, order binary.ByteOrder) ([]SimpleperfFile, error) {
	var files []SimpleperfFile
	for len(data) > 0 {
		if len(data) < 4 {
			return nil, fmt.Errorf("simpleperf FILE2 section: truncated length prefix")
		}
		l := order.Uint32(data)
		data = data[4:]
		if uint64(len(data)) < uint64(l) {
			return nil, fmt.Errorf("simpleperf FILE2 section: truncated record")
		}
		rec, err := decodeSimpleperfFileRecord(data[:l])
		if err != nil {
			return nil, fmt.Errorf("simpleperf FILE2 section: %w", err)
		}
		data = data[l:]
		files = append(files, rec)
	}
	return files, nil
}

// decodeSimpleperfFileRecord decodes one SimpleperfFileRecord protobuf
// message (see original_source/src/simpleperf.rs for the schema this
// mirrors).
func decodeSimpleperfFileRecord(data []byte) (SimpleperfFile, error) {
	var f SimpleperfFile
	pr := &protoReader{buf: data}
	for {
		field, _, payload, ok, err := pr.next()
		if err != nil {
			return f, err
		}
		if !ok {
			break
		}
		switch field {
		case 1: // path, string
			f.Path = string(payload)
		case 2: // type, uint32
			f.Type = uint32(decodeVarintPayload(payload))
		case 3: // min_vaddr, uint64
			f.MinVaddr = decodeVarintPayload(payload)
		case 4: // symbol, repeated message
			sym, err := decodeSimpleperfSymbol(payload)
			if err != nil {
				return f, err
			}
			f.Symbols = append(f.Symbols, sym)
		case 5: // SimpleperfDexFileInfo{ dex_file_offset: repeated uint64 }
			offs, err := decodeDexFileInfo(payload)
			if err != nil {
				return f, err
			}
			f.DexFileOffsets = append(f.DexFileOffsets, offs...)
		case 6: // SimpleperfElfFileInfo{ file_offset_of_min_vaddr: uint64 }
			v, err := decodeSingleUint64Message(payload)
			if err != nil {
				return f, err
			}
			f.ElfFileOffsetOfMinVaddr = v
		case 7: // SimpleperfKernelModuleInfo{ memory_offset_of_min_vaddr: uint64 }
			v, err := decodeSingleUint64Message(payload)
			if err != nil {
				return f, err
			}
			f.KernelModuleMemoryOffset = v
		}
	}
	sort.Slice(f.Symbols, func(i, j int) bool { return f.Symbols[i].VAddr < f.Symbols[j].VAddr })
	return f, nil
}

func decodeSimpleperfSymbol(data []byte) (SimpleperfSymbol, error) {
	var sym SimpleperfSymbol
	pr := &protoReader{buf: data}
	for {
		field, _, payload, ok, err := pr.next()
		if err != nil {
			return sym, err
		}
		if !ok {
			break
		}
		switch field {
		case 1:
			sym.VAddr = decodeVarintPayload(payload)
		case 2:
			sym.Len = uint32(decodeVarintPayload(payload))
		case 3:
			sym.Name = string(payload)
		}
	}
	return sym, nil
}

// decodeSingleUint64Message decodes a submessage consisting of exactly
// one uint64 field tagged 1, as used by both
// SimpleperfElfFileInfo.file_offset_of_min_vaddr and
// SimpleperfKernelModuleInfo.memory_offset_of_min_vaddr.
func decodeSingleUint64Message(data []byte) (uint64, error) {
	pr := &protoReader{buf: data}
	var v uint64
	for {
		field, _, payload, ok, err := pr.next()
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		if field == 1 {
			v = decodeVarintPayload(payload)
		}
	}
	return v, nil
}

// decodeDexFileInfo decodes a SimpleperfDexFileInfo submessage, whose
// sole field (tag 1) is a repeated uint64 that proto3 packs by
// default, but which some encoders emit as repeated bare varints
// instead; both are accepted.
func decodeDexFileInfo(data []byte) ([]uint64, error) {
	var out []uint64
	pr := &protoReader{buf: data}
	for {
		field, wt, payload, ok, err := pr.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if field != 1 {
			continue
		}
		if wt == wireBytes {
			inner := &protoReader{buf: payload}
			for len(inner.buf) > 0 {
				v, _, err := inner.varint()
				if err != nil {
					return nil, err
				}
				out = append(out, v)
			}
		} else {
			out = append(out, decodeVarintPayload(payload))
		}
	}
	return out, nil
}
