// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package npy

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// NpzEntry describes one array stored in an .npz archive without decoding
// its payload, for archive introspection (spec §7 "npyinfo"; original_source
// has no direct equivalent, this recovers what cnpy's npz_t exposes).
type NpzEntry struct {
	Name   string
	Descr  TypeDescriptor
	Shape  []int
	Method uint16
}

// SaveCompressed writes a single named array into an .npz archive at
// zipFileName, either creating it (ModeWrite) or appending a new member to
// an existing one (ModeAppend). It never writes a DEFLATE (method 8)
// member — matching original_source/Npy++/Npy++.h's SaveCompressed, whose
// name refers to the zip container, not member compression (spec §4.4).
func SaveCompressed[T Elem](zipFileName, vectorName string, arr MultiDimArray[T], mode Mode) error {
	switch mode {
	case ModeWrite:
		return saveCompressedWrite(zipFileName, vectorName, arr)
	case ModeAppend:
		return saveCompressedAppend(zipFileName, vectorName, arr)
	default:
		return fmt.Errorf("%w: SaveCompressed does not support mode %q", ErrUnsupportedLayout, mode)
	}
}

// SaveCompressedAuto is SaveCompressed with vectorName derived from
// zipFileName's base name by stripping the ".npz" suffix, matching the
// 4-argument SaveCompressed overload in original_source/Npy++/Npy++.h.
func SaveCompressedAuto[T Elem](zipFileName string, arr MultiDimArray[T], mode Mode) error {
	return SaveCompressed(zipFileName, strings.TrimSuffix(filepath.Base(zipFileName), npzSuffix), arr, mode)
}

func buildNpyEntry(vectorName string, header, payload []byte) (zipLocalEntry, []byte) {
	entryName := vectorName + npySuffix
	crc := crc32Of(header, payload)
	entry := zipLocalEntry{
		Name:             entryName,
		CRC32:            crc,
		CompressedSize:   uint32(len(header) + len(payload)),
		UncompressedSize: uint32(len(header) + len(payload)),
		Method:           zipMethodStored,
	}
	localHeader := buildLocalHeader(entry)
	return entry, localHeader
}

func saveCompressedWrite[T Elem](zipFileName, vectorName string, arr MultiDimArray[T]) error {
	npyHeader := buildNpyHeader(descriptorFor[T](), arr.Shape)
	payload := elemsToBytes(arr.Data)

	entry, localHeader := buildNpyEntry(vectorName, npyHeader, payload)
	central := buildCentralEntry(localHeader, 0, entry.Name)
	centralOffset := uint32(len(localHeader) + len(npyHeader) + len(payload))
	eocd := buildEOCD(1, uint32(len(central)), centralOffset)

	out := make([]byte, 0, int(centralOffset)+len(central)+len(eocd))
	out = append(out, localHeader...)
	out = append(out, npyHeader...)
	out = append(out, payload...)
	out = append(out, central...)
	out = append(out, eocd...)

	if err := os.WriteFile(zipFileName, out, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrIoUnavailable, err)
	}
	return nil
}

func saveCompressedAppend[T Elem](zipFileName, vectorName string, arr MultiDimArray[T]) error {
	raw, err := os.ReadFile(zipFileName)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIoUnavailable, err)
	}

	nRecords, centralSize, centralOffset, err := findEOCD(raw)
	if err != nil {
		return err
	}
	if int(centralOffset)+int(centralSize) > len(raw) {
		return fmt.Errorf("%w: central directory runs past end of archive", ErrCorruptArchive)
	}
	oldCentralBytes := raw[centralOffset : centralOffset+centralSize]

	npyHeader := buildNpyHeader(descriptorFor[T](), arr.Shape)
	payload := elemsToBytes(arr.Data)
	entry, localHeader := buildNpyEntry(vectorName, npyHeader, payload)

	newLocalOffset := centralOffset
	newCentral := buildCentralEntry(localHeader, newLocalOffset, entry.Name)
	newCentralOffset := newLocalOffset + uint32(len(localHeader)+len(npyHeader)+len(payload))
	newCentralSize := uint32(len(oldCentralBytes) + len(newCentral))
	eocd := buildEOCD(nRecords+1, newCentralSize, newCentralOffset)

	out := make([]byte, 0, int(newCentralOffset)+int(newCentralSize)+len(eocd))
	out = append(out, raw[:centralOffset]...)
	out = append(out, localHeader...)
	out = append(out, npyHeader...)
	out = append(out, payload...)
	out = append(out, oldCentralBytes...)
	out = append(out, newCentral...)
	out = append(out, eocd...)

	if err := os.WriteFile(zipFileName, out, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrIoUnavailable, err)
	}
	return nil
}

// listNpz reads zipFileName's central directory and decodes each member's
// npy header (decompressing it first if necessary), without materializing
// any payload as a typed array.
func listNpz(zipFileName string) ([]NpzEntry, []zipCentralEntry, []byte, error) {
	raw, err := os.ReadFile(zipFileName)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %w", ErrIoUnavailable, err)
	}

	nRecords, _, centralOffset, err := findEOCD(raw)
	if err != nil {
		return nil, nil, nil, err
	}
	centrals, err := parseCentralDirectory(raw, centralOffset, nRecords)
	if err != nil {
		return nil, nil, nil, err
	}

	entries := make([]NpzEntry, 0, len(centrals))
	for _, c := range centrals {
		npyBytes, err := decodeZipMember(raw, c)
		if err != nil {
			return nil, nil, nil, err
		}
		hdr, _, err := readNpyHeader(bytes.NewReader(npyBytes))
		if err != nil {
			return nil, nil, nil, err
		}
		entries = append(entries, NpzEntry{
			Name:   strings.TrimSuffix(c.Name, npySuffix),
			Descr:  hdr.Descr,
			Shape:  hdr.Shape,
			Method: c.Method,
		})
	}
	return entries, centrals, raw, nil
}

// ListNpz reports the name, dtype, and shape of every array stored in the
// .npz archive at zipFileName, without decoding any array's data.
func ListNpz(zipFileName string) ([]NpzEntry, error) {
	entries, _, _, err := listNpz(zipFileName)
	return entries, err
}

// decodeZipMember returns the member's raw .npy bytes (header + payload),
// inflating first if it was stored with DEFLATE.
func decodeZipMember(raw []byte, c zipCentralEntry) ([]byte, error) {
	payload, err := readLocalPayload(raw, c)
	if err != nil {
		return nil, err
	}
	switch c.Method {
	case zipMethodStored:
		return payload, nil
	case zipMethodDeflate:
		return inflateEntry(payload, int(c.UncompressedSize))
	default:
		return nil, fmt.Errorf("%w: unsupported zip compression method %d for %q", ErrUnsupportedLayout, c.Method, c.Name)
	}
}

// LoadCompressedFull decodes every array in the .npz archive at
// zipFileName as T, keyed by member name. All members must share the same
// element type (spec §4.4 "Limitations", matching
// original_source/Npy++/Npy++.h's CompressedMapFull).
func LoadCompressedFull[T Elem](zipFileName string) (map[string]MultiDimArray[T], error) {
	_, centrals, raw, err := listNpz(zipFileName)
	if err != nil {
		return nil, err
	}

	out := make(map[string]MultiDimArray[T], len(centrals))
	for _, c := range centrals {
		npyBytes, err := decodeZipMember(raw, c)
		if err != nil {
			return nil, err
		}
		arr, err := decodeNpy[T](npyBytes)
		if err != nil {
			return nil, fmt.Errorf("member %q: %w", c.Name, err)
		}
		out[strings.TrimSuffix(c.Name, npySuffix)] = arr
	}
	return out, nil
}

// LoadCompressedNamed decodes a single named array out of the .npz archive
// at zipFileName as T.
func LoadCompressedNamed[T Elem](zipFileName, vectorName string) (MultiDimArray[T], error) {
	full, err := LoadCompressedFull[T](zipFileName)
	if err != nil {
		return MultiDimArray[T]{}, err
	}
	arr, ok := full[vectorName]
	if !ok {
		return MultiDimArray[T]{}, fmt.Errorf("%w: no member named %q in %q", ErrCorruptArchive, vectorName, zipFileName)
	}
	return arr, nil
}

// LoadCompressed decodes every array in zipFileName as T, discarding shape
// information, matching original_source/Npy++/Npy++.h's CompressedMap.
func LoadCompressed[T Elem](zipFileName string) (map[string][]T, error) {
	full, err := LoadCompressedFull[T](zipFileName)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]T, len(full))
	for name, arr := range full {
		out[name] = arr.Data
	}
	return out, nil
}

// VerifyNpz recomputes the CRC-32 of every member in the .npz archive at
// zipFileName and compares it against the value stored in its central
// directory entry, returning an error naming the first member that
// doesn't match.
func VerifyNpz(zipFileName string) error {
	_, centrals, raw, err := listNpz(zipFileName)
	if err != nil {
		return err
	}
	for _, c := range centrals {
		npyBytes, err := decodeZipMember(raw, c)
		if err != nil {
			return err
		}
		hdr, headerLen, err := readNpyHeader(bytes.NewReader(npyBytes))
		if err != nil {
			return fmt.Errorf("member %q: %w", c.Name, err)
		}
		got := crc32Of(npyBytes[:headerLen], npyBytes[headerLen:])
		if got != c.CRC32 {
			return fmt.Errorf("%w: member %q: stored CRC32 %08x, computed %08x (shape %v)",
				ErrCorruptArchive, c.Name, c.CRC32, got, hdr.Shape)
		}
	}
	return nil
}

// LoadCompressedOne decodes a single named array's data out of zipFileName
// as T, discarding shape information.
func LoadCompressedOne[T Elem](zipFileName, vectorName string) ([]T, error) {
	arr, err := LoadCompressedNamed[T](zipFileName, vectorName)
	if err != nil {
		return nil, err
	}
	return arr.Data, nil
}
