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
	"fmt"
	"hash/crc32"
)

// .npz files are hand-built ZIP archives: a sequence of local file
// entries followed by a central directory and an end-of-central-directory
// (EOCD) record. This file builds and parses those three record kinds
// byte-for-byte, rather than going through archive/zip, so that Append can
// place a new member where the old central directory began and follow it
// with the old directory, the new directory entry, and a new EOCD; the
// whole archive is then written back out (spec §4.4; grounded on
// original_source/Npy++/Npy++.h's GetLocalHeader/AppendGlobalHeader/
// GetNpzFooter/ParseNpzFooter).

const (
	localHeaderSig   = 0x04034b50
	centralHeaderSig = 0x02014b50
	eocdSig          = 0x06054b50

	eocdSize = 22

	zipMethodStored  = 0
	zipMethodDeflate = 8
)

// zipLocalEntry mirrors spec §3 "ZipLocalEntry": one local file header plus
// its payload, as written ahead of each array stored in an .npz file.
type zipLocalEntry struct {
	Name             string
	CRC32            uint32
	CompressedSize   uint32
	UncompressedSize uint32
	Method           uint16
}

// zipCentralEntry mirrors spec §3 "ZipCentralEntry": the central directory
// record pointing back at a local entry.
type zipCentralEntry struct {
	zipLocalEntry
	LocalHeaderOffset uint32
}

// crc32Of computes the CRC-32 (IEEE) of an npy header followed by its
// payload, the value ZIP stores per entry.
func crc32Of(header, payload []byte) uint32 {
	h := crc32.NewIEEE()
	h.Write(header)
	h.Write(payload)
	return h.Sum32()
}

// buildLocalHeader renders a stored-method (uncompressed) local file
// header plus its name, matching Npy++.h's GetLocalHeader exactly.
func buildLocalHeader(e zipLocalEntry) []byte {
	out := make([]byte, 0, 30+len(e.Name))
	out = append(out, 'P', 'K')
	out = appendUint16(out, 0x0403)
	out = appendUint16(out, 20) // min version to extract
	out = appendUint16(out, 0)  // general purpose bit flag
	out = appendUint16(out, e.Method)
	out = appendUint16(out, 0) // last mod time
	out = appendUint16(out, 0) // last mod date
	out = appendUint32(out, e.CRC32)
	out = appendUint32(out, e.CompressedSize)
	out = appendUint32(out, e.UncompressedSize)
	out = appendUint16(out, uint16(len(e.Name)))
	out = appendUint16(out, 0) // extra field length
	out = append(out, e.Name...)
	return out
}

// buildCentralEntry renders the central directory record for a local entry
// already written at localHeaderOffset, reusing bytes [4:30) of the local
// header it describes (version/flags/method/time/date/crc/sizes/namelen),
// matching AppendGlobalHeader.
func buildCentralEntry(localHeader []byte, localHeaderOffset uint32, name string) []byte {
	out := make([]byte, 0, 46+len(name))
	out = append(out, 'P', 'K')
	out = appendUint16(out, 0x0201)
	out = appendUint16(out, 20) // version made by
	out = append(out, localHeader[4:30]...)
	out = appendUint16(out, 0) // file comment length
	out = appendUint16(out, 0) // disk number where file starts
	out = appendUint16(out, 0) // internal file attributes
	out = appendUint32(out, 0) // external file attributes
	out = appendUint32(out, localHeaderOffset)
	out = append(out, name...)
	return out
}

// buildEOCD renders the end-of-central-directory record, matching
// GetNpzFooter.
func buildEOCD(nRecords uint16, centralDirSize, centralDirOffset uint32) []byte {
	out := make([]byte, 0, eocdSize)
	out = append(out, 'P', 'K')
	out = appendUint16(out, 0x0605)
	out = appendUint16(out, 0) // number of this disk
	out = appendUint16(out, 0) // disk where central dir starts
	out = appendUint16(out, nRecords)
	out = appendUint16(out, nRecords)
	out = appendUint32(out, centralDirSize)
	out = appendUint32(out, centralDirOffset)
	out = appendUint16(out, 0) // zip comment length
	return out
}

// findEOCD locates and parses the EOCD record at the end of raw, returning
// the record count and the central directory's size and offset, matching
// ParseNpzFooter. The archive comment is assumed empty, as in the writer
// above, so the EOCD is always the last eocdSize bytes of the file.
func findEOCD(raw []byte) (nRecords uint16, centralDirSize, centralDirOffset uint32, err error) {
	if len(raw) < eocdSize {
		return 0, 0, 0, fmt.Errorf("%w: archive is only %d bytes, too short for an EOCD record", ErrCorruptArchive, len(raw))
	}
	footer := raw[len(raw)-eocdSize:]

	sig, err := readUint32(footer)
	if err != nil || sig != eocdSig {
		return 0, 0, 0, fmt.Errorf("%w: EOCD signature not found at end of archive", ErrCorruptArchive)
	}

	n, err := readUint16(footer[10:])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: %w", ErrCorruptArchive, err)
	}
	size, err := readUint32(footer[12:])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: %w", ErrCorruptArchive, err)
	}
	offset, err := readUint32(footer[16:])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: %w", ErrCorruptArchive, err)
	}
	return n, size, offset, nil
}

// parseCentralDirectory walks the nRecords central directory entries
// starting at raw[start:], returning one zipCentralEntry per record.
func parseCentralDirectory(raw []byte, start uint32, nRecords uint16) ([]zipCentralEntry, error) {
	entries := make([]zipCentralEntry, 0, nRecords)
	pos := int(start)

	for i := uint16(0); i < nRecords; i++ {
		if pos+46 > len(raw) {
			return nil, fmt.Errorf("%w: central directory entry %d runs past end of archive", ErrCorruptArchive, i)
		}
		rec := raw[pos:]

		sig, err := readUint32(rec)
		if err != nil || sig != centralHeaderSig {
			return nil, fmt.Errorf("%w: bad central directory signature at entry %d", ErrCorruptArchive, i)
		}

		method, _ := readUint16(rec[10:])
		crc, _ := readUint32(rec[16:])
		compSize, _ := readUint32(rec[20:])
		uncompSize, _ := readUint32(rec[24:])
		nameLen, _ := readUint16(rec[28:])
		extraLen, _ := readUint16(rec[30:])
		commentLen, _ := readUint16(rec[32:])
		offset, _ := readUint32(rec[42:])

		nameStart := pos + 46
		if nameStart+int(nameLen) > len(raw) {
			return nil, fmt.Errorf("%w: central directory entry %d name runs past end of archive", ErrCorruptArchive, i)
		}
		name := string(raw[nameStart : nameStart+int(nameLen)])

		entries = append(entries, zipCentralEntry{
			zipLocalEntry: zipLocalEntry{
				Name:             name,
				CRC32:            crc,
				CompressedSize:   compSize,
				UncompressedSize: uncompSize,
				Method:           method,
			},
			LocalHeaderOffset: offset,
		})

		pos = nameStart + int(nameLen) + int(extraLen) + int(commentLen)
	}

	return entries, nil
}

// readLocalPayload reads the stored-or-deflated payload bytes for a
// central entry directly out of its local header location in raw.
func readLocalPayload(raw []byte, e zipCentralEntry) ([]byte, error) {
	off := int(e.LocalHeaderOffset)
	if off+30 > len(raw) {
		return nil, fmt.Errorf("%w: local header for %q runs past end of archive", ErrCorruptArchive, e.Name)
	}
	local := raw[off:]
	sig, err := readUint32(local)
	if err != nil || sig != localHeaderSig {
		return nil, fmt.Errorf("%w: bad local header signature for %q", ErrCorruptArchive, e.Name)
	}
	nameLen, _ := readUint16(local[26:])
	extraLen, _ := readUint16(local[28:])

	start := off + 30 + int(nameLen) + int(extraLen)
	end := start + int(e.CompressedSize)
	if end > len(raw) {
		return nil, fmt.Errorf("%w: payload for %q runs past end of archive", ErrCorruptArchive, e.Name)
	}
	return raw[start:end], nil
}
