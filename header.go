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
	"io"
	"os"
	"regexp"
	"strings"
)

// npyHeader is the parsed form of an npy file's property dictionary (spec
// §3 "NpyHeader").
type npyHeader struct {
	Descr        TypeDescriptor
	FortranOrder bool
	Shape        []int
}

// shapeString renders shape as NumPy's "(d0, d1, ..., )" tuple, including
// the trailing ", " before the closing paren even for rank 1 (spec §4.2
// "Shape rendering").
func shapeString(shape []int) string {
	var b strings.Builder
	b.WriteByte('(')
	for _, d := range shape {
		fmt.Fprintf(&b, "%d, ", d)
	}
	b.WriteByte(')')
	return b.String()
}

// propertyString renders the unpadded "{'descr': ..., 'fortran_order':
// False, 'shape': (...), }" dict (spec §4.2). The writer's fortran_order is
// always False (spec §4.2).
func propertyString(descr TypeDescriptor, shape []int) string {
	return fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': %s, }",
		descr.String(), shapeString(shape))
}

// padHeader pads prop with spaces and a trailing newline so that
// headerPreambleLen+len(result) is a multiple of headerAlignment (spec
// §4.2 "Property string", §8 "Header padding"). Grounded on
// original_source/Npy++/Npy++.cpp:SetNpyHeaderPadding and
// datumbrain-npy/npy.go's equivalent arithmetic.
func padHeader(prop string) string {
	remainder := headerAlignment - (headerPreambleLen+len(prop))%headerAlignment
	return prop + strings.Repeat(" ", remainder-1) + "\n"
}

// paddedHeaderLen returns the padded property-string length for descr and
// shape by building the padded string and measuring it. saveAppend does
// not call it: it compares the lengths of the full old and new headers
// directly (DESIGN.md "Open Question: header padding on Append").
func paddedHeaderLen(descr TypeDescriptor, shape []int) int {
	return len(padHeader(propertyString(descr, shape)))
}

// buildNpyHeader returns the full on-disk header: magic, version,
// HEADER_LEN, and the padded property string (spec §4.2, §6).
func buildNpyHeader(descr TypeDescriptor, shape []int) []byte {
	padded := padHeader(propertyString(descr, shape))

	out := make([]byte, 0, headerPreambleLen+len(padded))
	out = append(out, npyMagic...)
	out = append(out, npyVersionMaj, npyVersionMin)
	out = appendUint16(out, uint16(len(padded)))
	out = append(out, padded...)
	return out
}

// readNpyHeader reads and parses the magic, version, HEADER_LEN, and
// property string from r, returning the parsed header and the total number
// of header bytes consumed (spec §4.2).
func readNpyHeader(r io.Reader) (npyHeader, int, error) {
	magic := make([]byte, len(npyMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return npyHeader{}, 0, headerErr("magic", err)
	}
	if string(magic) != npyMagic {
		return npyHeader{}, 0, fmt.Errorf("%w: bad magic %x", ErrMalformedHeader, magic)
	}

	var ver [2]byte
	if _, err := io.ReadFull(r, ver[:]); err != nil {
		return npyHeader{}, 0, headerErr("version", err)
	}
	if ver[0] != npyVersionMaj || ver[1] != npyVersionMin {
		return npyHeader{}, 0, fmt.Errorf("%w: unsupported version %d.%d (only 1.0 is supported)",
			ErrMalformedHeader, ver[0], ver[1])
	}

	lenBuf := make([]byte, 2)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return npyHeader{}, 0, headerErr("header length", err)
	}
	headerLen, err := readUint16(lenBuf)
	if err != nil {
		return npyHeader{}, 0, headerErr("header length", err)
	}

	propBuf := make([]byte, headerLen)
	if _, err := io.ReadFull(r, propBuf); err != nil {
		return npyHeader{}, 0, headerErr("property string", err)
	}

	hdr, err := parsePropertyString(string(propBuf))
	if err != nil {
		return npyHeader{}, 0, err
	}

	return hdr, headerPreambleLen + int(headerLen), nil
}

var (
	reDescr   = regexp.MustCompile(`'descr':\s*'([^']*)'`)
	reFortran = regexp.MustCompile(`'fortran_order':\s*(True|False)`)
	reShape   = regexp.MustCompile(`'shape':\s*\(([^)]*)\)`)
)

// parsePropertyString parses the npy property dictionary per spec §4.2
// "Parsing": locate descr/fortran_order/shape substrings independently
// rather than a full dict parse, matching datumbrain-npy/npy.go and
// gocnn-gonpy/npy.go's regexp-based approach.
func parsePropertyString(s string) (npyHeader, error) {
	descrMatch := reDescr.FindStringSubmatch(s)
	if descrMatch == nil {
		return npyHeader{}, fmt.Errorf("%w: no descr in header %q", ErrMalformedHeader, s)
	}
	descr, err := parseDescr(descrMatch[1])
	if err != nil {
		return npyHeader{}, err
	}

	fortranMatch := reFortran.FindStringSubmatch(s)
	if fortranMatch == nil {
		return npyHeader{}, fmt.Errorf("%w: no fortran_order in header %q", ErrMalformedHeader, s)
	}
	fortran := fortranMatch[1] == "True"

	shapeMatch := reShape.FindStringSubmatch(s)
	if shapeMatch == nil {
		return npyHeader{}, fmt.Errorf("%w: no shape in header %q", ErrMalformedHeader, s)
	}
	shape, err := parseShapeTokens(shapeMatch[1])
	if err != nil {
		return npyHeader{}, err
	}

	if fortran {
		return npyHeader{}, fmt.Errorf("%w: fortran_order=True is not supported", ErrUnsupportedLayout)
	}

	return npyHeader{Descr: descr, FortranOrder: fortran, Shape: shape}, nil
}

// VerifyNpy checks that the .npy file at path has a parsable header and
// that its payload is exactly as long as the header's shape and dtype
// require — neither truncated nor trailing garbage.
func VerifyNpy(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIoUnavailable, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIoUnavailable, err)
	}
	defer f.Close()

	hdr, headerLen, err := readNpyHeader(f)
	if err != nil {
		return err
	}

	want := int64(headerLen) + int64(elementCount(hdr.Shape)*hdr.Descr.Size)
	if info.Size() != want {
		return fmt.Errorf("%w: %q is %d bytes, header shape %v needs %d",
			ErrCorruptArchive, path, info.Size(), hdr.Shape, want)
	}
	return nil
}

// Inspect reads an .npy file's header at path and reports its dtype and
// shape without decoding any payload bytes, mirroring the non-generic
// ParseNpyHeader(FILE*, ...) overload in
// original_source/Npy++/Npy++.h, which also reports only wordSize, shape,
// and fortranOrder without materializing the array.
func Inspect(path string) (TypeDescriptor, []int, error) {
	f, err := os.Open(path)
	if err != nil {
		return TypeDescriptor{}, nil, fmt.Errorf("%w: %w", ErrIoUnavailable, err)
	}
	defer f.Close()

	hdr, _, err := readNpyHeader(f)
	if err != nil {
		return TypeDescriptor{}, nil, err
	}
	return hdr.Descr, hdr.Shape, nil
}

// parseShapeTokens parses a comma-separated decimal shape token list,
// absorbing the possibly-empty final token the trailing ", " produces
// (spec §4.2 "Parsing").
func parseShapeTokens(s string) ([]int, error) {
	if trimSpace(s) == "" {
		return []int{}, nil
	}

	parts := strings.Split(s, ",")
	shape := make([]int, 0, len(parts))
	for _, p := range parts {
		if trimSpace(p) == "" {
			continue
		}
		d, err := parseDecimal(p)
		if err != nil {
			return nil, fmt.Errorf("%w: shape token %q: %w", ErrMalformedHeader, p, err)
		}
		shape = append(shape, d)
	}
	return shape, nil
}
