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
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestShapeString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		shape []int
		want  string
	}{
		{name: "scalar", shape: []int{}, want: "()"},
		{name: "rank 1", shape: []int{3}, want: "(3, )"},
		{name: "rank 2", shape: []int{3, 4}, want: "(3, 4, )"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := shapeString(tc.shape); got != tc.want {
				t.Errorf("shapeString(%v) = %q, want %q", tc.shape, got, tc.want)
			}
		})
	}
}

func TestPadHeaderAlignment(t *testing.T) {
	t.Parallel()

	for size := 0; size < 64; size++ {
		prop := string(make([]byte, size))
		padded := padHeader(prop)
		if (headerPreambleLen+len(padded))%headerAlignment != 0 {
			t.Errorf("padHeader(len=%d): total %d is not %d-aligned", size, headerPreambleLen+len(padded), headerAlignment)
		}
		if padded[len(padded)-1] != '\n' {
			t.Errorf("padHeader(len=%d): does not end in newline", size)
		}
	}
}

func TestBuildAndReadNpyHeaderRoundTrip(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		descr TypeDescriptor
		shape []int
	}{
		{name: "vector of float64", descr: TypeDescriptor{Kind: KindFloat, Size: 8, Endian: EndianLittle}, shape: []int{3}},
		{name: "matrix of int32", descr: TypeDescriptor{Kind: KindInt, Size: 4, Endian: EndianLittle}, shape: []int{2, 5}},
		{name: "scalar uint8", descr: TypeDescriptor{Kind: KindUint, Size: 1, Endian: EndianNA}, shape: []int{}},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			raw := buildNpyHeader(tc.descr, tc.shape)
			if len(raw)%headerAlignment != 0 {
				t.Errorf("header length %d is not %d-aligned", len(raw), headerAlignment)
			}

			hdr, n, err := readNpyHeader(bytes.NewReader(raw))
			if err != nil {
				t.Fatalf("readNpyHeader() error: %v", err)
			}
			if n != len(raw) {
				t.Errorf("readNpyHeader() consumed %d bytes, want %d", n, len(raw))
			}
			if diff := cmp.Diff(tc.descr, hdr.Descr); diff != "" {
				t.Errorf("Descr mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.shape, hdr.Shape); diff != "" {
				t.Errorf("Shape mismatch (-want +got):\n%s", diff)
			}
			if hdr.FortranOrder {
				t.Errorf("FortranOrder = true, want false")
			}
		})
	}
}

func TestReadNpyHeaderBadMagic(t *testing.T) {
	t.Parallel()

	raw := append([]byte("NOTNUMPY"), buildNpyHeader(TypeDescriptor{Kind: KindFloat, Size: 8, Endian: EndianLittle}, []int{1})[8:]...)
	_, _, err := readNpyHeader(bytes.NewReader(raw))
	if !errors.Is(err, ErrMalformedHeader) {
		t.Errorf("readNpyHeader() error = %v, want wrapping ErrMalformedHeader", err)
	}
}

func TestVerifyNpyMissingFileIsIoUnavailable(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "does-not-exist.npy")
	err := VerifyNpy(path)
	if !errors.Is(err, ErrIoUnavailable) {
		t.Errorf("VerifyNpy(missing file) error = %v, want wrapping ErrIoUnavailable", err)
	}
	if errors.Is(err, ErrMalformedHeader) {
		t.Errorf("VerifyNpy(missing file) error = %v, should not wrap ErrMalformedHeader", err)
	}
}

func TestInspectMissingFileIsIoUnavailable(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "does-not-exist.npy")
	_, _, err := Inspect(path)
	if !errors.Is(err, ErrIoUnavailable) {
		t.Errorf("Inspect(missing file) error = %v, want wrapping ErrIoUnavailable", err)
	}
}

func TestParsePropertyStringFortranOrderUnsupported(t *testing.T) {
	t.Parallel()

	_, err := parsePropertyString(`{'descr': '<f8', 'fortran_order': True, 'shape': (3, ), }`)
	if !errors.Is(err, ErrUnsupportedLayout) {
		t.Errorf("parsePropertyString() error = %v, want wrapping ErrUnsupportedLayout", err)
	}
}
