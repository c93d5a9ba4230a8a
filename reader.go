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
	"unsafe"
)

// Load reads a whole .npy file at path and returns just its data, discarding
// shape. It is LoadFull with the shape dropped, matching the convenience
// Load built atop LoadFull in original_source/Npy++/Npy++.h.
func Load[T Elem](path string, useMmap bool) ([]T, error) {
	arr, err := LoadFull[T](path, useMmap)
	if err != nil {
		return nil, err
	}
	return arr.Data, nil
}

// LoadFull reads a whole .npy file at path and decodes it as an array of T,
// preserving shape. When useMmap is true the file is memory-mapped and
// decoded through LoadFullWindow instead of being read into a []byte first.
func LoadFull[T Elem](path string, useMmap bool) (MultiDimArray[T], error) {
	if useMmap {
		w, err := OpenMappedWindow(path, ModeRead, CacheSequential, 0)
		if err != nil {
			return MultiDimArray[T]{}, err
		}
		defer w.Close()
		return LoadFullWindow[T](w)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return MultiDimArray[T]{}, fmt.Errorf("%w: %w", ErrIoUnavailable, err)
	}
	return decodeNpy[T](raw)
}

// LoadFullWindow reads the array currently under a MappedWindow's cursor,
// copying the data out into a freshly allocated slice (spec §4.3, §4.5).
// It does not require alignment or matching endianness: both a misaligned
// payload and a byte swap are handled by copying. A kind or size mismatch
// with T fails with ErrTypeMismatch.
func LoadFullWindow[T Elem](w *MappedWindow) (MultiDimArray[T], error) {
	return decodeNpy[T](w.Bytes())
}

// decodeNpy parses an npy header from raw and copies its payload into a
// fresh []T, swapping bytes if the stored endianness differs from host.
func decodeNpy[T Elem](raw []byte) (MultiDimArray[T], error) {
	r := bytes.NewReader(raw)
	hdr, headerLen, err := readNpyHeader(r)
	if err != nil {
		return MultiDimArray[T]{}, err
	}
	if err := checkDescriptor[T](hdr.Descr); err != nil {
		return MultiDimArray[T]{}, err
	}

	n := elementCount(hdr.Shape)
	payload := raw[headerLen:]
	want := n * hdr.Descr.Size
	if len(payload) < want {
		return MultiDimArray[T]{}, fmt.Errorf("%w: payload is %d bytes, header shape %v needs %d",
			ErrCorruptArchive, len(payload), hdr.Shape, want)
	}

	data := make([]T, n)
	if needsSwap(hdr.Descr.Endian) {
		swapped := make([]byte, want)
		copy(swapped, payload[:want])
		swapBytes(swapped, hdr.Descr.Size, hdr.Descr.Kind)
		copyElems(data, swapped)
	} else {
		copyElems(data, payload[:want])
	}

	return MultiDimArray[T]{Data: data, Shape: hdr.Shape}, nil
}

// LoadNoCopy returns a zero-copy view of the array under a MappedWindow's
// cursor: Data aliases the mapping's backing memory directly. It fails
// with ErrAlignmentHazard if the payload's start address is not aligned
// for T, or if the stored endianness would require a byte swap (spec §4.5
// "LoadNoCopy"). The returned array is only valid as long as the window
// stays mapped; writing through it mutates the file if the window is
// writable.
func LoadNoCopy[T Elem](w *MappedWindow) (MultiDimArray[T], error) {
	raw := w.Bytes()
	r := bytes.NewReader(raw)
	hdr, headerLen, err := readNpyHeader(r)
	if err != nil {
		return MultiDimArray[T]{}, err
	}
	if err := checkDescriptor[T](hdr.Descr); err != nil {
		return MultiDimArray[T]{}, err
	}
	if needsSwap(hdr.Descr.Endian) {
		return MultiDimArray[T]{}, fmt.Errorf("%w: stored data is %c, host is %c; zero-copy view would require a byte swap",
			ErrAlignmentHazard, hdr.Descr.Endian, hostEndian)
	}

	payload := raw[headerLen:]
	var zero T
	align := unsafe.Alignof(zero)
	if len(payload) == 0 {
		return MultiDimArray[T]{Data: nil, Shape: hdr.Shape}, nil
	}
	if uintptr(unsafe.Pointer(&payload[0]))%align != 0 {
		return MultiDimArray[T]{}, fmt.Errorf("%w: payload offset is not %d-byte aligned for %T",
			ErrAlignmentHazard, align, zero)
	}

	n := elementCount(hdr.Shape)
	want := n * hdr.Descr.Size
	if len(payload) < want {
		return MultiDimArray[T]{}, fmt.Errorf("%w: payload is %d bytes, header shape %v needs %d",
			ErrCorruptArchive, len(payload), hdr.Shape, want)
	}

	data := unsafe.Slice((*T)(unsafe.Pointer(&payload[0])), n)
	return MultiDimArray[T]{Data: data, Shape: hdr.Shape}, nil
}
