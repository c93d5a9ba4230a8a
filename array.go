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
	"unsafe"
)

// MultiDimArray is a typed N-dimensional array value: a flat, C-order data
// buffer plus the shape that describes how to interpret it. It is
// immutable once constructed; decoders build it, callers consume it.
type MultiDimArray[T Elem] struct {
	Data  []T
	Shape []int
}

// NewMultiDimArray validates that len(data) == Π shape and returns the
// array. This is the Go-native reading of original_source/Npy++/Npy++.h's
// MultiDimensionalArray constructor, which asserted the same invariant
// implicitly through its callers.
func NewMultiDimArray[T Elem](data []T, shape []int) (MultiDimArray[T], error) {
	want := elementCount(shape)
	if len(data) != want {
		return MultiDimArray[T]{}, fmt.Errorf("%w: data length %d does not match shape %v (%d elements)",
			errNpy, len(data), shape, want)
	}
	return MultiDimArray[T]{Data: data, Shape: shape}, nil
}

// elementCount returns Π shape[i], or 1 for an empty (scalar) shape.
func elementCount(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// Vector builds a rank-1 MultiDimArray, fixing Shape to [len(data)]. It
// exists for call-site clarity (spec §4.6) and carries no behavior beyond
// the shape it fixes.
func Vector[T Elem](data []T) MultiDimArray[T] {
	return MultiDimArray[T]{Data: data, Shape: []int{len(data)}}
}

// Matrix builds a rank-2 MultiDimArray of shape [rows, cols].
func Matrix[T Elem](data []T, rows, cols int) (MultiDimArray[T], error) {
	return NewMultiDimArray(data, []int{rows, cols})
}

// Tensor builds a rank-3 MultiDimArray of shape [depth, rows, cols].
func Tensor[T Elem](data []T, depth, rows, cols int) (MultiDimArray[T], error) {
	return NewMultiDimArray(data, []int{depth, rows, cols})
}

// copyElems reinterprets src as a []T of len(dst) elements and copies it
// into dst. src must hold at least len(dst)*sizeof(T) bytes. This is the
// Go-generics substitute for the raw reinterpret_cast<T*> that
// original_source/MemoryMapping/MemoryMappedFile.h's Set/CopyTo perform.
func copyElems[T Elem](dst []T, src []byte) {
	if len(dst) == 0 {
		return
	}
	view := unsafe.Slice((*T)(unsafe.Pointer(&src[0])), len(dst))
	copy(dst, view)
}

// elemsToBytes reinterprets a []T as a []byte view over the same memory,
// without copying.
func elemsToBytes[T Elem](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	elemSize := int(unsafe.Sizeof(data[0]))
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*elemSize)
}
