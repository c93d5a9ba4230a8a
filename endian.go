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

import "unsafe"

// hostEndian is the Endian code for this machine's native byte order,
// detected the same way as original_source/Npy++/Npy++.cpp:IsBigEndian:
// inspect the first byte of a 32-bit integer with a known bit pattern.
var hostEndian = detectHostEndian()

func detectHostEndian() Endian {
	var u uint32 = 0x01020304
	b := (*[4]byte)(unsafe.Pointer(&u))
	if b[0] == 1 {
		return EndianBig
	}
	return EndianLittle
}

// needsSwap reports whether data stored with descriptor endian e must be
// byte-swapped to be read as host-native. '|' (not applicable) never
// swaps, matching single-byte kinds which never swap either.
func needsSwap(e Endian) bool {
	switch e {
	case EndianNA:
		return false
	case hostEndian:
		return false
	default:
		return true
	}
}

// swapBytes reverses an element of size_bytes in place. Complex elements
// are two independent sub-words (real, imag) of size_bytes/2 each; each
// half is reversed on its own, not the element as a whole (spec §4.7).
func swapBytes(buf []byte, elemSize int, kind Kind) {
	n := len(buf)
	if kind == KindComplex {
		half := elemSize / 2
		for i := 0; i < n; i += elemSize {
			reverse(buf[i : i+half])
			reverse(buf[i+half : i+elemSize])
		}
		return
	}
	for i := 0; i < n; i += elemSize {
		reverse(buf[i : i+elemSize])
	}
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
