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
	"encoding/binary"
	"fmt"
	"strconv"
)

// appendUint16 appends v to out in little-endian order.
func appendUint16(out []byte, v uint16) []byte {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	return append(out, buf[:]...)
}

// appendUint32 appends v to out in little-endian order.
func appendUint32(out []byte, v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return append(out, buf[:]...)
}

// readUint16 reads a little-endian uint16 at the start of b.
func readUint16(b []byte) (uint16, error) {
	if len(b) < 2 {
		return 0, fmt.Errorf("%w: need 2 bytes, have %d", ErrMalformedHeader, len(b))
	}
	return binary.LittleEndian.Uint16(b), nil
}

// readUint32 reads a little-endian uint32 at the start of b.
func readUint32(b []byte) (uint32, error) {
	if len(b) < 4 {
		return 0, fmt.Errorf("%w: need 4 bytes, have %d", ErrMalformedHeader, len(b))
	}
	return binary.LittleEndian.Uint32(b), nil
}

// parseDecimal parses a non-negative decimal integer after trimming
// surrounding ASCII spaces. An empty token is an error; parseShapeTokens
// skips the possibly-empty trailing token the npy shape grammar produces
// (spec §4.2 "Parsing") before calling it.
func parseDecimal(s string) (int, error) {
	n, err := strconv.Atoi(trimSpace(s))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative value %d", n)
	}
	return n, nil
}

// trimSpace trims ASCII spaces only; header text is always ASCII.
func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && s[start] == ' ' {
		start++
	}
	for end > start && s[end-1] == ' ' {
		end--
	}
	return s[start:end]
}
