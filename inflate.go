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
	"io"

	"github.com/klauspost/compress/flate"
)

// inflateEntry decompresses a raw DEFLATE stream (ZIP method 8) down to
// uncompressedSize bytes. This package never writes method-8 entries
// itself (original_source/Npy++/Npy++.h's SaveCompressed only ever stores
// method 0, despite the name), but real-world .npz files produced by
// numpy.savez_compressed use it, so reading must cope with it.
func inflateEntry(compressed []byte, uncompressedSize int) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(compressed))
	defer r.Close()

	out := make([]byte, uncompressedSize)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("%w: inflating entry: %w", ErrDecompressionFailed, err)
	}
	return out, nil
}
