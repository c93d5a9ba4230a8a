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

// Package npy reads and writes NumPy's on-disk array formats: the
// single-array ".npy" format (version 1.0) and the multi-array ZIP-wrapped
// ".npz" format. It lets native Go applications interchange typed,
// shape-annotated N-dimensional arrays with the NumPy ecosystem without
// depending on that ecosystem's runtime.
//
// Supported element types are bool, (u)int{8,16,32,64}, float{32,64}, and
// complex{64,128}. Structured (record) dtypes, object arrays, Fortran-order
// writes, and npy format versions 2.0/3.0 are not supported.
//
// Unless otherwise informed, clients should not assume implementations in
// this package are safe for parallel execution on the same file or
// MappedWindow. Distinct files may be processed concurrently by independent
// goroutines.
package npy

const (
	npyMagic      = "\x93NUMPY"
	npyVersionMaj = 1
	npyVersionMin = 0
	npySuffix     = ".npy"
	npzSuffix     = ".npz"

	// headerPreambleLen is magic(6) + version(2) + HEADER_LEN(2).
	headerPreambleLen = 10

	// headerAlignment is the modulus that (preamble + property string)
	// length must satisfy.
	headerAlignment = 16
)

// Mode selects whether Save creates/truncates a file or appends to an
// existing one. ModeRead and ModeNull round out the enumeration for
// symmetry with the package's file-open vocabulary even though only
// ModeWrite and ModeAppend are valid arguments to Save.
type Mode int

const (
	// ModeNull is the zero value and is never a valid argument to Save.
	ModeNull Mode = iota

	// ModeRead is accepted for API symmetry but is not a valid argument to
	// Save; reading uses Load/LoadFull instead.
	ModeRead

	// ModeWrite creates or truncates the destination before writing.
	ModeWrite

	// ModeAppend opens an existing npy file and grows its leading
	// dimension.
	ModeAppend
)

// String returns the single-letter mode token ("r", "w", "a").
func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "r"
	case ModeWrite:
		return "w"
	case ModeAppend:
		return "a"
	default:
		return "?"
	}
}
