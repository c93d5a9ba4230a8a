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
	"errors"
	"fmt"
)

// errNpy is the base error for all go-npy errors.
var errNpy = errors.New("npy")

var (
	// ErrMalformedHeader indicates the npy magic, version, or property
	// string could not be parsed.
	ErrMalformedHeader = fmt.Errorf("%w: malformed header", errNpy)

	// ErrUnsupportedLayout indicates fortran_order=True or an unrecognized
	// descriptor kind.
	ErrUnsupportedLayout = fmt.Errorf("%w: unsupported layout", errNpy)

	// ErrTypeMismatch indicates the requested element type's kind or size
	// disagrees with the stored descriptor.
	ErrTypeMismatch = fmt.Errorf("%w: type mismatch", errNpy)

	// ErrShapeMismatch indicates an Append whose trailing dimensions
	// differ from the existing array's.
	ErrShapeMismatch = fmt.Errorf("%w: shape mismatch", errNpy)

	// ErrCorruptArchive indicates a ZIP signature mismatch, CRC failure,
	// truncated record, or an unsupported ZIP64 record.
	ErrCorruptArchive = fmt.Errorf("%w: corrupt archive", errNpy)

	// ErrDecompressionFailed indicates the inflate collaborator failed.
	ErrDecompressionFailed = fmt.Errorf("%w: decompression failed", errNpy)

	// ErrAlignmentHazard indicates a zero-copy load request cannot be
	// honored for the requested element type at the mapped offset.
	ErrAlignmentHazard = fmt.Errorf("%w: alignment hazard", errNpy)

	// ErrMappingFailed indicates the memory mapping syscall failed, a
	// write-mode mapping was requested with bytes=0, a window was opened
	// with a mode other than ModeRead/ModeWrite, or a MappedWindow
	// operation (CopyTo, ReadFrom) ran past the mapped bytes or wrote to a
	// window that is not writable.
	ErrMappingFailed = fmt.Errorf("%w: mapping failed", errNpy)

	// ErrIoUnavailable wraps an OS-boundary failure: open, read, write,
	// seek, or stat. The underlying error (e.g. os.ErrNotExist,
	// os.ErrPermission) stays in the chain, so errors.Is against it still
	// works through this sentinel.
	ErrIoUnavailable = fmt.Errorf("%w: I/O unavailable", errNpy)
)

// headerErr wraps err as a malformed-header error, preserving err in the
// chain so callers can still test for io.ErrUnexpectedEOF etc.
func headerErr(context string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrMalformedHeader, context, err)
}
