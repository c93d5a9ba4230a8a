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
	"os"
	"path/filepath"
)

// Save writes arr to path as a v1.0 .npy file. mode selects between a
// fresh write (ModeWrite, the file is created or truncated) and an append
// (ModeAppend, arr's elements are appended to an existing array along its
// leading axis) — the two FileOpenMode cases original_source/Npy++/Npy++.h
// actually uses for writing (spec §4.3).
func Save[T Elem](path string, arr MultiDimArray[T], mode Mode) error {
	switch mode {
	case ModeWrite:
		return saveWrite(path, arr)
	case ModeAppend:
		return saveAppend(path, arr)
	default:
		return fmt.Errorf("%w: Save does not support mode %q", ErrUnsupportedLayout, mode)
	}
}

func saveWrite[T Elem](path string, arr MultiDimArray[T]) error {
	out := encodeNpy(arr)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrIoUnavailable, err)
	}
	return nil
}

// encodeNpy renders arr as a complete .npy byte stream: header followed by
// its raw, host-endian payload.
func encodeNpy[T Elem](arr MultiDimArray[T]) []byte {
	descr := descriptorFor[T]()
	header := buildNpyHeader(descr, arr.Shape)
	payload := elemsToBytes(arr.Data)
	out := make([]byte, 0, len(header)+len(payload))
	out = append(out, header...)
	out = append(out, payload...)
	return out
}

// saveAppend appends arr's elements to the existing array at path along
// its leading axis, matching original_source/Npy++/Npy++.h's Append
// semantics. If the recomputed header happens to pad to the same length
// as the old one, the header is rewritten in place and the new payload is
// appended directly; otherwise the whole file is rebuilt through a
// temporary file next to path and renamed over it (DESIGN.md "Open
// Question: header padding on Append" — this avoids both silently
// corrupting the payload and reserving speculative padding that would
// break byte parity with NumPy's own writer).
func saveAppend[T Elem](path string, arr MultiDimArray[T]) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIoUnavailable, err)
	}
	defer f.Close()

	hdr, oldHeaderLen, err := readNpyHeader(f)
	if err != nil {
		return err
	}
	if err := checkDescriptor[T](hdr.Descr); err != nil {
		return err
	}

	newShape, err := growLeadingAxis(hdr.Shape, arr.Shape)
	if err != nil {
		return err
	}

	newHeader := buildNpyHeader(hdr.Descr, newShape)
	payload := elemsToBytes(arr.Data)

	if len(newHeader) == oldHeaderLen {
		if _, err := f.WriteAt(newHeader, 0); err != nil {
			return fmt.Errorf("%w: rewriting header: %w", ErrIoUnavailable, err)
		}
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			return fmt.Errorf("%w: %w", ErrIoUnavailable, err)
		}
		if _, err := f.Write(payload); err != nil {
			return fmt.Errorf("%w: appending payload: %w", ErrIoUnavailable, err)
		}
		return nil
	}

	return relocateAppend(f, path, newHeader, payload)
}

// growLeadingAxis validates that add's trailing dimensions match old's and
// returns old with its leading dimension increased by add's leading
// dimension. A rank-0 (scalar) old shape cannot be grown.
func growLeadingAxis(old, add []int) ([]int, error) {
	if len(old) == 0 || len(old) != len(add) {
		return nil, fmt.Errorf("%w: cannot append shape %v to shape %v", ErrShapeMismatch, add, old)
	}
	for i := 1; i < len(old); i++ {
		if old[i] != add[i] {
			return nil, fmt.Errorf("%w: trailing dimensions of %v do not match %v", ErrShapeMismatch, add, old)
		}
	}
	grown := append([]int(nil), old...)
	grown[0] += add[0]
	return grown, nil
}

// relocateAppend rebuilds the whole file with newHeader and the
// concatenation of the existing payload and extraPayload, via a temp file
// in path's directory that is renamed over path on success.
func relocateAppend(f *os.File, path string, newHeader, extraPayload []byte) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %w", ErrIoUnavailable, err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIoUnavailable, err)
	}
	_, oldHeaderLen, err := readNpyHeader(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	oldPayload := raw[oldHeaderLen:]

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIoUnavailable, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(newHeader); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %w", ErrIoUnavailable, err)
	}
	if _, err := tmp.Write(oldPayload); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %w", ErrIoUnavailable, err)
	}
	if _, err := tmp.Write(extraPayload); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %w", ErrIoUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrIoUnavailable, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: %w", ErrIoUnavailable, err)
	}
	return nil
}

// SaveWindow writes arr into w starting at the cursor, as a complete .npy
// byte stream, for MappedWindow-backed writing (spec §4.5). w must have
// enough remaining space.
func SaveWindow[T Elem](w *MappedWindow, arr MultiDimArray[T]) error {
	return w.ReadFrom(encodeNpy(arr))
}
