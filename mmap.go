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
	"os"
)

// CacheHint advises the OS how a MappedWindow will be accessed, mirroring
// original_source/MemoryMapping/MemoryMapEnumerators.h's CacheHint enum.
// It is fixed at Open time; Remap reapplies the same hint to the new
// mapping.
type CacheHint int

const (
	CacheNormal CacheHint = iota
	CacheSequential
	CacheRandom
)

// mappedBacking is the platform-specific half of a mapping: the raw bytes
// and the syscalls needed to create and release them. mmap_unix.go and
// mmap_windows.go each provide one implementation.
type mappedBacking interface {
	bytes() []byte
	adviseHint(hint CacheHint)
	unmap() error
}

// MappedWindow is a read-only or read-write view of a file backed by an OS
// memory mapping, translating
// original_source/MemoryMapping/MemoryMappedFile.h's template class into a
// single Go type parameterized by a runtime Mode and CacheHint instead of
// compile-time template arguments (spec §4.5).
type MappedWindow struct {
	file    *os.File
	backing mappedBacking
	mode    Mode
	hint    CacheHint

	origin []byte // the full mapped region, for Rewind
	cursor []byte // current position; always origin[k:]
}

// OpenMappedWindow opens path and maps it according to mode and hint. mode
// must be ModeRead or ModeWrite. ModeWrite creates the backing file if
// needed and truncates or extends it to size bytes before mapping it
// read-write; a zero size fails with ErrMappingFailed. ModeRead maps the
// whole existing file and does not use size.
func OpenMappedWindow(path string, mode Mode, hint CacheHint, size int64) (*MappedWindow, error) {
	if mode == ModeWrite && size == 0 {
		return nil, fmt.Errorf("%w: write-mode mapping needs a nonzero size", ErrMappingFailed)
	}

	var (
		f   *os.File
		err error
	)

	switch mode {
	case ModeRead:
		f, err = os.Open(path)
	case ModeWrite:
		f, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	default:
		return nil, fmt.Errorf("%w: mapped windows only support read or write mode, got %q", ErrMappingFailed, mode)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIoUnavailable, err)
	}

	mapLen := size
	if mode == ModeRead || mapLen == 0 {
		info, statErr := f.Stat()
		if statErr != nil {
			f.Close()
			return nil, fmt.Errorf("%w: %w", ErrIoUnavailable, statErr)
		}
		mapLen = info.Size()
	} else if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %w", ErrIoUnavailable, err)
	}

	backing, err := mapFile(f, mode, mapLen)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %w", ErrMappingFailed, err)
	}
	backing.adviseHint(hint)

	buf := backing.bytes()
	return &MappedWindow{
		file:    f,
		backing: backing,
		mode:    mode,
		hint:    hint,
		origin:  buf,
		cursor:  buf,
	}, nil
}

// Close unmaps the view and closes the underlying file.
func (w *MappedWindow) Close() error {
	if w.backing == nil {
		return nil
	}
	err := w.backing.unmap()
	w.backing = nil
	w.origin, w.cursor = nil, nil
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// IsValid reports whether the window is currently mapped.
func (w *MappedWindow) IsValid() bool {
	return w.backing != nil
}

// Size returns the length of the whole mapped region.
func (w *MappedWindow) Size() int {
	return len(w.origin)
}

// Bytes returns the bytes from the current cursor to the end of the
// mapping, without copying.
func (w *MappedWindow) Bytes() []byte {
	return w.cursor
}

// At returns the byte at the given absolute offset from the mapping's
// origin, without range checking, matching
// MemoryMappedFile::operator[] (spec §4.5).
func (w *MappedWindow) At(offset int) byte {
	return w.origin[offset]
}

// Advance moves the cursor forward n bytes.
func (w *MappedWindow) Advance(n int) {
	w.cursor = w.cursor[n:]
}

// Rewind resets the cursor to the start of the mapping.
func (w *MappedWindow) Rewind() {
	w.cursor = w.origin
}

// ReadLine reads up to maxChars bytes from the cursor, stopping at the
// first '\n', and advances the cursor past what it consumed. Both the
// match and the no-match case advance the cursor (spec §9 "cursor advance
// convention"; see DESIGN.md).
func (w *MappedWindow) ReadLine(maxChars int) string {
	limit := maxChars
	if limit > len(w.cursor) {
		limit = len(w.cursor)
	}
	for i := 0; i < limit; i++ {
		if w.cursor[i] == '\n' {
			line := string(w.cursor[:i])
			w.Advance(i + 1)
			return line
		}
	}
	line := string(w.cursor[:limit])
	w.Advance(limit)
	return line
}

// CopyTo copies n elements of T from the cursor into dst, byte-for-byte,
// and advances the cursor by n*sizeof(T). dst must have length >= n.
func CopyTo[T Elem](w *MappedWindow, dst []T, n int) error {
	elemSize := descriptorFor[T]().Size
	need := n * elemSize
	if need > len(w.cursor) {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrMappingFailed, need, len(w.cursor))
	}
	copyElems(dst[:n], w.cursor[:need])
	w.Advance(need)
	return nil
}

// ReadFrom writes data into the cursor position byte-for-byte and advances
// the cursor. The window must have been opened with ModeWrite.
func (w *MappedWindow) ReadFrom(data []byte) error {
	if w.mode != ModeWrite {
		return fmt.Errorf("%w: window is not writable", ErrMappingFailed)
	}
	if len(data) > len(w.cursor) {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrMappingFailed, len(data), len(w.cursor))
	}
	n := copy(w.cursor, data)
	w.Advance(n)
	return nil
}

// Remap releases the current mapping and re-maps the same file starting at
// offset for length bytes. offset must be a multiple of the OS page size
// (spec §4.5).
func (w *MappedWindow) Remap(offset int64, length int64) error {
	if err := w.backing.unmap(); err != nil {
		return fmt.Errorf("%w: %w", ErrMappingFailed, err)
	}
	backing, err := mapFileAt(w.file, w.mode, offset, length)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMappingFailed, err)
	}
	backing.adviseHint(w.hint)
	w.backing = backing
	w.origin = backing.bytes()
	w.cursor = w.origin
	return nil
}
