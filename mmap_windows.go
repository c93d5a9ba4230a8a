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

//go:build windows

package npy

import (
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

// windowsBacking is the mappedBacking implementation backed by
// CreateFileMapping/MapViewOfFile, mirroring the role
// original_source/MemoryMapping/MemoryMappedFile.h's _MSC_VER branch plays
// in the C++ original. CacheHint has no Windows equivalent to
// madvise(2); adviseHint is a no-op here.
type windowsBacking struct {
	handle windows.Handle
	addr   uintptr
	data   []byte
}

func mapFile(f *os.File, mode Mode, length int64) (mappedBacking, error) {
	return mapFileAt(f, mode, 0, length)
}

func mapFileAt(f *os.File, mode Mode, offset int64, length int64) (mappedBacking, error) {
	protect := uint32(windows.PAGE_READONLY)
	access := uint32(windows.FILE_MAP_READ)
	if mode == ModeWrite {
		protect = windows.PAGE_READWRITE
		access = windows.FILE_MAP_WRITE
	}

	mapEnd := uint64(offset + length)
	handle, err := windows.CreateFileMapping(windows.Handle(f.Fd()), nil, protect, uint32(mapEnd>>32), uint32(mapEnd), nil)
	if err != nil {
		return nil, err
	}

	addr, err := windows.MapViewOfFile(handle, access, uint32(uint64(offset)>>32), uint32(uint64(offset)), uintptr(length))
	if err != nil {
		windows.CloseHandle(handle)
		return nil, err
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(length))
	return &windowsBacking{handle: handle, addr: addr, data: data}, nil
}

func (b *windowsBacking) bytes() []byte {
	return b.data
}

// adviseHint is a no-op: Windows has no per-mapping MADV_SEQUENTIAL
// equivalent exposed by golang.org/x/sys/windows.
func (b *windowsBacking) adviseHint(hint CacheHint) {}

func (b *windowsBacking) unmap() error {
	if b.addr == 0 {
		return nil
	}
	err := windows.UnmapViewOfFile(b.addr)
	b.addr = 0
	b.data = nil
	if cerr := windows.CloseHandle(b.handle); err == nil {
		err = cerr
	}
	return err
}
