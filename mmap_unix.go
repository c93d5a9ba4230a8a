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

//go:build unix

package npy

import (
	"os"

	"golang.org/x/sys/unix"
)

// unixBacking is the mappedBacking implementation for Linux/BSD/Darwin,
// grounded on the golang.org/x/sys/unix.Mmap idiom used in
// other_examples/031b72b6_marmos91-dittofs__pkg-wal-mmap.go.go.
type unixBacking struct {
	data []byte
}

func mapFile(f *os.File, mode Mode, length int64) (mappedBacking, error) {
	return mapFileAt(f, mode, 0, length)
}

func mapFileAt(f *os.File, mode Mode, offset int64, length int64) (mappedBacking, error) {
	prot := unix.PROT_READ
	if mode == ModeWrite {
		prot |= unix.PROT_WRITE
	}
	data, err := unix.Mmap(int(f.Fd()), offset, int(length), prot, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	return &unixBacking{data: data}, nil
}

func (b *unixBacking) bytes() []byte {
	return b.data
}

func (b *unixBacking) adviseHint(hint CacheHint) {
	var advice int
	switch hint {
	case CacheSequential:
		advice = unix.MADV_SEQUENTIAL
	case CacheRandom:
		advice = unix.MADV_RANDOM
	default:
		advice = unix.MADV_NORMAL
	}
	// Advisory only: a failure here does not affect correctness.
	_ = unix.Madvise(b.data, advice)
}

func (b *unixBacking) unmap() error {
	if b.data == nil {
		return nil
	}
	err := unix.Munmap(b.data)
	b.data = nil
	return err
}
