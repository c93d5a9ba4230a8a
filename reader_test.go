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
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func otherEndian() Endian {
	if hostEndian == EndianLittle {
		return EndianBig
	}
	return EndianLittle
}

func TestLoadTypeMismatch(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "arr.npy")
	arr := Vector([]float64{1, 2, 3})
	if err := Save(path, arr, ModeWrite); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	_, err := Load[int32](path, false)
	if !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Load[int32]() error = %v, want wrapping ErrTypeMismatch", err)
	}
}

// swappedNpyFile writes a single-float64 .npy file whose descriptor
// endianness is the opposite of the host, with payload bytes laid out to
// match — so a correct reader must byte-swap to recover the value.
func swappedNpyFile(t *testing.T, path string, value float64) {
	t.Helper()

	hostBytes := elemsToBytes([]float64{value})
	swapped := append([]byte(nil), hostBytes...)
	reverse(swapped)

	header := buildNpyHeader(TypeDescriptor{Kind: KindFloat, Size: 8, Endian: otherEndian()}, []int{1})
	raw := append(header, swapped...)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("os.WriteFile() error: %v", err)
	}
}

func TestLoadByteSwappedData(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "arr.npy")
	swappedNpyFile(t, path, 1.0)

	got, err := Load[float64](path, false)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff([]float64{1.0}, got); diff != "" {
		t.Errorf("byte-swapped load mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadNoCopyRejectsByteSwap(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "arr.npy")
	swappedNpyFile(t, path, 1.0)

	w, err := OpenMappedWindow(path, ModeRead, CacheSequential, 0)
	if err != nil {
		t.Fatalf("OpenMappedWindow() error: %v", err)
	}
	defer w.Close()

	_, err = LoadNoCopy[float64](w)
	if !errors.Is(err, ErrAlignmentHazard) {
		t.Errorf("LoadNoCopy() error = %v, want wrapping ErrAlignmentHazard", err)
	}
}

func TestLoadNoCopyZeroCopyRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "arr.npy")
	arr := Vector([]float64{1, 2, 3, 4})
	if err := Save(path, arr, ModeWrite); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	w, err := OpenMappedWindow(path, ModeRead, CacheSequential, 0)
	if err != nil {
		t.Fatalf("OpenMappedWindow() error: %v", err)
	}
	defer w.Close()

	got, err := LoadNoCopy[float64](w)
	if err != nil {
		t.Fatalf("LoadNoCopy() error: %v", err)
	}
	if diff := cmp.Diff(arr.Data, got.Data); diff != "" {
		t.Errorf("LoadNoCopy mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFullWindowOverMappedWindow(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "arr.npy")
	arr, err := NewMultiDimArray([]int32{1, 2, 3, 4, 5, 6}, []int{2, 3})
	if err != nil {
		t.Fatalf("NewMultiDimArray() error: %v", err)
	}
	if err := Save(path, arr, ModeWrite); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	w, err := OpenMappedWindow(path, ModeRead, CacheRandom, 0)
	if err != nil {
		t.Fatalf("OpenMappedWindow() error: %v", err)
	}
	defer w.Close()

	got, err := LoadFullWindow[int32](w)
	if err != nil {
		t.Fatalf("LoadFullWindow() error: %v", err)
	}
	if diff := cmp.Diff(arr, got); diff != "" {
		t.Errorf("LoadFullWindow mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFullPathWithAndWithoutMmap(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "arr.npy")
	arr, err := NewMultiDimArray([]int32{1, 2, 3, 4, 5, 6}, []int{2, 3})
	if err != nil {
		t.Fatalf("NewMultiDimArray() error: %v", err)
	}
	if err := Save(path, arr, ModeWrite); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, err := LoadFull[int32](path, false)
	if err != nil {
		t.Fatalf("LoadFull(useMmap=false) error: %v", err)
	}
	if diff := cmp.Diff(arr, got); diff != "" {
		t.Errorf("LoadFull(useMmap=false) mismatch (-want +got):\n%s", diff)
	}

	gotMapped, err := LoadFull[int32](path, true)
	if err != nil {
		t.Fatalf("LoadFull(useMmap=true) error: %v", err)
	}
	if diff := cmp.Diff(arr, gotMapped); diff != "" {
		t.Errorf("LoadFull(useMmap=true) mismatch (-want +got):\n%s", diff)
	}
}
