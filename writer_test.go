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
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSaveWriteThenLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "arr.npy")
	arr, err := NewMultiDimArray([]float64{1, 2, 3, 4, 5, 6}, []int{2, 3})
	if err != nil {
		t.Fatalf("NewMultiDimArray() error: %v", err)
	}

	if err := Save(path, arr, ModeWrite); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, err := LoadFull[float64](path, false)
	if err != nil {
		t.Fatalf("LoadFull() error: %v", err)
	}
	if diff := cmp.Diff(arr, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveAppendGrowsLeadingAxis(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "arr.npy")
	first, err := NewMultiDimArray([]int32{1, 2, 3}, []int{1, 3})
	if err != nil {
		t.Fatalf("NewMultiDimArray() error: %v", err)
	}
	if err := Save(path, first, ModeWrite); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	second, err := NewMultiDimArray([]int32{4, 5, 6}, []int{1, 3})
	if err != nil {
		t.Fatalf("NewMultiDimArray() error: %v", err)
	}
	if err := Save(path, second, ModeAppend); err != nil {
		t.Fatalf("Save(ModeAppend) error: %v", err)
	}

	got, err := LoadFull[int32](path, false)
	if err != nil {
		t.Fatalf("LoadFull() error: %v", err)
	}

	want, err := NewMultiDimArray([]int32{1, 2, 3, 4, 5, 6}, []int{2, 3})
	if err != nil {
		t.Fatalf("NewMultiDimArray() error: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("append round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveAppendRejectsMismatchedTrailingDims(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "arr.npy")
	first, err := NewMultiDimArray([]int32{1, 2, 3}, []int{1, 3})
	if err != nil {
		t.Fatalf("NewMultiDimArray() error: %v", err)
	}
	if err := Save(path, first, ModeWrite); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	bad, err := NewMultiDimArray([]int32{1, 2}, []int{1, 2})
	if err != nil {
		t.Fatalf("NewMultiDimArray() error: %v", err)
	}
	if err := Save(path, bad, ModeAppend); err == nil {
		t.Errorf("Save(ModeAppend) with mismatched trailing dims should fail")
	}
}

func TestEncodeNpyMagicAndVersion(t *testing.T) {
	t.Parallel()

	arr := Vector([]uint8{1, 2, 3})
	raw := encodeNpy(arr)

	if string(raw[:6]) != npyMagic {
		t.Errorf("magic = %q, want %q", raw[:6], npyMagic)
	}
	if raw[6] != npyVersionMaj || raw[7] != npyVersionMin {
		t.Errorf("version = %d.%d, want %d.%d", raw[6], raw[7], npyVersionMaj, npyVersionMin)
	}
}
