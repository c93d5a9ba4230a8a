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
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMappedWindowWriteThenRead(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "window.bin")
	w, err := OpenMappedWindow(path, ModeWrite, CacheNormal, 16)
	if err != nil {
		t.Fatalf("OpenMappedWindow(ModeWrite) error: %v", err)
	}

	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if err := w.ReadFrom(payload); err != nil {
		t.Fatalf("ReadFrom() error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("os.ReadFile() error: %v", err)
	}
	if diff := cmp.Diff(payload, raw[:len(payload)]); diff != "" {
		t.Errorf("written bytes mismatch (-want +got):\n%s", diff)
	}

	r, err := OpenMappedWindow(path, ModeRead, CacheSequential, 0)
	if err != nil {
		t.Fatalf("OpenMappedWindow(ModeRead) error: %v", err)
	}
	defer r.Close()

	if diff := cmp.Diff(payload, r.Bytes()[:len(payload)]); diff != "" {
		t.Errorf("read bytes mismatch (-want +got):\n%s", diff)
	}
}

func TestMappedWindowReadLineAdvancesCursor(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "lines.txt")
	if err := os.WriteFile(path, []byte("first\nsecond\nthird"), 0o644); err != nil {
		t.Fatalf("os.WriteFile() error: %v", err)
	}

	w, err := OpenMappedWindow(path, ModeRead, CacheSequential, 0)
	if err != nil {
		t.Fatalf("OpenMappedWindow() error: %v", err)
	}
	defer w.Close()

	if got := w.ReadLine(256); got != "first" {
		t.Errorf("ReadLine() = %q, want %q", got, "first")
	}
	if got := w.ReadLine(256); got != "second" {
		t.Errorf("ReadLine() = %q, want %q", got, "second")
	}
	// No trailing newline on the last line; ReadLine still advances past it.
	if got := w.ReadLine(256); got != "third" {
		t.Errorf("ReadLine() = %q, want %q", got, "third")
	}
	if len(w.Bytes()) != 0 {
		t.Errorf("Bytes() after consuming all lines = %d bytes, want 0", len(w.Bytes()))
	}
}

func TestMappedWindowRewind(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data.bin")
	if err := os.WriteFile(path, []byte{1, 2, 3, 4}, 0o644); err != nil {
		t.Fatalf("os.WriteFile() error: %v", err)
	}

	w, err := OpenMappedWindow(path, ModeRead, CacheRandom, 0)
	if err != nil {
		t.Fatalf("OpenMappedWindow() error: %v", err)
	}
	defer w.Close()

	w.Advance(2)
	if len(w.Bytes()) != 2 {
		t.Fatalf("Bytes() after Advance(2) = %d bytes, want 2", len(w.Bytes()))
	}
	w.Rewind()
	if len(w.Bytes()) != 4 {
		t.Errorf("Bytes() after Rewind() = %d bytes, want 4", len(w.Bytes()))
	}
}

func TestCopyToAdvancesCursor(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ints.bin")
	raw := elemsToBytes([]int32{10, 20, 30})
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("os.WriteFile() error: %v", err)
	}

	w, err := OpenMappedWindow(path, ModeRead, CacheSequential, 0)
	if err != nil {
		t.Fatalf("OpenMappedWindow() error: %v", err)
	}
	defer w.Close()

	dst := make([]int32, 2)
	if err := CopyTo(w, dst, 2); err != nil {
		t.Fatalf("CopyTo() error: %v", err)
	}
	if diff := cmp.Diff([]int32{10, 20}, dst); diff != "" {
		t.Errorf("CopyTo mismatch (-want +got):\n%s", diff)
	}
	if len(w.Bytes()) != 4 {
		t.Errorf("Bytes() after CopyTo = %d bytes, want 4", len(w.Bytes()))
	}
}
