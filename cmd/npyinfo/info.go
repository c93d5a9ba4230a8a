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

package main

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rodaine/table"
	"github.com/urfave/cli/v2"

	"github.com/ianlewis/go-npy"
)

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "print the dtype, shape, and member layout of .npy/.npz files",
		ArgsUsage: "PATTERN...",
		Action: func(c *cli.Context) error {
			paths, err := expandGlobs(c.Args().Slice())
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("%w: no files matched", ErrNpyInfo)
			}

			tbl := table.New("file", "member", "dtype", "shape", "method")
			for _, path := range paths {
				if err := addInfoRows(tbl, path); err != nil {
					return err
				}
			}
			tbl.Print()
			return nil
		},
	}
}

// expandGlobs expands doublestar patterns (supporting "**") against the
// filesystem, deduplicating and preserving first-seen order.
func expandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: pattern %q: %w", ErrNpyInfo, pattern, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func addInfoRows(tbl table.Table, path string) error {
	if strings.HasSuffix(path, ".npz") {
		entries, err := npy.ListNpz(path)
		if err != nil {
			return fmt.Errorf("%w: %q: %w", ErrNpyInfo, path, err)
		}
		for _, e := range entries {
			tbl.AddRow(path, e.Name, e.Descr.String(), shapeCell(e.Shape), methodName(e.Method))
		}
		return nil
	}

	descr, shape, err := npy.Inspect(path)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrNpyInfo, path, err)
	}
	tbl.AddRow(path, "-", descr.String(), shapeCell(shape), "-")
	return nil
}

func shapeCell(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = fmt.Sprintf("%d", d)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func methodName(method uint16) string {
	switch method {
	case 0:
		return "stored"
	case 8:
		return "deflate"
	default:
		return fmt.Sprintf("method-%d", method)
	}
}
