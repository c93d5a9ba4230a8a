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

	"github.com/urfave/cli/v2"

	"github.com/ianlewis/go-npy"
)

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "check .npy/.npz files for truncation and CRC mismatches",
		ArgsUsage: "PATTERN...",
		Action: func(c *cli.Context) error {
			paths, err := expandGlobs(c.Args().Slice())
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("%w: no files matched", ErrNpyInfo)
			}

			var failures []string
			for _, path := range paths {
				if err := verifyOne(path); err != nil {
					failures = append(failures, err.Error())
					continue
				}
				fmt.Fprintf(c.App.Writer, "%s: OK\n", path)
			}

			if len(failures) > 0 {
				for _, f := range failures {
					fmt.Fprintf(c.App.ErrWriter, "%s\n", f)
				}
				return fmt.Errorf("%w: %d of %d files failed verification", ErrVerifyFailed, len(failures), len(paths))
			}
			return nil
		},
	}
}

func verifyOne(path string) error {
	if strings.HasSuffix(path, ".npz") {
		if err := npy.VerifyNpz(path); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return nil
	}
	if err := npy.VerifyNpy(path); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
