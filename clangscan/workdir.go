// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package clangscan

// WorkingDirectory returns the working directory for the scan.
//
// The last -working-directory in args wins. If args don't have it,
// it returns getwd's result.
func WorkingDirectory(args []string, getwd func() (string, error)) (string, error) {
	for i := len(args) - 1; i >= 0; i-- {
		if args[i] != "-working-directory" {
			continue
		}
		if i == len(args)-1 {
			return "", ErrMissingWorkingDirectory
		}
		return args[i+1], nil
	}
	return getwd()
}
