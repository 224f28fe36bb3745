// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package clangscan

import "errors"

var (
	// ErrContractViolation indicates that the host driver arguments or
	// the cache state don't satisfy what this package relies on.
	// It is a programming error in the caller, and must not be retried.
	ErrContractViolation = errors.New("dependency scan contract violation")

	// ErrRoundTrip indicates that clang rejected arguments reported by
	// its own dependency scanner.
	ErrRoundTrip = errors.New("clang argument round trip failed")

	// ErrMissingWorkingDirectory is returned when -working-directory
	// has no value.
	ErrMissingWorkingDirectory = errors.New("missing '-working-directory' argument")

	// ErrScan is returned when the dependency scanner failed.
	ErrScan = errors.New("clang dependency scan failed")

	// ErrModuleNotFound is returned when the scanner couldn't find
	// the requested module. It is not diagnosed, as other module
	// loaders may find the module.
	ErrModuleNotFound = errors.New("clang module not found")
)
