// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package scandeps runs clang-scan-deps as a clang dependency scanning
// tool.
//
// It runs
//
//	clang-scan-deps -format experimental-full [-module-name=<name>] -- <clang args>
//
// in the scan's working directory, and decodes the JSON output.
//
// clang-scan-deps doesn't know the output paths used by the host, so
// the output paths in module command lines (-o, -dependency-file,
// -serialize-diagnostic-file, -MT and -fmodule-file=<name>=<path>) are
// replaced with the paths given by the lookup function.
package scandeps
