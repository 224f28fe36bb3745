// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package clangscan

import (
	"fmt"
	"slices"
	"strings"
)

// SourceFilePlaceholder is the input placeholder in host driver args.
const SourceFilePlaceholder = "<swift-imported-modules>"

// ScanInvocationArgs returns clang driver arguments to scan dependencies
// of a foreign module, or of sourceFile if it is not empty.
// hc.DriverArgs starts with the clang executable.
//
// It returns ErrContractViolation if the host driver args don't have
// the placeholder, the "-Xclang -fmodule-format=..." pair or
// -fsyntax-only.
func ScanInvocationArgs(hc *HostContext, sourceFile string) ([]string, error) {
	args := slices.Clone(hc.DriverArgs)
	for _, fp := range hc.FrameworkSearchPaths {
		if fp.IsSystem {
			args = append(args, "-iframework", fp.Path)
			continue
		}
		args = append(args, "-F", fp.Path)
	}
	for _, p := range hc.ImportSearchPaths {
		args = append(args, "-I", p)
	}
	for _, m := range hc.ScannerPrefixMap {
		args = append(args, "-fdepscan-prefix-map="+m)
	}

	i := slices.Index(args, SourceFilePlaceholder)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s not in driver args", ErrContractViolation, SourceFilePlaceholder)
	}
	if sourceFile == "" {
		args = slices.Delete(args, i, i+1)
	} else {
		args[i] = sourceFile
	}

	// The scanner produces the module format itself.
	i = slices.IndexFunc(args, func(arg string) bool {
		return strings.HasPrefix(arg, "-fmodule-format=")
	})
	if i < 0 {
		return nil, fmt.Errorf("%w: -fmodule-format= not in driver args", ErrContractViolation)
	}
	if i == 0 || args[i-1] != "-Xclang" {
		return nil, fmt.Errorf("%w: %s is not preceded by -Xclang", ErrContractViolation, args[i])
	}
	args = slices.Delete(args, i-1, i+1)

	// Scan as a compile job.
	i = slices.Index(args, "-fsyntax-only")
	if i < 0 {
		return nil, fmt.Errorf("%w: -fsyntax-only not in driver args", ErrContractViolation)
	}
	args[i] = "-c"

	// Ensure that the module format of the scan matches the host
	// importer's.
	args = append(args, "-gmodules")
	return args, nil
}
