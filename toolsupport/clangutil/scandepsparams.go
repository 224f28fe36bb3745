// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package clangutil

import (
	"path/filepath"
	"strings"
)

// ScanDepsParams are search paths and sources found in a clang driver
// command line.
type ScanDepsParams struct {
	// Sources are input source or header files.
	Sources []string

	// Dirs are include directories (-I, -isystem, -iquote).
	Dirs []string

	// Frameworks are framework directories (-F, -iframework).
	Frameworks []string

	// Sysroots are --sysroot / -isysroot directories.
	Sysroots []string

	// Overlays are VFS overlay files (-ivfsoverlay).
	Overlays []string
}

// ExtractScanDepsParams parses clang driver args and returns search paths
// and sources.
// It only parses major command line flags.
// full set of command line flags for include dirs can be found in
// https://clang.llvm.org/docs/ClangCommandLineReference.html#include-path-management
func ExtractScanDepsParams(args []string) ScanDepsParams {
	var p ScanDepsParams
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-I", "--include-directory", "-isystem", "-iquote":
			if i+1 < len(args) {
				i++
				p.Dirs = append(p.Dirs, args[i])
			}
			continue
		case "-F", "-iframework":
			if i+1 < len(args) {
				i++
				p.Frameworks = append(p.Frameworks, args[i])
			}
			continue
		case "-isysroot":
			if i+1 < len(args) {
				i++
				p.Sysroots = append(p.Sysroots, args[i])
			}
			continue
		case "-ivfsoverlay":
			if i+1 < len(args) {
				i++
				p.Overlays = append(p.Overlays, args[i])
			}
			continue
		case "-o", "-x", "-working-directory", "-MF", "-MT", "-target":
			// skip value.
			i++
			continue
		}
		switch {
		case strings.HasPrefix(arg, "-I"):
			p.Dirs = append(p.Dirs, strings.TrimPrefix(arg, "-I"))
		case strings.HasPrefix(arg, "--include-directory="):
			p.Dirs = append(p.Dirs, strings.TrimPrefix(arg, "--include-directory="))
		case strings.HasPrefix(arg, "-iquote"):
			p.Dirs = append(p.Dirs, strings.TrimPrefix(arg, "-iquote"))
		case strings.HasPrefix(arg, "-isystem"):
			p.Dirs = append(p.Dirs, strings.TrimPrefix(arg, "-isystem"))
		case strings.HasPrefix(arg, "-iframework"):
			p.Frameworks = append(p.Frameworks, strings.TrimPrefix(arg, "-iframework"))
		case strings.HasPrefix(arg, "-F"):
			p.Frameworks = append(p.Frameworks, strings.TrimPrefix(arg, "-F"))
		case strings.HasPrefix(arg, "--sysroot="):
			p.Sysroots = append(p.Sysroots, strings.TrimPrefix(arg, "--sysroot="))

		case !strings.HasPrefix(arg, "-"):
			switch filepath.Ext(arg) {
			case ".c", ".cc", ".cxx", ".cpp", ".m", ".mm", ".h", ".hh", ".hpp", ".modulemap":
				p.Sources = append(p.Sources, arg)
			}
		}
	}
	return p
}
