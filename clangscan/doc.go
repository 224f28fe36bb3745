// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package clangscan bridges the clang dependency scanner into the host
// compiler's module dependency graph.
//
// For a foreign module, or for the bridging header of a host module, it
// builds the clang command line used for dependency scanning, runs the
// scanner and translates each reported clang module into a
// moduledeps.Info whose command line builds the module with the host
// frontend:
//
//	-frontend -emit-pcm -module-name A -o <cache>/A-<hash>.pcm
//	  -direct-clang-cc1-module-build <modulemap> -Xcc <cc1 arg>...
//
// clang arguments reported by the scanner are round-tripped through
// toolsupport/clangutil to drop cache keys and prefix mappings, which are
// computed by the host.
package clangscan
