// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package moduledeps provides the module dependency graph of a build:
// module identities, per-module build recipes and the cache that
// collects them while scanning.
//
// A record is created when a module is first reported by the scanner,
// updated when its bridging header dependencies are discovered or it
// becomes resolved, and is never removed during a build.
package moduledeps
