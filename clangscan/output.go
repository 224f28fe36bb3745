// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package clangscan

import (
	"path/filepath"

	"go.chromium.org/infra/build/modbridge/moduledeps"
)

var outputExt = map[moduledeps.OutputKind]string{
	moduledeps.ModuleFile:                  ".pcm",
	moduledeps.DependencyFile:              ".d",
	moduledeps.DiagnosticSerializationFile: ".dia",
}

// OutputPath returns the path of the kind of output of the foreign
// module id, placed in root.
//
// For DependencyTargets, it returns the build-system target name of
// the module, "Name-Hash".
func OutputPath(id moduledeps.ModuleID, kind moduledeps.OutputKind, root string) string {
	if kind == moduledeps.DependencyTargets {
		return id.String()
	}
	return filepath.Join(root, id.String()+outputExt[kind])
}

// LookupFunc returns LookupModuleOutput that places outputs in root.
func LookupFunc(root string) LookupModuleOutput {
	return func(id moduledeps.ModuleID, kind moduledeps.OutputKind) string {
		return OutputPath(id, kind, root)
	}
}
