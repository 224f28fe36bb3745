// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package clangscan

import (
	"context"

	"go.chromium.org/infra/build/modbridge/moduledeps"
)

// LookupModuleOutput returns the path of the kind of output of a clang
// module.
type LookupModuleOutput func(id moduledeps.ModuleID, kind moduledeps.OutputKind) string

// ModuleDeps is a clang module reported by the dependency scanner.
type ModuleDeps struct {
	ID moduledeps.ModuleID

	// ClangModuleMapFile is the module map that defines the module.
	ClangModuleMapFile string

	FileDeps        []string
	ClangModuleDeps []moduledeps.ModuleID

	// BuildArguments is the clang -cc1 command line to build the module.
	BuildArguments []string

	CASFileSystemRootID string
	IncludeTreeID       string
}

// ModuleDepsGraph is clang modules discovered by one scan.
type ModuleDepsGraph []ModuleDeps

// Command is a clang command to build a translation unit.
type Command struct {
	Executable string
	Arguments  []string
}

// TranslationUnitDeps is the result of scanning a translation unit.
type TranslationUnitDeps struct {
	// ModuleGraph is clang modules that are not already seen.
	ModuleGraph ModuleDepsGraph

	FileDeps        []string
	ClangModuleDeps []moduledeps.ModuleID
	Commands        []Command

	IncludeTreeID       string
	CASFileSystemRootID string
}

// Tool is a clang dependency scanning tool.
// It must be safe for concurrent use.
type Tool interface {
	// GetModuleDependencies scans a clang module named moduleName.
	// Modules in alreadySeen are not reported.
	GetModuleDependencies(ctx context.Context, moduleName string, args []string, workingDir string, alreadySeen map[moduledeps.ModuleID]bool, lookup LookupModuleOutput) (ModuleDepsGraph, error)

	// GetTranslationUnitDependencies scans the translation unit given
	// in args.
	GetTranslationUnitDependencies(ctx context.Context, args []string, workingDir string, alreadySeen map[moduledeps.ModuleID]bool, lookup LookupModuleOutput) (*TranslationUnitDeps, error)
}
