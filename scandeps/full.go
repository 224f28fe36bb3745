// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scandeps

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"go.chromium.org/infra/build/modbridge/clangscan"
	"go.chromium.org/infra/build/modbridge/moduledeps"
)

// fullOutput is the output of clang-scan-deps -format experimental-full.
type fullOutput struct {
	Modules          []fullModule          `json:"modules"`
	TranslationUnits []fullTranslationUnit `json:"translation-units"`
}

type fullModule struct {
	Name                string                `json:"name"`
	ContextHash         string                `json:"context-hash"`
	ClangModuleMapFile  string                `json:"clang-modulemap-file"`
	ClangModuleDeps     []moduledeps.ModuleID `json:"clang-module-deps"`
	CommandLine         []string              `json:"command-line"`
	FileDeps            []string              `json:"file-deps"`
	CASFileSystemRootID string                `json:"cas-fs-root-id"`
	IncludeTreeID       string                `json:"cas-include-tree-id"`
}

func (m fullModule) id() moduledeps.ModuleID {
	return moduledeps.ModuleID{Name: m.Name, ContextHash: m.ContextHash}
}

type fullTranslationUnit struct {
	Commands []fullCommand `json:"commands"`
}

type fullCommand struct {
	Executable          string                `json:"executable"`
	CommandLine         []string              `json:"command-line"`
	FileDeps            []string              `json:"file-deps"`
	ClangModuleDeps     []moduledeps.ModuleID `json:"clang-module-deps"`
	InputFile           string                `json:"input-file"`
	CASFileSystemRootID string                `json:"cas-fs-root-id"`
	IncludeTreeID       string                `json:"cas-include-tree-id"`
}

func decode(buf []byte) (*fullOutput, error) {
	var out fullOutput
	err := json.Unmarshal(buf, &out)
	if err != nil {
		return nil, fmt.Errorf("failed to decode clang-scan-deps output: %w", err)
	}
	return &out, nil
}

func (out *fullOutput) moduleGraph(alreadySeen map[moduledeps.ModuleID]bool, lookup clangscan.LookupModuleOutput) clangscan.ModuleDepsGraph {
	var graph clangscan.ModuleDepsGraph
	for _, m := range out.Modules {
		if alreadySeen[m.id()] {
			continue
		}
		graph = append(graph, clangscan.ModuleDeps{
			ID:                  m.id(),
			ClangModuleMapFile:  m.ClangModuleMapFile,
			FileDeps:            m.FileDeps,
			ClangModuleDeps:     m.ClangModuleDeps,
			BuildArguments:      rewriteOutputs(m.CommandLine, m.id(), m.ClangModuleDeps, lookup),
			CASFileSystemRootID: m.CASFileSystemRootID,
			IncludeTreeID:       m.IncludeTreeID,
		})
	}
	return graph
}

func (out *fullOutput) translationUnit(alreadySeen map[moduledeps.ModuleID]bool, lookup clangscan.LookupModuleOutput) (*clangscan.TranslationUnitDeps, error) {
	if len(out.TranslationUnits) != 1 {
		return nil, fmt.Errorf("clang-scan-deps reported %d translation units, want 1", len(out.TranslationUnits))
	}
	tu := out.TranslationUnits[0]
	if len(tu.Commands) == 0 {
		return nil, fmt.Errorf("clang-scan-deps reported no command")
	}
	deps := &clangscan.TranslationUnitDeps{
		ModuleGraph: out.moduleGraph(alreadySeen, lookup),
	}
	for _, c := range tu.Commands {
		for _, f := range c.FileDeps {
			if !slices.Contains(deps.FileDeps, f) {
				deps.FileDeps = append(deps.FileDeps, f)
			}
		}
		for _, m := range c.ClangModuleDeps {
			if !slices.Contains(deps.ClangModuleDeps, m) {
				deps.ClangModuleDeps = append(deps.ClangModuleDeps, m)
			}
		}
		deps.Commands = append(deps.Commands, clangscan.Command{
			Executable: c.Executable,
			Arguments:  rewriteModuleFiles(c.CommandLine, c.ClangModuleDeps, lookup),
		})
	}
	// the last command produces the translation unit.
	last := tu.Commands[len(tu.Commands)-1]
	deps.IncludeTreeID = last.IncludeTreeID
	deps.CASFileSystemRootID = last.CASFileSystemRootID
	return deps, nil
}

// output options of module command lines.
var outputOptions = map[string]moduledeps.OutputKind{
	"-o":                         moduledeps.ModuleFile,
	"-dependency-file":           moduledeps.DependencyFile,
	"-serialize-diagnostic-file": moduledeps.DiagnosticSerializationFile,
	"-MT":                        moduledeps.DependencyTargets,
}

// rewriteOutputs replaces output paths of module id in args with lookup.
func rewriteOutputs(args []string, id moduledeps.ModuleID, deps []moduledeps.ModuleID, lookup clangscan.LookupModuleOutput) []string {
	args = rewriteModuleFiles(args, deps, lookup)
	for i := 0; i < len(args)-1; i++ {
		kind, ok := outputOptions[args[i]]
		if !ok {
			continue
		}
		args[i+1] = lookup(id, kind)
		i++
	}
	return args
}

// rewriteModuleFiles replaces paths of -fmodule-file=<name>=<path> of
// deps with lookup. It returns a new slice.
func rewriteModuleFiles(args []string, deps []moduledeps.ModuleID, lookup clangscan.LookupModuleOutput) []string {
	args = slices.Clone(args)
	for i, arg := range args {
		v, ok := strings.CutPrefix(arg, "-fmodule-file=")
		if !ok {
			continue
		}
		name, _, ok := strings.Cut(v, "=")
		if !ok {
			continue
		}
		j := slices.IndexFunc(deps, func(id moduledeps.ModuleID) bool {
			return id.Name == name
		})
		if j < 0 {
			continue
		}
		args[i] = "-fmodule-file=" + name + "=" + lookup(deps[j], moduledeps.ModuleFile)
	}
	return args
}
