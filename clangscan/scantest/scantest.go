// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package scantest provides fake implementation of clangscan.Tool for test.
package scantest

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.chromium.org/infra/build/modbridge/clangscan"
	"go.chromium.org/infra/build/modbridge/moduledeps"
)

// Call is a recorded call of the fake tool.
type Call struct {
	// ModuleName is empty for translation unit scans.
	ModuleName  string
	Args        []string
	WorkingDir  string
	AlreadySeen map[moduledeps.ModuleID]bool
}

// Tool is fake clang dependency scanning tool.
type Tool struct {
	// Modules are results of module scans by module name.
	// Modules in alreadySeen are removed from the result.
	Modules map[string]clangscan.ModuleDepsGraph

	// TranslationUnit is the result of translation unit scans.
	TranslationUnit *clangscan.TranslationUnitDeps

	// Err is returned by all scans if not nil.
	Err error

	// Block, if not nil, makes scans wait until it is closed or ctx
	// is done.
	Block chan struct{}

	mu    sync.Mutex
	calls []Call
}

func (t *Tool) record(c Call) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, c)
}

func (t *Tool) wait(ctx context.Context) error {
	if t.Block == nil {
		return nil
	}
	select {
	case <-t.Block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Calls returns recorded calls.
func (t *Tool) Calls() []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.calls)
}

func unseen(graph clangscan.ModuleDepsGraph, alreadySeen map[moduledeps.ModuleID]bool) clangscan.ModuleDepsGraph {
	var out clangscan.ModuleDepsGraph
	for _, md := range graph {
		if alreadySeen[md.ID] {
			continue
		}
		out = append(out, md)
	}
	return out
}

func cloneSeen(alreadySeen map[moduledeps.ModuleID]bool) map[moduledeps.ModuleID]bool {
	m := make(map[moduledeps.ModuleID]bool, len(alreadySeen))
	for k, v := range alreadySeen {
		m[k] = v
	}
	return m
}

// GetModuleDependencies returns t.Modules[moduleName].
func (t *Tool) GetModuleDependencies(ctx context.Context, moduleName string, args []string, workingDir string, alreadySeen map[moduledeps.ModuleID]bool, lookup clangscan.LookupModuleOutput) (clangscan.ModuleDepsGraph, error) {
	t.record(Call{
		ModuleName:  moduleName,
		Args:        slices.Clone(args),
		WorkingDir:  workingDir,
		AlreadySeen: cloneSeen(alreadySeen),
	})
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	if t.Err != nil {
		return nil, t.Err
	}
	graph, ok := t.Modules[moduleName]
	if !ok {
		return nil, fmt.Errorf("error: %s:1:9: fatal error: module '%s' not found", moduleName, moduleName)
	}
	return unseen(graph, alreadySeen), nil
}

// GetTranslationUnitDependencies returns t.TranslationUnit.
func (t *Tool) GetTranslationUnitDependencies(ctx context.Context, args []string, workingDir string, alreadySeen map[moduledeps.ModuleID]bool, lookup clangscan.LookupModuleOutput) (*clangscan.TranslationUnitDeps, error) {
	t.record(Call{
		Args:        slices.Clone(args),
		WorkingDir:  workingDir,
		AlreadySeen: cloneSeen(alreadySeen),
	})
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	if t.Err != nil {
		return nil, t.Err
	}
	if t.TranslationUnit == nil {
		return nil, fmt.Errorf("no translation unit deps")
	}
	deps := *t.TranslationUnit
	deps.ModuleGraph = unseen(deps.ModuleGraph, alreadySeen)
	return &deps, nil
}
