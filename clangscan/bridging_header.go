// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package clangscan

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"go.chromium.org/infra/build/modbridge/moduledeps"
	"go.chromium.org/infra/build/modbridge/toolsupport/clangutil"
)

// AddBridgingHeaderDependencies scans the bridging header of the host
// module id in cache, and records its dependencies in the module's
// record. Clang modules used by the header are recorded in cache.
//
// It does nothing if the record already has bridging dependencies.
// On failure, cache is not modified.
func (s *Scanner) AddBridgingHeaderDependencies(ctx context.Context, id moduledeps.DependencyID, cache *moduledeps.Cache) error {
	key := fmt.Sprintf("bridging:%p:%s", cache, id.Encode())
	_, err := s.shared(ctx, key, func(ctx context.Context) (any, error) {
		return nil, s.addBridgingHeaderDependencies(ctx, id, cache)
	})
	return err
}

func (s *Scanner) addBridgingHeaderDependencies(ctx context.Context, id moduledeps.DependencyID, cache *moduledeps.Cache) error {
	target, ok := cache.FindDependency(id)
	if !ok {
		return fmt.Errorf("%w: no record of %s", ErrContractViolation, id)
	}
	if target.Textual() == nil {
		return fmt.Errorf("%w: %s is not a host module", ErrContractViolation, id)
	}
	if target.HasBridgingDependencies() {
		return nil
	}
	header, ok := target.BridgingHeader()
	if !ok {
		return fmt.Errorf("%w: %s has no bridging header", ErrContractViolation, id)
	}

	args, err := ScanInvocationArgs(s.hc, header)
	if err != nil {
		return err
	}
	wd, err := WorkingDirectory(args, s.hc.getwd)
	if err != nil {
		s.diags.ClangDependencyScanError("Missing '-working-directory' argument")
		return err
	}

	lookup := LookupFunc(cache.ModuleOutputPath())
	deps, err := runScan(ctx, s.sema, func(ctx context.Context) (*TranslationUnitDeps, error) {
		return s.svc.tool.GetTranslationUnitDependencies(ctx, args, wd, cache.AlreadySeenForeignModules(), lookup)
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.svc.metrics.BridgingHeaderScans.WithLabelValues(resultError).Inc()
		log.Errorf("scan bridging header %s of %s: %v", header, id, err)
		return fmt.Errorf("%w: bridging header %s of %s: %w", ErrScan, header, id, err)
	}
	if len(deps.Commands) == 0 {
		s.svc.metrics.BridgingHeaderScans.WithLabelValues(resultError).Inc()
		return fmt.Errorf("%w: no command for bridging header %s of %s", ErrScan, header, id)
	}

	bridged, err := s.bridger.Bridge(deps.ModuleGraph, cache.ModuleOutputPath(), cache.ScanService().RemapPath)
	if err != nil {
		return err
	}
	for _, f := range deps.FileDeps {
		err = errors.Join(err, target.AddBridgingSourceFile(f))
	}
	for _, m := range deps.ClangModuleDeps {
		err = errors.Join(err, target.AddBridgingModuleDependency(m.Name))
	}
	if deps.IncludeTreeID != "" {
		err = errors.Join(err, target.SetBridgingIncludeTree(deps.IncludeTreeID))
	}
	if err != nil {
		return err
	}
	cmdline, err := s.bridger.bridgingHeaderCommandLine(deps)
	if err != nil {
		return err
	}
	if err := target.UpdateBridgingCommandLine(cmdline); err != nil {
		return err
	}

	cache.RecordDependencies(bridged)
	if err := cache.UpdateDependency(id, target); err != nil {
		return err
	}
	s.svc.metrics.BridgingHeaderScans.WithLabelValues(resultOK).Inc()
	log.Debugf("bridging header %s of %s: %d files, %d modules", header, id, len(deps.FileDeps), len(deps.ClangModuleDeps))
	return nil
}

// bridgingHeaderCommandLine returns the host frontend command line to
// precompile the bridging header.
func (b *Bridger) bridgingHeaderCommandLine(deps *TranslationUnitDeps) ([]string, error) {
	args := []string{
		"-frontend",
		"-emit-pch",
		"-direct-clang-cc1-module-build",
	}
	clangArgs, _, err := b.roundTrip(deps.Commands[0].Arguments, func(inv *clangutil.Invocation) {
		inv.ProgramAction = "-emit-pch"
		inv.OutputFile = ""
	})
	if err != nil {
		return nil, err
	}
	args = append(args, clangArgs...)
	args = append(args, b.hc.CASConfigFlags...)
	if deps.IncludeTreeID != "" {
		args = append(args, "-clang-include-tree-root", deps.IncludeTreeID)
	}
	if deps.CASFileSystemRootID != "" {
		args = append(args, "-no-clang-include-tree", "-cas-fs", deps.CASFileSystemRootID)
	}
	return args, nil
}
