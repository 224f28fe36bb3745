// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package clangscan

import (
	"fmt"
	"slices"

	"github.com/charmbracelet/log"

	"go.chromium.org/infra/build/modbridge/moduledeps"
	"go.chromium.org/infra/build/modbridge/reapi/digest"
)

// Options are options of the scanner.
type Options struct {
	// StrictRoundTrip makes round trip failures errors instead of
	// using scanner args as is.
	StrictRoundTrip bool

	// MaxConcurrentScans limits concurrent scanner invocations.
	// runtime.NumCPU() if zero.
	MaxConcurrentScans int64

	// Diagnostics receives scan errors. LogDiagnostics if nil.
	Diagnostics Diagnostics
}

// Bridger translates clang modules into host module records.
type Bridger struct {
	hc      *HostContext
	opts    Options
	metrics *Metrics

	capturedPCMArgs []string
}

// NewBridger creates a bridger for the host context.
// metrics may be nil.
func NewBridger(hc *HostContext, opts Options, metrics *Metrics) (*Bridger, error) {
	captured, err := hc.capturedPCMArgs()
	if err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Bridger{
		hc:              hc,
		opts:            opts,
		metrics:         metrics,
		capturedPCMArgs: captured,
	}, nil
}

// Bridge translates clang modules in graph into host module records.
// Module outputs are placed in outputRoot. remap is applied to paths
// given to the host frontend. nil remap doesn't remap.
//
// A module reported more than once in graph is bridged once.
func (b *Bridger) Bridge(graph ModuleDepsGraph, outputRoot string, remap func(string) string) (moduledeps.Vector, error) {
	if remap == nil {
		remap = func(p string) string { return p }
	}
	var result moduledeps.Vector
	seen := make(map[moduledeps.ModuleID]bool)
	for _, md := range graph {
		if seen[md.ID] {
			log.Debugf("skip duplicate clang module %s", md.ID)
			continue
		}
		seen[md.ID] = true
		info, err := b.bridgeModule(md, outputRoot, remap)
		if err != nil {
			return nil, fmt.Errorf("bridge clang module %s: %w", md.ID, err)
		}
		result = append(result, moduledeps.Entry{
			ID:   moduledeps.Foreign(md.ID.Name),
			Info: info,
		})
	}
	b.metrics.ModulesBridged.Add(float64(len(result)))
	return result, nil
}

func (b *Bridger) bridgeModule(md ModuleDeps, outputRoot string, remap func(string) string) (*moduledeps.Info, error) {
	pcmPath := OutputPath(md.ID, moduledeps.ModuleFile, outputRoot)
	args := []string{
		"-frontend",
		"-emit-pcm",
		"-module-name", md.ID.Name,
		"-o", pcmPath,
		"-direct-clang-cc1-module-build",
		remap(md.ClangModuleMapFile),
	}
	for _, overlay := range b.hc.VFSOverlayFiles {
		args = append(args, "-vfsoverlay", remap(overlay))
	}

	clangArgs, overlays, err := b.roundTrip(md.BuildArguments, nil)
	if err != nil {
		return nil, err
	}
	args = append(args, clangArgs...)

	// The host frontend needs the overlays clang uses to find
	// the module's files.
	var added []string
	for _, overlay := range overlays {
		if slices.Contains(b.hc.VFSOverlayFiles, overlay) || slices.Contains(added, overlay) {
			continue
		}
		added = append(added, overlay)
		args = append(args, "-vfsoverlay", overlay)
	}

	args = append(args, b.hc.CASConfigFlags...)
	if md.CASFileSystemRootID != "" {
		args = append(args, "-no-clang-include-tree", "-cas-fs", md.CASFileSystemRootID)
	}
	if md.IncludeTreeID != "" {
		args = append(args, "-clang-include-tree-root", md.IncludeTreeID)
	}

	d := moduledeps.ForeignDetails{
		PCMOutputPath:       pcmPath,
		ModuleMapFile:       md.ClangModuleMapFile,
		ContextHash:         md.ID.ContextHash,
		CommandLine:         args,
		FileDependencies:    slices.Clone(md.FileDeps),
		CapturedPCMArgs:     slices.Clone(b.capturedPCMArgs),
		CASFileSystemRootID: md.CASFileSystemRootID,
		IncludeTreeID:       md.IncludeTreeID,
	}
	if len(b.hc.CASConfigFlags) > 0 {
		d.ModuleCacheKey = digest.FromArgs(args).String()
	}
	info := moduledeps.NewForeign(d)
	for _, dep := range md.ClangModuleDeps {
		info.AddModuleImport(dep.Name)
		// dependencies of a clang module are clang modules.
		info.AddModuleDependency(moduledeps.Foreign(dep.Name))
	}
	info.SetResolved(true)
	return info, nil
}
