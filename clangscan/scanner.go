// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package clangscan

import (
	"context"
	"fmt"
	"runtime"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"go.chromium.org/infra/build/modbridge/moduledeps"
)

// Scanner scans clang module dependencies for the host compiler.
// It is safe for concurrent use.
type Scanner struct {
	hc      *HostContext
	svc     *Service
	bridger *Bridger
	diags   Diagnostics

	sema  *semaphore.Weighted
	group singleflight.Group
}

// NewScanner creates a scanner for the host context.
func NewScanner(hc *HostContext, svc *Service, opts Options) (*Scanner, error) {
	bridger, err := NewBridger(hc, opts, svc.metrics)
	if err != nil {
		return nil, err
	}
	n := opts.MaxConcurrentScans
	if n <= 0 {
		n = int64(runtime.NumCPU())
	}
	diags := opts.Diagnostics
	if diags == nil {
		diags = LogDiagnostics{}
	}
	return &Scanner{
		hc:      hc,
		svc:     svc,
		bridger: bridger,
		diags:   diags,
		sema:    semaphore.NewWeighted(n),
	}, nil
}

// runScan runs f while holding a scan slot of sema.
func runScan[T any](ctx context.Context, sema *semaphore.Weighted, f func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := sema.Acquire(ctx, 1); err != nil {
		return zero, err
	}
	defer sema.Release(1)
	return f(ctx)
}

// shared runs f once for concurrent calls with the same key.
// f runs without the callers' cancellation, and each caller returns
// when its own ctx is done.
func (s *Scanner) shared(ctx context.Context, key string, f func(context.Context) (any, error)) (any, error) {
	fctx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		return f(fctx)
	})
	select {
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	case r := <-ch:
		if r.Shared {
			log.Debugf("shared scan %s", key)
		}
		return r.Val, r.Err
	}
}

// GetModuleDependencies scans the clang module name, and records the
// clang modules it depends on in cache.
// It returns the records of the newly discovered modules.
//
// If the scanner can't find the module, it returns ErrModuleNotFound
// without diagnostics.
// Concurrent calls for the same name and cache share one scan.
func (s *Scanner) GetModuleDependencies(ctx context.Context, name string, cache *moduledeps.Cache) (moduledeps.Vector, error) {
	key := fmt.Sprintf("module:%p:%s", cache, name)
	v, err := s.shared(ctx, key, func(ctx context.Context) (any, error) {
		return s.getModuleDependencies(ctx, name, cache)
	})
	if err != nil {
		return nil, err
	}
	return v.(moduledeps.Vector), nil
}

func (s *Scanner) getModuleDependencies(ctx context.Context, name string, cache *moduledeps.Cache) (moduledeps.Vector, error) {
	args, err := ScanInvocationArgs(s.hc, "")
	if err != nil {
		return nil, err
	}
	wd, err := WorkingDirectory(args, s.hc.getwd)
	if err != nil {
		s.diags.ClangDependencyScanError("Missing '-working-directory' argument")
		return nil, err
	}
	lookup := LookupFunc(cache.ModuleOutputPath())
	log.Debugf("scan clang module %s in %s: %q", name, wd, args)
	graph, err := runScan(ctx, s.sema, func(ctx context.Context) (ModuleDepsGraph, error) {
		return s.svc.tool.GetModuleDependencies(ctx, name, args, wd, cache.AlreadySeenForeignModules(), lookup)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if isModuleNotFound(err.Error(), name) {
			s.svc.metrics.Scans.WithLabelValues(resultNotFound).Inc()
			return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, name)
		}
		s.svc.metrics.Scans.WithLabelValues(resultError).Inc()
		s.diags.ClangDependencyScanError(err.Error())
		return nil, fmt.Errorf("%w: module %s: %w", ErrScan, name, err)
	}
	bridged, err := s.bridger.Bridge(graph, cache.ModuleOutputPath(), s.svc.RemapPath)
	if err != nil {
		s.svc.metrics.Scans.WithLabelValues(resultError).Inc()
		return nil, err
	}
	cache.RecordDependencies(bridged)
	s.svc.metrics.Scans.WithLabelValues(resultOK).Inc()
	log.Debugf("clang module %s: %d new modules", name, len(bridged))
	return bridged, nil
}
