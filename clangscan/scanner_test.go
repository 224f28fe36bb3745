// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package clangscan_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"go.chromium.org/infra/build/modbridge/clangscan"
	"go.chromium.org/infra/build/modbridge/clangscan/scantest"
	"go.chromium.org/infra/build/modbridge/moduledeps"
)

func hostContext() *clangscan.HostContext {
	return &clangscan.HostContext{
		DriverArgs: []string{
			"clang",
			"-fsyntax-only",
			"-Xclang", "-fmodule-format=obj",
			clangscan.SourceFilePlaceholder,
			"-working-directory", "/work",
		},
		ImportSearchPaths: []string{"/src/include"},
		LanguageVersion:   "5.9",
	}
}

func module(name string, deps ...string) clangscan.ModuleDeps {
	md := clangscan.ModuleDeps{
		ID:                 moduledeps.ModuleID{Name: name, ContextHash: "h"},
		ClangModuleMapFile: "/src/" + name + "/module.modulemap",
		FileDeps:           []string{"/src/" + name + "/" + name + ".h"},
		BuildArguments:     []string{"-cc1", "-emit-module", "-x", "objective-c", "/src/" + name + "/module.modulemap"},
	}
	for _, d := range deps {
		md.ClangModuleDeps = append(md.ClangModuleDeps, moduledeps.ModuleID{Name: d, ContextHash: "h"})
	}
	return md
}

type fixture struct {
	tool  *scantest.Tool
	svc   *clangscan.Service
	diags *clangscan.DiagnosticCollector
	s     *clangscan.Scanner
	cache *moduledeps.Cache
}

func setup(t *testing.T, tool *scantest.Tool) *fixture {
	t.Helper()
	svc, err := clangscan.NewService(tool, nil)
	if err != nil {
		t.Fatal(err)
	}
	diags := &clangscan.DiagnosticCollector{}
	s, err := clangscan.NewScanner(hostContext(), svc, clangscan.Options{
		StrictRoundTrip: true,
		Diagnostics:     diags,
	})
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{
		tool:  tool,
		svc:   svc,
		diags: diags,
		s:     s,
		cache: svc.NewCache("/cache"),
	}
}

func TestGetModuleDependencies(t *testing.T) {
	ctx := context.Background()
	f := setup(t, &scantest.Tool{
		Modules: map[string]clangscan.ModuleDepsGraph{
			"A": {module("A", "B"), module("B")},
			"C": {module("C", "B"), module("B")},
		},
	})

	got, err := f.s.GetModuleDependencies(ctx, "A", f.cache)
	if err != nil {
		t.Fatalf("GetModuleDependencies(A)=_, %v; want nil err", err)
	}
	if len(got) != 2 {
		t.Errorf("GetModuleDependencies(A)=%d records; want 2", len(got))
	}
	if _, ok := f.cache.FindDependency(moduledeps.Foreign("A")); !ok {
		t.Errorf("A is not recorded in cache")
	}
	calls := f.tool.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls=%d; want 1", len(calls))
	}
	wantArgs, err := clangscan.ScanInvocationArgs(hostContext(), "")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(wantArgs, calls[0].Args); diff != "" {
		t.Errorf("scan args diff -want +got:\n%s", diff)
	}
	if calls[0].WorkingDir != "/work" {
		t.Errorf("working dir=%q; want %q", calls[0].WorkingDir, "/work")
	}

	// B is already seen, so the scan of C reports only C.
	got, err = f.s.GetModuleDependencies(ctx, "C", f.cache)
	if err != nil {
		t.Fatalf("GetModuleDependencies(C)=_, %v; want nil err", err)
	}
	var ids []moduledeps.DependencyID
	for _, e := range got {
		ids = append(ids, e.ID)
	}
	if diff := cmp.Diff([]moduledeps.DependencyID{moduledeps.Foreign("C")}, ids); diff != "" {
		t.Errorf("GetModuleDependencies(C) ids diff -want +got:\n%s", diff)
	}
	calls = f.tool.Calls()
	if !calls[1].AlreadySeen[moduledeps.ModuleID{Name: "B", ContextHash: "h"}] {
		t.Errorf("already seen of C scan=%v; want B", calls[1].AlreadySeen)
	}
	if got := f.cache.Len(); got != 3 {
		t.Errorf("cache.Len()=%d; want 3", got)
	}
	if got := testutil.ToFloat64(f.svc.Metrics().Scans.WithLabelValues("ok")); got != 2 {
		t.Errorf("ok scans=%v; want 2", got)
	}
	if msgs := f.diags.Messages(); len(msgs) != 0 {
		t.Errorf("diagnostics=%q; want none", msgs)
	}
}

func TestGetModuleDependenciesDuplicate(t *testing.T) {
	f := setup(t, &scantest.Tool{
		Modules: map[string]clangscan.ModuleDepsGraph{
			"A": {module("A"), module("A")},
		},
	})
	got, err := f.s.GetModuleDependencies(context.Background(), "A", f.cache)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("GetModuleDependencies(A)=%d records; want 1", len(got))
	}
	if f.cache.Len() != 1 {
		t.Errorf("cache.Len()=%d; want 1", f.cache.Len())
	}
}

func TestGetModuleDependenciesNotFound(t *testing.T) {
	f := setup(t, &scantest.Tool{})
	got, err := f.s.GetModuleDependencies(context.Background(), "Missing", f.cache)
	if !errors.Is(err, clangscan.ErrModuleNotFound) {
		t.Errorf("GetModuleDependencies(Missing)=%v, %v; want %v", got, err, clangscan.ErrModuleNotFound)
	}
	if msgs := f.diags.Messages(); len(msgs) != 0 {
		t.Errorf("diagnostics=%q; want none", msgs)
	}
	if f.cache.Len() != 0 {
		t.Errorf("cache.Len()=%d; want 0", f.cache.Len())
	}
}

func TestGetModuleDependenciesScanError(t *testing.T) {
	f := setup(t, &scantest.Tool{Err: errors.New("error: unable to open 'module.modulemap'")})
	_, err := f.s.GetModuleDependencies(context.Background(), "A", f.cache)
	if !errors.Is(err, clangscan.ErrScan) {
		t.Errorf("GetModuleDependencies(A)=_, %v; want %v", err, clangscan.ErrScan)
	}
	want := []string{"error: unable to open 'module.modulemap'"}
	if diff := cmp.Diff(want, f.diags.Messages()); diff != "" {
		t.Errorf("diagnostics diff -want +got:\n%s", diff)
	}
	if f.cache.Len() != 0 {
		t.Errorf("cache.Len()=%d; want 0", f.cache.Len())
	}
}

func TestGetModuleDependenciesContractViolation(t *testing.T) {
	tool := &scantest.Tool{}
	svc, err := clangscan.NewService(tool, nil)
	if err != nil {
		t.Fatal(err)
	}
	hc := hostContext()
	hc.DriverArgs = []string{"clang", "-fsyntax-only"}
	s, err := clangscan.NewScanner(hc, svc, clangscan.Options{})
	if err != nil {
		t.Fatal(err)
	}
	_, err = s.GetModuleDependencies(context.Background(), "A", svc.NewCache("/cache"))
	if !errors.Is(err, clangscan.ErrContractViolation) {
		t.Errorf("GetModuleDependencies=_, %v; want %v", err, clangscan.ErrContractViolation)
	}
	if calls := tool.Calls(); len(calls) != 0 {
		t.Errorf("scanner called %d times; want 0", len(calls))
	}
}

func TestGetModuleDependenciesConcurrent(t *testing.T) {
	modules := make(map[string]clangscan.ModuleDepsGraph)
	for i := 0; i < 10; i++ {
		name := fmt.Sprintf("M%d", i)
		modules[name] = clangscan.ModuleDepsGraph{module(name, "Shared"), module("Shared")}
	}
	f := setup(t, &scantest.Tool{Modules: modules})
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.s.GetModuleDependencies(context.Background(), fmt.Sprintf("M%d", i), f.cache)
			if err != nil {
				t.Errorf("GetModuleDependencies(M%d)=_, %v; want nil err", i, err)
			}
		}(i)
	}
	wg.Wait()
	if got := f.cache.Len(); got != 11 {
		t.Errorf("cache.Len()=%d; want 11", got)
	}
}

func TestGetModuleDependenciesCallerCancel(t *testing.T) {
	tool := &scantest.Tool{
		Modules: map[string]clangscan.ModuleDepsGraph{
			"A": {module("A", "B"), module("B")},
		},
		Block: make(chan struct{}),
	}
	f := setup(t, tool)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errA := make(chan error, 1)
	go func() {
		_, err := f.s.GetModuleDependencies(ctx, "A", f.cache)
		errA <- err
	}()
	for len(tool.Calls()) == 0 {
		time.Sleep(time.Millisecond)
	}

	type result struct {
		v   moduledeps.Vector
		err error
	}
	resB := make(chan result, 1)
	go func() {
		v, err := f.s.GetModuleDependencies(context.Background(), "A", f.cache)
		resB <- result{v: v, err: err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Errorf("GetModuleDependencies(A) with canceled ctx=_, %v; want %v", err, context.Canceled)
	}
	close(tool.Block)
	r := <-resB
	if r.err != nil {
		t.Fatalf("GetModuleDependencies(A)=_, %v; want nil err", r.err)
	}
	if _, ok := f.cache.FindDependency(moduledeps.Foreign("A")); !ok {
		t.Errorf("cache has no record of A")
	}
}

func bridgingFixture(t *testing.T) (*fixture, moduledeps.DependencyID) {
	t.Helper()
	f := setup(t, &scantest.Tool{
		TranslationUnit: &clangscan.TranslationUnitDeps{
			ModuleGraph:     clangscan.ModuleDepsGraph{module("C")},
			FileDeps:        []string{"/src/Bridging.h", "/src/c_helper.h"},
			ClangModuleDeps: []moduledeps.ModuleID{{Name: "C", ContextHash: "h"}, {Name: "C", ContextHash: "h"}},
			Commands: []clangscan.Command{{
				Executable: "clang",
				Arguments: []string{
					"-cc1", "-emit-obj",
					"-x", "objective-c-header", "/src/Bridging.h",
					"-o", "/tmp/Bridging.o",
				},
			}},
			IncludeTreeID: "llvmcas://tree",
		},
	})
	id := moduledeps.DependencyID{Name: "Main", Kind: moduledeps.KindHostSource}
	f.cache.RecordDependency(id, moduledeps.NewHostSource([]string{"/src/main.src"}, "/src/Bridging.h", nil))
	return f, id
}

func TestAddBridgingHeaderDependencies(t *testing.T) {
	ctx := context.Background()
	f, id := bridgingFixture(t)

	err := f.s.AddBridgingHeaderDependencies(ctx, id, f.cache)
	if err != nil {
		t.Fatalf("AddBridgingHeaderDependencies=%v; want nil", err)
	}
	info, _ := f.cache.FindDependency(id)
	tx := info.Textual()
	if diff := cmp.Diff([]string{"/src/Bridging.h", "/src/c_helper.h"}, tx.BridgingSourceFiles); diff != "" {
		t.Errorf("BridgingSourceFiles diff -want +got:\n%s", diff)
	}
	if diff := cmp.Diff([]string{"C"}, tx.BridgingModuleDependencies); diff != "" {
		t.Errorf("BridgingModuleDependencies diff -want +got:\n%s", diff)
	}
	if tx.BridgingIncludeTreeID != "llvmcas://tree" {
		t.Errorf("BridgingIncludeTreeID=%q; want %q", tx.BridgingIncludeTreeID, "llvmcas://tree")
	}
	wantCmd := []string{
		"-frontend",
		"-emit-pch",
		"-direct-clang-cc1-module-build",
		"-Xcc", "-emit-pch",
		"-Xcc", "-x", "-Xcc", "objective-c-header",
		"-Xcc", "/src/Bridging.h",
		"-clang-include-tree-root", "llvmcas://tree",
	}
	if diff := cmp.Diff(wantCmd, tx.BridgingCommandLine); diff != "" {
		t.Errorf("BridgingCommandLine diff -want +got:\n%s", diff)
	}
	if _, ok := f.cache.FindDependency(moduledeps.Foreign("C")); !ok {
		t.Errorf("C is not recorded in cache")
	}
	calls := f.tool.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls=%d; want 1", len(calls))
	}
	wantArgs, err := clangscan.ScanInvocationArgs(hostContext(), "/src/Bridging.h")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(wantArgs, calls[0].Args); diff != "" {
		t.Errorf("scan args diff -want +got:\n%s", diff)
	}

	// second call is a no-op.
	err = f.s.AddBridgingHeaderDependencies(ctx, id, f.cache)
	if err != nil {
		t.Fatalf("AddBridgingHeaderDependencies#2=%v; want nil", err)
	}
	if calls := f.tool.Calls(); len(calls) != 1 {
		t.Errorf("calls after second call=%d; want 1", len(calls))
	}
}

func TestAddBridgingHeaderDependenciesScanError(t *testing.T) {
	f, id := bridgingFixture(t)
	f.tool.Err = errors.New("error: 'missing.h' file not found")
	err := f.s.AddBridgingHeaderDependencies(context.Background(), id, f.cache)
	if !errors.Is(err, clangscan.ErrScan) {
		t.Errorf("AddBridgingHeaderDependencies=%v; want %v", err, clangscan.ErrScan)
	}
	info, _ := f.cache.FindDependency(id)
	if info.HasBridgingDependencies() {
		t.Errorf("HasBridgingDependencies()=true after failure; want false")
	}
	if got := f.cache.Len(); got != 1 {
		t.Errorf("cache.Len()=%d; want 1", got)
	}
}

func TestAddBridgingHeaderDependenciesContractViolation(t *testing.T) {
	f, _ := bridgingFixture(t)
	noHeader := moduledeps.DependencyID{Name: "Lib", Kind: moduledeps.KindHostInterface}
	f.cache.RecordDependency(noHeader, moduledeps.NewHostInterface("/src/Lib.iface", "h", "", nil))
	f.cache.RecordDependency(moduledeps.Foreign("F"), moduledeps.NewForeign(moduledeps.ForeignDetails{ContextHash: "h"}))

	for _, id := range []moduledeps.DependencyID{
		{Name: "Unknown", Kind: moduledeps.KindHostSource},
		noHeader,
		moduledeps.Foreign("F"),
	} {
		err := f.s.AddBridgingHeaderDependencies(context.Background(), id, f.cache)
		if !errors.Is(err, clangscan.ErrContractViolation) {
			t.Errorf("AddBridgingHeaderDependencies(%s)=%v; want %v", id, err, clangscan.ErrContractViolation)
		}
	}
	if calls := f.tool.Calls(); len(calls) != 0 {
		t.Errorf("scanner called %d times; want 0", len(calls))
	}
}
