// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package moduledeps

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func foreignInfo(name, hash string, deps ...string) *Info {
	info := NewForeign(ForeignDetails{
		PCMOutputPath: "/cache/" + name + "-" + hash + ".pcm",
		ModuleMapFile: "/src/" + name + "/module.modulemap",
		ContextHash:   hash,
	})
	for _, d := range deps {
		info.AddModuleImport(d)
		info.AddModuleDependency(Foreign(d))
	}
	info.SetResolved(true)
	return info
}

func TestCacheRecordAndFind(t *testing.T) {
	c := NewCache("/cache", nil)
	id := Foreign("A")
	if _, ok := c.FindDependency(id); ok {
		t.Fatalf("FindDependency(%s) found before record", id)
	}
	if seen := c.AlreadySeenForeignModules(); len(seen) != 0 {
		t.Errorf("AlreadySeenForeignModules()=%v; want empty", seen)
	}

	c.RecordDependencies(Vector{
		{ID: id, Info: foreignInfo("A", "h1", "B")},
		{ID: Foreign("B"), Info: foreignInfo("B", "h2")},
	})

	got, ok := c.FindDependency(id)
	if !ok {
		t.Fatalf("FindDependency(%s) not found", id)
	}
	if !got.Resolved {
		t.Errorf("FindDependency(%s).Resolved=false; want true", id)
	}
	if diff := cmp.Diff([]DependencyID{Foreign("B")}, c.AllDependencies(id)); diff != "" {
		t.Errorf("AllDependencies(%s) diff -want +got:\n%s", id, diff)
	}
	want := map[ModuleID]bool{
		{Name: "A", ContextHash: "h1"}: true,
		{Name: "B", ContextHash: "h2"}: true,
	}
	if diff := cmp.Diff(want, c.AlreadySeenForeignModules()); diff != "" {
		t.Errorf("AlreadySeenForeignModules() diff -want +got:\n%s", diff)
	}

	// returned record is a copy.
	got.AddModuleImport("Z")
	again, _ := c.FindDependency(id)
	if diff := cmp.Diff([]string{"B"}, again.ModuleImports); diff != "" {
		t.Errorf("record mutated through FindDependency result: diff -want +got:\n%s", diff)
	}
}

func TestCacheRecordDuplicate(t *testing.T) {
	c := NewCache("/cache", nil)
	c.RecordDependencies(Vector{
		{ID: Foreign("A"), Info: foreignInfo("A", "h1")},
		{ID: Foreign("A"), Info: foreignInfo("A", "h1")},
	})
	if got := c.Len(); got != 1 {
		t.Errorf("Len()=%d; want 1", got)
	}
}

func TestCacheRecordNewContextHash(t *testing.T) {
	c := NewCache("/cache", nil)
	c.RecordDependency(Foreign("A"), foreignInfo("A", "h1"))
	c.RecordDependency(Foreign("A"), foreignInfo("A", "h2"))
	want := map[ModuleID]bool{
		{Name: "A", ContextHash: "h2"}: true,
	}
	if diff := cmp.Diff(want, c.AlreadySeenForeignModules()); diff != "" {
		t.Errorf("AlreadySeenForeignModules() diff -want +got:\n%s", diff)
	}
}

func TestCacheUpdateMergesBridging(t *testing.T) {
	c := NewCache("/cache", nil)
	id := DependencyID{Name: "Main", Kind: KindHostSource}
	info := NewHostSource([]string{"main.src"}, "Bridging.h", nil)
	c.RecordDependency(id, info)

	first := info.Clone()
	for _, f := range []string{"Bridging.h", "a.h"} {
		if err := first.AddBridgingSourceFile(f); err != nil {
			t.Fatal(err)
		}
	}
	if err := first.AddBridgingModuleDependency("A"); err != nil {
		t.Fatal(err)
	}
	if err := c.UpdateDependency(id, first); err != nil {
		t.Fatalf("UpdateDependency(%s)=%v; want nil", id, err)
	}

	// newer record without bridging lists doesn't drop them.
	second := NewHostSource([]string{"main.src", "other.src"}, "Bridging.h", nil)
	second.AddModuleDependency(Foreign("C"))
	if err := c.UpdateDependency(id, second); err != nil {
		t.Fatalf("UpdateDependency(%s)=%v; want nil", id, err)
	}
	got, _ := c.FindDependency(id)
	tx := got.Textual()
	if diff := cmp.Diff([]string{"Bridging.h", "a.h"}, tx.BridgingSourceFiles); diff != "" {
		t.Errorf("BridgingSourceFiles diff -want +got:\n%s", diff)
	}
	if diff := cmp.Diff([]string{"A"}, tx.BridgingModuleDependencies); diff != "" {
		t.Errorf("BridgingModuleDependencies diff -want +got:\n%s", diff)
	}
	if diff := cmp.Diff([]DependencyID{Foreign("C"), Foreign("A")}, c.AllDependencies(id)); diff != "" {
		t.Errorf("AllDependencies diff -want +got:\n%s", diff)
	}
	src := got.Details.(*HostSourceDetails)
	if diff := cmp.Diff([]string{"main.src", "other.src"}, src.SourceFiles); diff != "" {
		t.Errorf("SourceFiles diff -want +got:\n%s", diff)
	}
}

func TestCacheUpdateMissing(t *testing.T) {
	c := NewCache("/cache", nil)
	err := c.UpdateDependency(Foreign("A"), foreignInfo("A", "h"))
	if !errors.Is(err, ErrNoDependency) {
		t.Errorf("UpdateDependency(missing)=%v; want %v", err, ErrNoDependency)
	}
}

func TestCacheRecordIfAbsent(t *testing.T) {
	c := NewCache("/cache", nil)
	if !c.RecordIfAbsent(Foreign("A"), foreignInfo("A", "h1")) {
		t.Errorf("RecordIfAbsent first=false; want true")
	}
	if c.RecordIfAbsent(Foreign("A"), foreignInfo("A", "h2")) {
		t.Errorf("RecordIfAbsent second=true; want false")
	}
	got, _ := c.FindDependency(Foreign("A"))
	fd, _ := got.AsForeign()
	if fd.ContextHash != "h1" {
		t.Errorf("ContextHash=%q; want %q", fd.ContextHash, "h1")
	}
}

func TestCacheRejectsKindMismatch(t *testing.T) {
	c := NewCache("/cache", nil)
	c.RecordDependency(DependencyID{Name: "A", Kind: KindHostSource}, foreignInfo("A", "h"))
	if got := c.Len(); got != 0 {
		t.Errorf("Len()=%d; want 0", got)
	}
}

func TestCacheConcurrent(t *testing.T) {
	c := NewCache("/cache", nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("M%d", i%10)
			c.RecordIfAbsent(Foreign(name), foreignInfo(name, "h"))
			c.FindDependency(Foreign(name))
			c.AlreadySeenForeignModules()
		}(i)
	}
	wg.Wait()
	if got := c.Len(); got != 10 {
		t.Errorf("Len()=%d; want 10", got)
	}
	if got := len(c.AlreadySeenForeignModules()); got != 10 {
		t.Errorf("len(AlreadySeenForeignModules())=%d; want 10", got)
	}
}

func TestInfoForeignRejectsBridging(t *testing.T) {
	info := foreignInfo("A", "h")
	if err := info.AddBridgingSourceFile("x.h"); !errors.Is(err, ErrNotTextual) {
		t.Errorf("AddBridgingSourceFile on foreign=%v; want %v", err, ErrNotTextual)
	}
	if _, ok := info.BridgingHeader(); ok {
		t.Errorf("BridgingHeader on foreign ok=true; want false")
	}
	if info.HasBridgingDependencies() {
		t.Errorf("HasBridgingDependencies on foreign=true; want false")
	}
}

func TestDependencyIDEncode(t *testing.T) {
	for _, id := range []DependencyID{
		Foreign("A"),
		{Name: "Main", Kind: KindHostSource},
		{Name: "Lib", Kind: KindHostInterface},
	} {
		s := id.Encode()
		got, err := ParseDependencyID(s)
		if err != nil {
			t.Errorf("ParseDependencyID(%q)=%v; want nil err", s, err)
			continue
		}
		if got != id {
			t.Errorf("ParseDependencyID(%q)=%v; want %v", s, got, id)
		}
	}
	for _, s := range []string{"A", "foreign:", "bogus:A"} {
		if _, err := ParseDependencyID(s); err == nil {
			t.Errorf("ParseDependencyID(%q) succeeded; want error", s)
		}
	}
}
