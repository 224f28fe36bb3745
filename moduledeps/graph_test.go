// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package moduledeps

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func graphCache(t *testing.T) (*Cache, DependencyID) {
	t.Helper()
	c := NewCache("/cache", nil)
	main := DependencyID{Name: "Main", Kind: KindHostSource}
	info := NewHostSource([]string{"main.src"}, "Bridging.h", nil)
	info.AddModuleDependency(DependencyID{Name: "Lib", Kind: KindHostInterface})
	if err := info.AddBridgingModuleDependency("C"); err != nil {
		t.Fatal(err)
	}
	c.RecordDependency(main, info)

	lib := NewHostInterface("Lib.iface", "lh", "", nil)
	lib.AddModuleDependency(Foreign("A"))
	c.RecordDependency(DependencyID{Name: "Lib", Kind: KindHostInterface}, lib)

	c.RecordDependencies(Vector{
		{ID: Foreign("A"), Info: foreignInfo("A", "h", "B")},
		{ID: Foreign("B"), Info: foreignInfo("B", "h")},
		{ID: Foreign("C"), Info: foreignInfo("C", "h", "B")},
	})
	return c, main
}

func TestTopologicalSort(t *testing.T) {
	c, main := graphCache(t)
	got := TopologicalSort(c, []DependencyID{main})
	pos := make(map[DependencyID]int)
	for i, id := range got {
		pos[id] = i
	}
	if len(got) != 5 {
		t.Fatalf("TopologicalSort()=%v; want 5 modules", got)
	}
	for _, id := range got {
		for _, dep := range c.AllDependencies(id) {
			if pos[id] >= pos[dep] {
				t.Errorf("%s at %d is not before its dependency %s at %d", id, pos[id], dep, pos[dep])
			}
		}
	}
	if got[0] != main {
		t.Errorf("TopologicalSort()[0]=%s; want %s", got[0], main)
	}
}

func TestTransitiveClosure(t *testing.T) {
	c, main := graphCache(t)
	closure := TransitiveClosure(c, TopologicalSort(c, []DependencyID{main}))
	lib := DependencyID{Name: "Lib", Kind: KindHostInterface}
	for _, tc := range []struct {
		id   DependencyID
		want []DependencyID
	}{
		{id: Foreign("B"), want: nil},
		{id: Foreign("A"), want: []DependencyID{Foreign("B")}},
		{id: lib, want: []DependencyID{Foreign("A"), Foreign("B")}},
		{id: main, want: []DependencyID{lib, Foreign("A"), Foreign("B"), Foreign("C")}},
	} {
		if diff := cmp.Diff(tc.want, closure[tc.id]); diff != "" {
			t.Errorf("closure[%s] diff -want +got:\n%s", tc.id, diff)
		}
	}

	info, _ := c.FindDependency(main)
	got, err := BridgingHeaderTransitiveDependencies(info, closure)
	if err != nil {
		t.Fatalf("BridgingHeaderTransitiveDependencies=%v; want nil err", err)
	}
	if diff := cmp.Diff([]DependencyID{Foreign("B"), Foreign("C")}, got); diff != "" {
		t.Errorf("BridgingHeaderTransitiveDependencies diff -want +got:\n%s", diff)
	}
}

func TestFindCycle(t *testing.T) {
	c, main := graphCache(t)
	if err := FindCycle(c, main); err != nil {
		t.Fatalf("FindCycle(acyclic)=%v; want nil", err)
	}

	// B -> A closes A -> B.
	c.RecordDependency(Foreign("B"), foreignInfo("B", "h", "A"))
	err := FindCycle(c, main)
	var cerr *CycleError
	if !errors.As(err, &cerr) {
		t.Fatalf("FindCycle(cyclic)=%v; want *CycleError", err)
	}
	want := []DependencyID{Foreign("A"), Foreign("B"), Foreign("A")}
	if diff := cmp.Diff(want, cerr.Path); diff != "" {
		t.Errorf("cycle path diff -want +got:\n%s", diff)
	}
	if got, want := cerr.Error(), "module dependency cycle detected: A.pcm -> B.pcm -> A.pcm"; got != want {
		t.Errorf("Error()=%q; want %q", got, want)
	}
}

func TestFindPath(t *testing.T) {
	c, main := graphCache(t)
	lib := DependencyID{Name: "Lib", Kind: KindHostInterface}
	got := FindPath(c, main, Foreign("B"))
	want := []DependencyID{main, lib, Foreign("A"), Foreign("B")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FindPath diff -want +got:\n%s", diff)
	}
	if got := FindPath(c, Foreign("B"), main); got != nil {
		t.Errorf("FindPath(B, Main)=%v; want nil", got)
	}
	if got, want := FormatPath(want), "Main.hostsource -> Lib.hostinterface -> A.pcm -> B.pcm"; got != want {
		t.Errorf("FormatPath=%q; want %q", got, want)
	}
}
