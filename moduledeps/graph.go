// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package moduledeps

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// TopologicalSort returns modules reachable from roots so that every
// module comes before its dependencies.
// The graph must be acyclic; see FindCycle.
func TopologicalSort(c *Cache, roots []DependencyID) []DependencyID {
	visited := make(map[DependencyID]bool)
	var result []DependencyID
	var visit func(id DependencyID)
	visit = func(id DependencyID) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, succ := range c.AllDependencies(id) {
			visit(succ)
		}
		result = append(result, id)
	}
	for _, id := range roots {
		visit(id)
	}
	slices.Reverse(result)
	return result
}

// TransitiveClosure computes, for each module in sorted (as returned by
// TopologicalSort), all modules reachable from it, excluding itself.
// Each list is sorted.
func TransitiveClosure(c *Cache, sorted []DependencyID) map[DependencyID][]DependencyID {
	reach := make(map[DependencyID]map[DependencyID]bool, len(sorted))
	for _, id := range sorted {
		reach[id] = map[DependencyID]bool{id: true}
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		id := sorted[i]
		set := reach[id]
		for _, succ := range c.AllDependencies(id) {
			for r := range reach[succ] {
				set[r] = true
			}
			set[succ] = true
		}
	}
	result := make(map[DependencyID][]DependencyID, len(reach))
	for id, set := range reach {
		delete(set, id)
		ids := slices.Collect(maps.Keys(set))
		slices.SortFunc(ids, compareIDs)
		result[id] = ids
	}
	return result
}

// BridgingHeaderTransitiveDependencies returns foreign modules the bridging
// header of a host source module depends on, directly or transitively.
func BridgingHeaderTransitiveDependencies(info *Info, closure map[DependencyID][]DependencyID) ([]DependencyID, error) {
	src, ok := info.Details.(*HostSourceDetails)
	if !ok {
		return nil, nil
	}
	set := make(map[DependencyID]bool)
	for _, name := range src.BridgingModuleDependencies {
		id := Foreign(name)
		set[id] = true
		succ, ok := closure[id]
		if !ok {
			return nil, fmt.Errorf("unknown bridging header dependency %s", id)
		}
		for _, s := range succ {
			set[s] = true
		}
	}
	ids := slices.Collect(maps.Keys(set))
	slices.SortFunc(ids, compareIDs)
	return ids, nil
}

// CycleError is an error for a dependency cycle.
type CycleError struct {
	// Path starts and ends with the same module.
	Path []DependencyID
}

func (e *CycleError) Error() string {
	return "module dependency cycle detected: " + formatPath(e.Path)
}

func formatPath(path []DependencyID) string {
	var sb strings.Builder
	for i, id := range path {
		if i > 0 {
			sb.WriteString(" -> ")
		}
		sb.WriteString(id.Name)
		sb.WriteString(id.Kind.artifactSuffix())
	}
	return sb.String()
}

// FindCycle returns a CycleError if there is a dependency cycle reachable
// from root, or nil.
func FindCycle(c *Cache, root DependencyID) error {
	// open is a stack of modules being visited, in visit order.
	var open []DependencyID
	inOpen := make(map[DependencyID]bool)
	closed := make(map[DependencyID]bool)

	open = append(open, root)
	inOpen[root] = true
	for len(open) > 0 {
		last := open[len(open)-1]
		pushed := false
		for _, dep := range c.AllDependencies(last) {
			if closed[dep] {
				continue
			}
			if inOpen[dep] {
				start := slices.Index(open, dep)
				path := slices.Clone(open[start:])
				path = append(path, dep)
				return &CycleError{Path: path}
			}
			open = append(open, dep)
			inOpen[dep] = true
			pushed = true
			break
		}
		if !pushed {
			closed[last] = true
			delete(inOpen, last)
			open = open[:len(open)-1]
		}
	}
	return nil
}

// FindPath returns a dependency path from `from` to `to`, both inclusive,
// or nil if `to` is not reachable.
func FindPath(c *Cache, from, to DependencyID) []DependencyID {
	visited := make(map[DependencyID]bool)
	var stack []DependencyID
	var result []DependencyID
	var visit func(id DependencyID) bool
	visit = func(id DependencyID) bool {
		if visited[id] {
			return false
		}
		visited[id] = true
		stack = append(stack, id)
		if id == to {
			result = slices.Clone(stack)
			return true
		}
		for _, succ := range c.AllDependencies(id) {
			if visit(succ) {
				return true
			}
		}
		stack = stack[:len(stack)-1]
		return false
	}
	visit(from)
	return result
}

// FormatPath renders a dependency path, e.g. "A.hostinterface -> B.pcm".
func FormatPath(path []DependencyID) string {
	return formatPath(path)
}
