// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package moduledeps

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
)

// ErrNoDependency is returned when a module is not recorded in the cache.
var ErrNoDependency = errors.New("module dependency not recorded")

// PathRemapper remaps paths recorded in module command lines,
// e.g. by path prefix mapping.
type PathRemapper interface {
	RemapPath(string) string
}

type identityRemapper struct{}

func (identityRemapper) RemapPath(p string) string { return p }

// Cache stores module dependency records discovered in a build.
// It is safe for concurrent use.
type Cache struct {
	moduleOutputPath string
	remapper         PathRemapper

	mu   sync.Mutex
	deps map[DependencyID]*Info
	// seen is foreign modules whose records are in deps.
	seen map[ModuleID]bool
}

// NewCache creates a new cache.
// remapper may be nil, in which case paths are not remapped.
func NewCache(moduleOutputPath string, remapper PathRemapper) *Cache {
	if remapper == nil {
		remapper = identityRemapper{}
	}
	return &Cache{
		moduleOutputPath: moduleOutputPath,
		remapper:         remapper,
		deps:             make(map[DependencyID]*Info),
		seen:             make(map[ModuleID]bool),
	}
}

// ModuleOutputPath returns the directory where foreign module outputs are placed.
func (c *Cache) ModuleOutputPath() string {
	return c.moduleOutputPath
}

// ScanService returns the path remapper of the scanning service of the build.
func (c *Cache) ScanService() PathRemapper {
	return c.remapper
}

// FindDependency returns a copy of the record of id.
func (c *Cache) FindDependency(id DependencyID) (*Info, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.deps[id]
	if !ok {
		return nil, false
	}
	return info.Clone(), true
}

// RecordDependency records info for id.
// If id is already recorded, info overwrites it except that bridging
// header lists recorded earlier are kept.
func (c *Cache) RecordDependency(id DependencyID, info *Info) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recordLocked(id, info)
}

// RecordDependencies records all entries in v.
func (c *Cache) RecordDependencies(v Vector) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range v {
		c.recordLocked(e.ID, e.Info)
	}
}

// RecordIfAbsent records info for id only if id is not recorded yet.
// It reports whether info was recorded.
func (c *Cache) RecordIfAbsent(id DependencyID, info *Info) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.deps[id]; ok {
		return false
	}
	c.recordLocked(id, info)
	return true
}

// UpdateDependency updates the record of id that is already recorded.
func (c *Cache) UpdateDependency(id DependencyID, info *Info) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.deps[id]; !ok {
		return fmt.Errorf("update %s: %w", id, ErrNoDependency)
	}
	c.recordLocked(id, info)
	return nil
}

func (c *Cache) recordLocked(id DependencyID, info *Info) {
	if info == nil || info.Details == nil {
		log.Errorf("ignore empty module record for %s", id)
		return
	}
	if id.Kind != info.Kind() {
		log.Errorf("ignore module record for %s: kind mismatch %s", id, info.Kind())
		return
	}
	if old, ok := c.deps[id]; ok {
		if ofd, ok := old.AsForeign(); ok {
			delete(c.seen, ModuleID{Name: id.Name, ContextHash: ofd.ContextHash})
		}
		c.deps[id] = old.mergeFrom(info)
	} else {
		c.deps[id] = info.Clone()
	}
	// the seen set is updated only after the record is stored.
	if fd, ok := info.AsForeign(); ok {
		c.seen[ModuleID{Name: id.Name, ContextHash: fd.ContextHash}] = true
	}
}

// AlreadySeenForeignModules returns a snapshot of foreign modules
// recorded in the cache.
func (c *Cache) AlreadySeenForeignModules() map[ModuleID]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.seen)
}

// AllDependencies returns direct dependencies of id, including bridging
// header module dependencies.
func (c *Cache) AllDependencies(id DependencyID) []DependencyID {
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.deps[id]
	if !ok {
		return nil
	}
	return info.directDependencies()
}

// IDs returns all recorded ids in deterministic order.
func (c *Cache) IDs() []DependencyID {
	c.mu.Lock()
	ids := slices.Collect(maps.Keys(c.deps))
	c.mu.Unlock()
	slices.SortFunc(ids, compareIDs)
	return ids
}

// Len returns number of recorded modules.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.deps)
}

func compareIDs(a, b DependencyID) int {
	if n := cmp.Compare(a.Kind, b.Kind); n != 0 {
		return n
	}
	return cmp.Compare(a.Name, b.Name)
}
