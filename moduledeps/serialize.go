// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package moduledeps

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zstd"

	"go.chromium.org/infra/build/modbridge/reapi/digest"
)

// ErrCorruptCache is returned when a persisted cache can't be used.
var ErrCorruptCache = errors.New("corrupt module dependency cache")

const (
	cacheMagic   = "modbridge-cache"
	cacheVersion = 1
)

type cacheEntryJSON struct {
	ID   DependencyID `json:"id"`
	Info *Info        `json:"info"`
}

type cacheJSON struct {
	ModuleOutputPath string           `json:"moduleOutputPath"`
	Modules          []cacheEntryJSON `json:"modules"`
}

func (c *Cache) snapshot() cacheJSON {
	v := cacheJSON{ModuleOutputPath: c.moduleOutputPath}
	for _, id := range c.IDs() {
		info, ok := c.FindDependency(id)
		if !ok {
			continue
		}
		v.Modules = append(v.Modules, cacheEntryJSON{ID: id, Info: info})
	}
	return v
}

// Save writes the cache to w so it can be reused by a later build.
// buildID identifies the build that produced the cache.
func Save(w io.Writer, c *Cache, buildID string) error {
	payload, err := json.Marshal(c.snapshot())
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return err
	}
	defer enc.Close()
	compressed := enc.EncodeAll(payload, nil)
	_, err = fmt.Fprintf(w, "%s %d %s %016x\n", cacheMagic, cacheVersion, buildID, xxhash.Sum64(payload))
	if err != nil {
		return err
	}
	_, err = w.Write(compressed)
	return err
}

// Load reads a cache written by Save.
// It returns the cache and the build id recorded in it.
func Load(r io.Reader, remapper PathRemapper) (*Cache, string, error) {
	br := bufio.NewReader(r)
	header, err := br.ReadString('\n')
	if err != nil {
		return nil, "", fmt.Errorf("read cache header: %w: %w", ErrCorruptCache, err)
	}
	fields := strings.Fields(header)
	if len(fields) != 4 || fields[0] != cacheMagic {
		return nil, "", fmt.Errorf("bad cache header %q: %w", strings.TrimSpace(header), ErrCorruptCache)
	}
	if fields[1] != strconv.Itoa(cacheVersion) {
		return nil, "", fmt.Errorf("cache version %s, want %d: %w", fields[1], cacheVersion, ErrCorruptCache)
	}
	buildID := fields[2]
	sum, err := strconv.ParseUint(fields[3], 16, 64)
	if err != nil {
		return nil, "", fmt.Errorf("bad cache checksum %q: %w", fields[3], ErrCorruptCache)
	}
	compressed, err := io.ReadAll(br)
	if err != nil {
		return nil, "", err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, "", err
	}
	defer dec.Close()
	payload, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, "", fmt.Errorf("decompress cache: %w: %w", ErrCorruptCache, err)
	}
	if got := xxhash.Sum64(payload); got != sum {
		return nil, "", fmt.Errorf("cache checksum %016x, want %016x: %w", got, sum, ErrCorruptCache)
	}
	var v cacheJSON
	err = json.Unmarshal(payload, &v)
	if err != nil {
		return nil, "", fmt.Errorf("unmarshal cache: %w: %w", ErrCorruptCache, err)
	}
	c := NewCache(v.ModuleOutputPath, remapper)
	for _, e := range v.Modules {
		if err := checkCacheKey(e); err != nil {
			return nil, "", err
		}
		c.RecordDependency(e.ID, e.Info)
	}
	log.Infof("loaded %d module records from build %s", c.Len(), buildID)
	return c, buildID, nil
}

// checkCacheKey verifies the module cache key of foreign entry e
// is a digest.
func checkCacheKey(e cacheEntryJSON) error {
	if e.Info == nil {
		return nil
	}
	fd, ok := e.Info.AsForeign()
	if !ok || fd.ModuleCacheKey == "" {
		return nil
	}
	if _, err := digest.Parse(fd.ModuleCacheKey); err != nil {
		return fmt.Errorf("cache key of %s: %w: %w", e.ID, ErrCorruptCache, err)
	}
	return nil
}

type graphModuleJSON struct {
	ID   DependencyID `json:"moduleName"`
	Info *Info        `json:"details"`
}

type graphJSON struct {
	MainModuleName string            `json:"mainModuleName"`
	Modules        []graphModuleJSON `json:"modules"`
}

// WriteGraphJSON writes the dependency graph reachable from main in
// topological order.
func WriteGraphJSON(w io.Writer, c *Cache, main DependencyID) error {
	if err := FindCycle(c, main); err != nil {
		return err
	}
	doc := graphJSON{MainModuleName: main.Name}
	for _, id := range TopologicalSort(c, []DependencyID{main}) {
		info, ok := c.FindDependency(id)
		if !ok {
			return fmt.Errorf("graph of %s: %s: %w", main, id, ErrNoDependency)
		}
		doc.Modules = append(doc.Modules, graphModuleJSON{ID: id, Info: info})
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}
