// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package clangscan

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"go.chromium.org/infra/build/modbridge/moduledeps"
)

// prefixRule is an "old=new" path prefix mapping.
type prefixRule struct {
	from, to string
}

// PrefixMapper maps path prefixes.
// It is safe for concurrent use.
type PrefixMapper struct {
	rules []prefixRule
	memo  *lru.Cache[string, string]
}

const prefixMapperMemoSize = 4096

// NewPrefixMapper creates a mapper from "old=new" rules.
// The longest matching prefix wins.
func NewPrefixMapper(rules []string) (*PrefixMapper, error) {
	m := &PrefixMapper{}
	for _, r := range rules {
		from, to, ok := strings.Cut(r, "=")
		if !ok || from == "" {
			return nil, fmt.Errorf("bad prefix map %q: want old=new", r)
		}
		m.rules = append(m.rules, prefixRule{from: from, to: to})
	}
	slices.SortStableFunc(m.rules, func(a, b prefixRule) int {
		return cmp.Compare(len(b.from), len(a.from))
	})
	memo, err := lru.New[string, string](prefixMapperMemoSize)
	if err != nil {
		return nil, err
	}
	m.memo = memo
	return m, nil
}

// Map maps path by the first matching rule.
// A rule matches the whole path or a prefix ending at a path separator.
func (m *PrefixMapper) Map(path string) string {
	if len(m.rules) == 0 {
		return path
	}
	if v, ok := m.memo.Get(path); ok {
		return v
	}
	mapped := path
	for _, r := range m.rules {
		rest, ok := strings.CutPrefix(path, r.from)
		if !ok {
			continue
		}
		if rest != "" && !strings.HasSuffix(r.from, "/") && !strings.HasPrefix(rest, "/") {
			continue
		}
		mapped = r.to + rest
		break
	}
	m.memo.Add(path, mapped)
	return mapped
}

// Service is a dependency scanning service shared by scans of a build.
type Service struct {
	BuildID string

	tool    Tool
	mapper  *PrefixMapper
	metrics *Metrics
}

// NewService creates a service that scans with tool and remaps paths
// with prefixMap rules.
func NewService(tool Tool, prefixMap []string) (*Service, error) {
	mapper, err := NewPrefixMapper(prefixMap)
	if err != nil {
		return nil, err
	}
	return &Service{
		BuildID: uuid.New().String(),
		tool:    tool,
		mapper:  mapper,
		metrics: NewMetrics(),
	}, nil
}

// RemapPath remaps path by the prefix map.
func (s *Service) RemapPath(path string) string {
	return s.mapper.Map(path)
}

// Metrics returns metrics of the service.
func (s *Service) Metrics() *Metrics {
	return s.metrics
}

// NewCache creates a cache for the build whose module outputs are in
// moduleOutputPath.
func (s *Service) NewCache(moduleOutputPath string) *moduledeps.Cache {
	return moduledeps.NewCache(moduleOutputPath, s)
}
