// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package scansession sets up a scanner, its config and its module
// dependency cache for subcommands.
package scansession

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	"go.chromium.org/infra/build/modbridge/clangscan"
	"go.chromium.org/infra/build/modbridge/moduledeps"
	"go.chromium.org/infra/build/modbridge/scanconfig"
	"go.chromium.org/infra/build/modbridge/scandeps"
)

// Session is a scan session of a build.
type Session struct {
	Config  *scanconfig.Config
	Service *clangscan.Service
	Scanner *clangscan.Scanner
	Cache   *moduledeps.Cache

	opt      Option
	registry *prometheus.Registry
}

// Open loads the config and the cache, and sets up a scanner.
func Open(ctx context.Context, opt Option) (*Session, error) {
	if opt.ConfigFile == "" {
		return nil, errors.New("no config file")
	}
	fname, err := filepath.Abs(opt.ConfigFile)
	if err != nil {
		return nil, err
	}
	cfg, err := scanconfig.Load(ctx, os.DirFS(filepath.Dir(fname)), filepath.Base(fname), opt.ConfigFlags)
	if err != nil {
		return nil, err
	}
	scanDeps := cfg.ScanDepsPath
	if opt.ScanDeps != "" {
		scanDeps = opt.ScanDeps
	}
	tool := scandeps.New(scanDeps, cfg.ScanDepsArgs...)
	return open(cfg, tool, opt)
}

func open(cfg *scanconfig.Config, tool clangscan.Tool, opt Option) (*Session, error) {
	svc, err := clangscan.NewService(tool, cfg.Host.ScannerPrefixMap)
	if err != nil {
		return nil, err
	}
	scanner, err := clangscan.NewScanner(cfg.Host, svc, clangscan.Options{
		StrictRoundTrip:    opt.StrictRoundTrip,
		MaxConcurrentScans: int64(opt.Jobs),
	})
	if err != nil {
		return nil, err
	}
	registry := prometheus.NewRegistry()
	if err := svc.Metrics().Register(registry); err != nil {
		return nil, err
	}
	s := &Session{
		Config:   cfg,
		Service:  svc,
		Scanner:  scanner,
		opt:      opt,
		registry: registry,
	}
	if opt.CacheFile != "" {
		c, buildID := loadCache(opt.CacheFile, svc)
		switch {
		case c == nil:
		case c.ModuleOutputPath() != cfg.ModuleCachePath:
			log.Warnf("ignore cache %s of build %s: module cache path %q != %q", opt.CacheFile, buildID, c.ModuleOutputPath(), cfg.ModuleCachePath)
		default:
			s.Cache = c
		}
	}
	if s.Cache == nil {
		s.Cache = svc.NewCache(cfg.ModuleCachePath)
	}
	log.Infof("build %s: module cache %q, %d cached modules", svc.BuildID, cfg.ModuleCachePath, s.Cache.Len())
	return s, nil
}

// Close persists the cache and metrics.
func (s *Session) Close() error {
	var errs []error
	if s.opt.CacheFile != "" {
		if err := saveCache(s.opt.CacheFile, s.Cache, s.Service.BuildID); err != nil {
			errs = append(errs, fmt.Errorf("save cache %s: %w", s.opt.CacheFile, err))
		}
	}
	if s.opt.MetricsTextfile != "" {
		if err := prometheus.WriteToTextfile(s.opt.MetricsTextfile, s.registry); err != nil {
			errs = append(errs, fmt.Errorf("write metrics %s: %w", s.opt.MetricsTextfile, err))
		}
	}
	return errors.Join(errs...)
}
