// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scansession

import (
	"flag"
	"fmt"
	"maps"
	"slices"
	"strings"
)

const defaultCacheFile = ".modbridge_cache"

// Option is an option of a scan session.
type Option struct {
	// ConfigFile is a starlark config file. See scanconfig.
	ConfigFile  string
	ConfigFlags KeyValues

	// ScanDeps overrides the clang-scan-deps path of the config.
	ScanDeps string

	// CacheFile persists module records across runs.
	// Empty disables persistence.
	CacheFile string

	StrictRoundTrip bool
	Jobs            int

	// MetricsTextfile is a file to dump metrics in the prometheus text
	// format on Close.
	MetricsTextfile string
}

// RegisterFlags registers flags for the option.
func (o *Option) RegisterFlags(flagSet *flag.FlagSet) {
	flagSet.StringVar(&o.ConfigFile, "config", "modbridge.star", "starlark config file of the host compilation context")
	if o.ConfigFlags == nil {
		o.ConfigFlags = make(KeyValues)
	}
	flagSet.Var(o.ConfigFlags, "config_flag", "key=value exposed to the config as flags[key]. can be repeated")
	flagSet.StringVar(&o.ScanDeps, "scan_deps", "", "path of clang-scan-deps. overrides scan_deps in the config")
	flagSet.StringVar(&o.CacheFile, "cache", defaultCacheFile, "module dependency cache file. empty to disable")
	flagSet.BoolVar(&o.StrictRoundTrip, "strict_round_trip", false, "fail when a clang module command line doesn't round trip")
	flagSet.IntVar(&o.Jobs, "j", 0, "max concurrent clang-scan-deps runs. 0 means number of CPUs")
	flagSet.StringVar(&o.MetricsTextfile, "metrics_textfile", "", "file to write metrics in the prometheus text format")
}

// KeyValues is a flag.Value of repeated key=value.
type KeyValues map[string]string

func (kv KeyValues) String() string {
	var s []string
	for _, k := range slices.Sorted(maps.Keys(kv)) {
		s = append(s, k+"="+kv[k])
	}
	return strings.Join(s, ",")
}

// Set sets key=value.
func (kv KeyValues) Set(v string) error {
	k, val, ok := strings.Cut(v, "=")
	if !ok || k == "" {
		return fmt.Errorf("bad key=value %q", v)
	}
	kv[k] = val
	return nil
}
