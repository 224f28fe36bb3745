// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package graph is graph subcommand to print the module dependency graph
// in a persisted cache.
package graph

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/maruel/subcommands"
	"google.golang.org/protobuf/encoding/prototext"

	"go.chromium.org/luci/common/cli"

	"go.chromium.org/infra/build/modbridge/moduledeps"
	"go.chromium.org/infra/build/modbridge/reapi/digest"
)

const usage = `print module dependency graph

 $ modbridge graph -cache .modbridge_cache -main hostSource:Main

It prints the modules reachable from the main module in json,
in topological order.
With -why, it prints a dependency path from the main module to
the module instead.
With -cache_keys, it prints the module cache key of each foreign
module as a remote execution API digest in proto text.
`

// Cmd returns the Command for the `graph` subcommand provided by this package.
func Cmd() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "graph <args>...",
		ShortDesc: "print module dependency graph",
		LongDesc:  usage,
		CommandRun: func() subcommands.CommandRun {
			c := &run{}
			c.init()
			return c
		},
	}
}

type run struct {
	subcommands.CommandRunBase

	cacheFile string
	main      string
	why       string
	cacheKeys bool
}

func (c *run) init() {
	c.Flags.StringVar(&c.cacheFile, "cache", ".modbridge_cache", "module dependency cache file")
	c.Flags.StringVar(&c.main, "main", "", "main module id, e.g. hostSource:Main")
	c.Flags.StringVar(&c.why, "why", "", "module id to explain why the main module depends on it")
	c.Flags.BoolVar(&c.cacheKeys, "cache_keys", false, "print module cache keys of foreign modules")
}

func (c *run) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := cli.GetContext(a, c, env)
	err := c.run(ctx, os.Stdout)
	if err != nil {
		var cerr *moduledeps.CycleError
		switch {
		case errors.Is(err, flag.ErrHelp):
			fmt.Fprintf(os.Stderr, "%v\n%s\n", err, usage)
		case errors.As(err, &cerr):
			fmt.Fprintf(os.Stderr, "Error: %v\n", cerr)
		default:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func (c *run) run(ctx context.Context, w io.Writer) error {
	if c.main == "" {
		return fmt.Errorf("missing -main: %w", flag.ErrHelp)
	}
	main, err := moduledeps.ParseDependencyID(c.main)
	if err != nil {
		return fmt.Errorf("bad -main: %w", err)
	}
	f, err := os.Open(c.cacheFile)
	if err != nil {
		return err
	}
	defer f.Close()
	cache, _, err := moduledeps.Load(f, nil)
	if err != nil {
		return err
	}
	if _, ok := cache.FindDependency(main); !ok {
		return fmt.Errorf("main module %s: %w", main, moduledeps.ErrNoDependency)
	}
	if c.cacheKeys {
		return writeCacheKeys(w, cache, main)
	}
	if c.why == "" {
		return moduledeps.WriteGraphJSON(w, cache, main)
	}
	target, err := moduledeps.ParseDependencyID(c.why)
	if err != nil {
		return fmt.Errorf("bad -why: %w", err)
	}
	path := moduledeps.FindPath(cache, main, target)
	if path == nil {
		return fmt.Errorf("%s doesn't depend on %s", main, target)
	}
	_, err = fmt.Fprintln(w, moduledeps.FormatPath(path))
	return err
}

// writeCacheKeys prints "id<TAB>digest" lines for foreign modules
// reachable from main that have a module cache key.
func writeCacheKeys(w io.Writer, cache *moduledeps.Cache, main moduledeps.DependencyID) error {
	if err := moduledeps.FindCycle(cache, main); err != nil {
		return err
	}
	for _, id := range moduledeps.TopologicalSort(cache, []moduledeps.DependencyID{main}) {
		info, ok := cache.FindDependency(id)
		if !ok {
			continue
		}
		fd, ok := info.AsForeign()
		if !ok || fd.ModuleCacheKey == "" {
			continue
		}
		d, err := digest.Parse(fd.ModuleCacheKey)
		if err != nil {
			return fmt.Errorf("cache key of %s: %w", id, err)
		}
		_, err = fmt.Fprintf(w, "%s\t%s\n", id, prototext.MarshalOptions{}.Format(d.Proto()))
		if err != nil {
			return err
		}
	}
	return nil
}
