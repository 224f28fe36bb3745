// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package scan is scan subcommand to scan a clang module or a bridging
// header.
package scan

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"

	"go.chromium.org/infra/build/modbridge/clangscan"
	"go.chromium.org/infra/build/modbridge/scansession"
	"go.chromium.org/infra/build/modbridge/ui"
)

const usage = `scan a clang module or a bridging header

 $ modbridge scan -config modbridge.star -module Foo
 $ modbridge scan -config modbridge.star -module Main \
     -bridging_header Main-Bridging-Header.h -sources main.src

It prints module dependency records found by clang-scan-deps in json.
With -explain, it prints the clang-scan-deps command line instead.
`

// Cmd returns the Command for the `scan` subcommand provided by this package.
func Cmd() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "scan <args>...",
		ShortDesc: "scan a clang module or a bridging header",
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

	opt     scansession.Option
	req     scansession.Request
	sources string
	explain bool
}

func (c *run) init() {
	c.opt.RegisterFlags(&c.Flags)
	c.Flags.StringVar(&c.req.Module, "module", "", "clang module name to scan, or host module name of -bridging_header")
	c.Flags.StringVar(&c.req.BridgingHeader, "bridging_header", "", "bridging header of the host module to scan")
	c.Flags.StringVar(&c.sources, "sources", "", "comma separated source files of the host module")
	c.Flags.StringVar(&c.req.Output, "o", "", "output json file. stdout if empty")
	c.Flags.BoolVar(&c.explain, "explain", false, "print clang-scan-deps command line and search paths instead of scanning")
}

func (c *run) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := cli.GetContext(a, c, env)
	err := c.run(ctx, args)
	if err != nil {
		switch {
		case errors.Is(err, flag.ErrHelp):
			fmt.Fprintf(os.Stderr, "%v\n%s\n", err, usage)
		case errors.Is(err, clangscan.ErrModuleNotFound):
			fmt.Fprintf(os.Stderr, "%v\n", err)
		default:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func (c *run) run(ctx context.Context, args []string) (err error) {
	if len(args) != 0 {
		return fmt.Errorf("position arguments not expected: %w", flag.ErrHelp)
	}
	if c.req.Module == "" {
		return fmt.Errorf("missing -module: %w", flag.ErrHelp)
	}
	if c.sources != "" {
		c.req.Sources = strings.Split(c.sources, ",")
	}
	s, err := scansession.Open(ctx, c.opt)
	if err != nil {
		return err
	}
	if c.explain {
		return s.Explain(os.Stdout, c.req)
	}
	defer func() {
		cerr := s.Close()
		if err == nil {
			err = cerr
		}
	}()
	started := time.Now()
	v, err := s.Run(ctx, c.req)
	if err != nil {
		return err
	}
	log.Infof("%s: %d records in %s", c.req, len(v), ui.FormatDuration(time.Since(started)))
	if c.req.Output != "" {
		return scansession.WriteJSONFile(c.req.Output, v)
	}
	return scansession.WriteJSON(os.Stdout, v)
}
