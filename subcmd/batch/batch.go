// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package batch is batch subcommand to run scans listed in a yaml file.
package batch

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/maruel/subcommands"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"go.chromium.org/luci/common/cli"

	"go.chromium.org/infra/build/modbridge/moduledeps"
	"go.chromium.org/infra/build/modbridge/scansession"
	"go.chromium.org/infra/build/modbridge/ui"
)

const usage = `run scans listed in a yaml file

 $ modbridge batch -config modbridge.star -input batch.yaml

batch.yaml is a list of scans:

  - module: Foo
    output: out/Foo.json
  - module: Main
    bridging_header: Main-Bridging-Header.h
    sources: [main.src]
    output: out/Main-bridging.json

Scans run concurrently and share the module dependency cache.
`

// Cmd returns the Command for the `batch` subcommand provided by this package.
func Cmd() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "batch <args>...",
		ShortDesc: "run scans listed in a yaml file",
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

	opt       scansession.Option
	input     string
	keepGoing bool
}

func (c *run) init() {
	c.opt.RegisterFlags(&c.Flags)
	c.Flags.StringVar(&c.input, "input", "", "yaml file of scan requests")
	c.Flags.BoolVar(&c.keepGoing, "k", false, "keep going when some scans fail")
}

func (c *run) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := cli.GetContext(a, c, env)
	err := c.run(ctx)
	if err != nil {
		switch {
		case errors.Is(err, flag.ErrHelp):
			fmt.Fprintf(os.Stderr, "%v\n%s\n", err, usage)
		default:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func (c *run) run(ctx context.Context) (err error) {
	if c.input == "" {
		return fmt.Errorf("missing -input: %w", flag.ErrHelp)
	}
	f, err := os.Open(c.input)
	if err != nil {
		return err
	}
	reqs, err := parse(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("parse %s: %w", c.input, err)
	}
	s, err := scansession.Open(ctx, c.opt)
	if err != nil {
		return err
	}
	defer func() {
		cerr := s.Close()
		if err == nil {
			err = cerr
		}
	}()
	return runBatch(ctx, s, reqs, c.keepGoing)
}

// parse parses yaml list of scan requests.
func parse(r io.Reader) ([]scansession.Request, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var reqs []scansession.Request
	err := dec.Decode(&reqs)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	outputs := make(map[string]int)
	for i, req := range reqs {
		if req.Module == "" {
			return nil, fmt.Errorf("entry %d: missing module", i)
		}
		if req.Output == "" {
			return nil, fmt.Errorf("entry %d (%s): missing output", i, req)
		}
		if j, ok := outputs[req.Output]; ok {
			return nil, fmt.Errorf("entry %d (%s): output %s is also used by entry %d", i, req, req.Output, j)
		}
		outputs[req.Output] = i
	}
	return reqs, nil
}

type runner interface {
	Run(context.Context, scansession.Request) (moduledeps.Vector, error)
}

// runBatch runs reqs concurrently.
// Unless keepGoing, the first failure cancels the other scans.
func runBatch(ctx context.Context, r runner, reqs []scansession.Request, keepGoing bool) error {
	eg, ctx := errgroup.WithContext(ctx)
	progress := ui.NewProgress(len(reqs))
	var mu sync.Mutex
	var failed []error
	for _, req := range reqs {
		eg.Go(func() error {
			err := runOne(ctx, r, req)
			progress.Done(req.String(), err)
			if err == nil {
				return nil
			}
			err = fmt.Errorf("%s: %w", req, err)
			if !keepGoing {
				return err
			}
			mu.Lock()
			failed = append(failed, err)
			mu.Unlock()
			return nil
		})
	}
	err := eg.Wait()
	log.Infof("%s", progress.Summary())
	if err != nil {
		return err
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d/%d scans failed: %w", len(failed), len(reqs), errors.Join(failed...))
	}
	return nil
}

func runOne(ctx context.Context, r runner, req scansession.Request) error {
	v, err := r.Run(ctx, req)
	if err != nil {
		return err
	}
	return scansession.WriteJSONFile(req.Output, v)
}
