// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// modbridge bridges clang module dependencies into host module
// dependency records.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/system/signals"

	"go.chromium.org/infra/build/modbridge/subcmd/batch"
	"go.chromium.org/infra/build/modbridge/subcmd/graph"
	"go.chromium.org/infra/build/modbridge/subcmd/help"
	"go.chromium.org/infra/build/modbridge/subcmd/scan"
	"go.chromium.org/infra/build/modbridge/subcmd/version"
)

const modbridgeVersion = "modbridge v0.1.0"

var logLevel = flag.String("log_level", "info", "log level. debug, info, warn, error or fatal")

func main() {
	os.Exit(modbridgeMain())
}

func getApplication(ctx context.Context) *cli.Application {
	return &cli.Application{
		Name:  "modbridge",
		Title: "Bridges clang module dependencies into host module dependency records.",
		Context: func(context.Context) context.Context {
			return ctx
		},
		Commands: []*subcommands.Command{
			scan.Cmd(),
			batch.Cmd(),
			graph.Cmd(),

			help.Cmd(),
			version.Cmd(modbridgeVersion),
		},
	}
}

func modbridgeMain() int {
	flag.Parse()
	lvl, err := log.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad -log_level: %v\n", err)
		return 2
	}
	log.SetLevel(lvl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer signals.HandleInterrupt(cancel)()

	// Print a stack trace when a panic occurs.
	defer func() {
		if r := recover(); r != nil {
			const size = 64 << 10
			buf := make([]byte, size)
			buf = buf[:runtime.Stack(buf, false)]
			log.Fatalf("panic: %v\n%s", r, buf)
		}
	}()

	// Print build information to the log.
	buildinfo, ok := debug.ReadBuildInfo()
	if ok {
		log.Debugf("main module: %s %s", moduleInfo(&buildinfo.Main), vcsInfo(buildinfo))
		for _, m := range buildinfo.Deps {
			log.Debugf("deps module: %s", moduleInfo(m))
		}
	}

	return subcommands.Run(getApplication(ctx), flag.Args())
}

func moduleInfo(m *debug.Module) string {
	if m == nil {
		return "<nil>"
	}
	return fmt.Sprintf("path:%s version:%s sum:%s replace:%s", m.Path, m.Version, m.Sum, moduleInfo(m.Replace))
}

func vcsInfo(buildinfo *debug.BuildInfo) string {
	m := make(map[string]string)
	for _, bs := range buildinfo.Settings {
		if strings.HasPrefix(bs.Key, "vcs.") {
			m[bs.Key] = bs.Value
		}
	}
	return fmt.Sprintf("vcs[revision=%s time=%s modified=%s]", m["vcs.revision"], m["vcs.time"], m["vcs.modified"])
}
