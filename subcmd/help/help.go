// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package help provides help subcommand.
package help

import (
	"flag"
	"fmt"
	"io"

	"github.com/maruel/subcommands"
)

const configHelp = `Scan commands read the host compilation context from a starlark
config file (-config, default modbridge.star). It sets globals:

  driver_args        clang driver command line of the host importer.
                     must have "<swift-imported-modules>", "-fsyntax-only"
                     and "-Xclang -fmodule-format=...".
  framework_paths    framework search paths. "path", framework(path,
                     system=False) or struct(path=..., system=...).
  import_paths       import search paths.
  prefix_map         old=new path prefix rules for the scanner.
  vfs_overlays       VFS overlay files of the host compiler.
  cas_flags          CAS configuration flags of the host compiler.
  language_version   language version of the host compiler.
  module_cache_path  directory of clang module outputs.
  scan_deps          path of clang-scan-deps.
  scan_deps_args     extra clang-scan-deps arguments.

Values passed by -config_flag key=value are available as flags[key].
`

// Cmd returns the Command for the `help` subcommand provided by this package.
func Cmd() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "help [<command>|-advanced|-config]",
		ShortDesc: "prints help about a command",
		LongDesc:  "Prints commands and globally-available flags or help about a specific command.\nUse -advanced to display all commands.\nUse -config to display config file globals.",
		CommandRun: func() subcommands.CommandRun {
			ret := &helpCmdRun{}
			ret.Flags.BoolVar(&ret.advanced, "advanced", false, "show advanced commands")
			ret.Flags.BoolVar(&ret.config, "config", false, "show config file globals")
			return ret
		},
	}
}

type helpCmdRun struct {
	subcommands.CommandRunBase
	advanced bool
	config   bool
}

func (h *helpCmdRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	if h.config {
		printConfigHelp(a.GetOut())
		return 0
	}
	// For top-level help, print subcommands.Usage. Then print flags.
	if len(args) == 0 {
		subcommands.Usage(a.GetOut(), a, h.advanced)
		fmt.Fprintln(a.GetOut(), "Common flags accepted by all commands:")
		flag.CommandLine.SetOutput(a.GetOut())
		flag.PrintDefaults()
		fmt.Fprintln(a.GetOut())
		fmt.Fprintln(a.GetOut(), `Use "help -config" for the config file.`)
		return 0
	}
	return subcommands.CmdHelp.CommandRun().Run(a, args, env)
}

func printConfigHelp(w io.Writer) {
	fmt.Fprint(w, configHelp)
}
