// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package clangutil provides utilities of clang command lines.
package clangutil

import (
	"fmt"
	"slices"
	"strings"
)

// ParseError is an error of parsing a clang frontend command line.
type ParseError struct {
	Index  int
	Arg    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("bad clang frontend argument %q at %d: %s", e.Arg, e.Index, e.Reason)
}

// ModuleCacheKey is a pair of -fmodule-file-cache-key values.
type ModuleCacheKey struct {
	Path string
	Key  string
}

// opt is an option of the command line kept as is.
type opt struct {
	name   string
	values []string
	// joined is true for "-Ifoo" form of an option with a value.
	joined bool
	input  bool
}

func (o opt) args() []string {
	switch {
	case o.input:
		return []string{o.name}
	case o.joined:
		return []string{o.name + o.values[0]}
	}
	return append([]string{o.name}, o.values...)
}

// Invocation is a structured clang frontend (-cc1) invocation.
//
// Fields that the caller may want to inspect or override are parsed into
// dedicated fields. Other options and inputs are kept in order.
type Invocation struct {
	// ProgramAction is the frontend action, e.g. "-emit-module".
	ProgramAction string

	// OutputFile is the value of -o.
	OutputFile string

	ModuleCacheKeys    []ModuleCacheKey
	PathPrefixMappings []string
	VFSOverlayFiles    []string

	opts []opt
}

// number of separate values for options.
var separateValueOptions = map[string]int{
	"-D":                         1,
	"-F":                         1,
	"-I":                         1,
	"-MT":                        1,
	"-U":                         1,
	"-coverage-compilation-dir":  1,
	"-debugger-tuning":           1,
	"-dependency-file":           1,
	"-dwarf-debug-flags":         1,
	"-fcas-fs":                   1,
	"-fcas-include-tree":         1,
	"-fcas-path":                 1,
	"-fcoverage-compilation-dir": 1,
	"-fdebug-compilation-dir":    1,
	"-ferror-limit":              1,
	"-fmessage-length":           1,
	"-fmodule-feature":           1,
	"-fmodule-file-cache-key":    2,
	"-iframework":                1,
	"-include":                   1,
	"-include-pch":               1,
	"-internal-externc-isystem":  1,
	"-internal-isystem":          1,
	"-iquote":                    1,
	"-isysroot":                  1,
	"-isystem":                   1,
	"-ivfsoverlay":               1,
	"-main-file-name":            1,
	"-mllvm":                     1,
	"-module-dependency-dir":     1,
	"-mrelocation-model":         1,
	"-o":                         1,
	"-object-file-name":          1,
	"-pic-level":                 1,
	"-resource-dir":              1,
	"-serialize-diagnostic-file": 1,
	"-split-dwarf-file":          1,
	"-split-dwarf-output":        1,
	"-stack-protector":           1,
	"-target-abi":                1,
	"-target-cpu":                1,
	"-target-feature":            1,
	"-triple":                    1,
	"-working-directory":         1,
	"-x":                         1,
}

// options that accept "-Ivalue" form.
var joinedValueOptions = []string{"-D", "-F", "-I", "-U"}

var programActions = map[string]bool{
	"-E":                     true,
	"-S":                     true,
	"-ast-dump":              true,
	"-emit-header-unit":      true,
	"-emit-llvm":             true,
	"-emit-llvm-bc":          true,
	"-emit-module":           true,
	"-emit-module-interface": true,
	"-emit-obj":              true,
	"-emit-pch":              true,
	"-fsyntax-only":          true,
	"-module-file-info":      true,
}

// driverOnlyOptions are rejected since they are not frontend options.
var driverOnlyOptions = []string{"-###", "-Xclang", "-Xcc", "-c"}

// Parse parses clang frontend arguments.
// args may start with "-cc1", which is dropped.
func Parse(args []string) (*Invocation, error) {
	inv := &Invocation{}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "":
			return nil, &ParseError{Index: i, Arg: arg, Reason: "empty argument"}
		case arg == "-cc1":
			if i != 0 {
				return nil, &ParseError{Index: i, Arg: arg, Reason: "-cc1 must be the first argument"}
			}
			continue
		case slices.Contains(driverOnlyOptions, arg), strings.HasPrefix(arg, "--driver-mode="):
			return nil, &ParseError{Index: i, Arg: arg, Reason: "driver option is not accepted by the frontend"}
		case programActions[arg]:
			inv.ProgramAction = arg
			continue
		case arg == "-" || !strings.HasPrefix(arg, "-"):
			inv.opts = append(inv.opts, opt{name: arg, input: true})
			continue
		case strings.HasPrefix(arg, "-fdepscan-prefix-map="):
			inv.PathPrefixMappings = append(inv.PathPrefixMappings, strings.TrimPrefix(arg, "-fdepscan-prefix-map="))
			continue
		}
		n, ok := separateValueOptions[arg]
		if !ok {
			if o, ok := joinedOption(arg); ok {
				inv.opts = append(inv.opts, o)
				continue
			}
			// unknown flag. keep it as is.
			inv.opts = append(inv.opts, opt{name: arg})
			continue
		}
		if i+n >= len(args) {
			return nil, &ParseError{Index: i, Arg: arg, Reason: fmt.Sprintf("missing %d value(s)", n)}
		}
		values := slices.Clone(args[i+1 : i+1+n])
		i += n
		switch arg {
		case "-o":
			inv.OutputFile = values[0]
		case "-ivfsoverlay":
			inv.VFSOverlayFiles = append(inv.VFSOverlayFiles, values[0])
		case "-fmodule-file-cache-key":
			inv.ModuleCacheKeys = append(inv.ModuleCacheKeys, ModuleCacheKey{Path: values[0], Key: values[1]})
		default:
			inv.opts = append(inv.opts, opt{name: arg, values: values})
		}
	}
	return inv, nil
}

func joinedOption(arg string) (opt, bool) {
	for _, name := range joinedValueOptions {
		if v, ok := strings.CutPrefix(arg, name); ok && v != "" {
			return opt{name: name, values: []string{v}, joined: true}, true
		}
	}
	return opt{}, false
}

// Args regenerates the frontend command line, without "-cc1".
func (inv *Invocation) Args() []string {
	var args []string
	if inv.ProgramAction != "" {
		args = append(args, inv.ProgramAction)
	}
	for _, o := range inv.opts {
		args = append(args, o.args()...)
	}
	for _, overlay := range inv.VFSOverlayFiles {
		args = append(args, "-ivfsoverlay", overlay)
	}
	for _, m := range inv.PathPrefixMappings {
		args = append(args, "-fdepscan-prefix-map="+m)
	}
	for _, k := range inv.ModuleCacheKeys {
		args = append(args, "-fmodule-file-cache-key", k.Path, k.Key)
	}
	if inv.OutputFile != "" {
		args = append(args, "-o", inv.OutputFile)
	}
	return args
}

// Inputs returns input files.
func (inv *Invocation) Inputs() []string {
	var inputs []string
	for _, o := range inv.opts {
		if o.input {
			inputs = append(inputs, o.name)
		}
	}
	return inputs
}

// Values returns values of the option name, e.g. all -I dirs.
func (inv *Invocation) Values(name string) []string {
	var values []string
	for _, o := range inv.opts {
		if o.input || o.name != name {
			continue
		}
		values = append(values, o.values...)
	}
	return values
}

// Has reports whether inv has the option name.
func (inv *Invocation) Has(name string) bool {
	return slices.ContainsFunc(inv.opts, func(o opt) bool {
		return !o.input && o.name == name
	})
}
