// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package scanconfig loads the host compilation context from a Starlark
// config file.
//
// A config file sets global variables:
//
//	driver_args = ["clang", "-fsyntax-only", "-Xclang", "-fmodule-format=obj",
//	               "<swift-imported-modules>", "-working-directory", flags["dir"]]
//	framework_paths = [
//	    framework("/Frameworks"),
//	    struct(path = "/SDK/System/Library/Frameworks", system = True),
//	]
//	import_paths = ["/src/include"]
//	prefix_map = ["/src=/^src"]
//	vfs_overlays = ["/out/overlay.yaml"]
//	cas_flags = ["-cache-compile-job", "-cas-path", "/out/cas"]
//	language_version = "5.9"
//	module_cache_path = "/out/module-cache"
//	scan_deps = "/usr/bin/clang-scan-deps"
//	scan_deps_args = ["-mode=preprocess-dependency-directives"]
//
// driver_args may be a string, which is split as a shell command line.
// Missing globals take default values.
package scanconfig

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"github.com/charmbracelet/log"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"go.chromium.org/infra/build/modbridge/clangscan"
	"go.chromium.org/infra/build/modbridge/toolsupport/shutil"
)

// Config is a scan config.
type Config struct {
	Host *clangscan.HostContext

	// ModuleCachePath is the directory of clang module outputs.
	ModuleCachePath string

	// ScanDepsPath is the path of clang-scan-deps.
	ScanDepsPath string
	ScanDepsArgs []string
}

// GlobalError is an error of a global variable of the config.
type GlobalError struct {
	Name string
	Err  error
}

func (e *GlobalError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Name, e.Err)
}

func (e *GlobalError) Unwrap() error {
	return e.Err
}

// Load loads the config file fname in fsys.
// flags are exposed to the config as `flags` dict.
func Load(ctx context.Context, fsys fs.FS, fname string, flags map[string]string) (*Config, error) {
	l := &loader{
		ctx:         ctx,
		fsys:        fsys,
		predeclared: predeclared(flags),
		cache:       make(map[string]*entry),
	}
	thread := &starlark.Thread{
		Name: "load",
		Print: func(thread *starlark.Thread, msg string) {
			log.Infof("thread:%s %s", thread.Name, msg)
		},
		Load: l.load,
	}
	thread.SetLocal("modulename", fname)
	globals, err := l.load(thread, fname)
	if err != nil {
		var eerr *starlark.EvalError
		if errors.As(err, &eerr) {
			log.Warnf("stacktrace:\n%s", eerr.Backtrace())
		}
		return nil, fmt.Errorf("failed to load %s: %w", fname, err)
	}
	log.Debugf("config %s: %s", fname, globals)
	return fromGlobals(globals)
}

func predeclared(flags map[string]string) starlark.StringDict {
	keys := make([]string, 0, len(flags))
	for k := range flags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	dict := starlark.NewDict(len(flags))
	for _, k := range keys {
		// SetKey on a fresh dict with string keys doesn't fail.
		_ = dict.SetKey(starlark.String(k), starlark.String(flags[k]))
	}
	dict.Freeze()
	return starlark.StringDict{
		"struct":    starlark.NewBuiltin("struct", starlarkstruct.Make),
		"framework": starlark.NewBuiltin("framework", starFramework),
		"flags":     dict,
	}
}

// starFramework returns struct(path=path, system=system).
func starFramework(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var p string
	system := false
	err := starlark.UnpackArgs("framework", args, kwargs, "path", &p, "system?", &system)
	if err != nil {
		return starlark.None, err
	}
	return starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
		"path":   starlark.String(p),
		"system": starlark.Bool(system),
	}), nil
}

type entry struct {
	globals starlark.StringDict
	err     error
}

// loader loads Starlark modules in fsys.
type loader struct {
	ctx         context.Context
	fsys        fs.FS
	predeclared starlark.StringDict
	cache       map[string]*entry
}

func (l *loader) load(thread *starlark.Thread, module string) (starlark.StringDict, error) {
	curname, _ := thread.Local("modulename").(string)
	fname := module
	if curname != "" && curname != module && !path.IsAbs(module) {
		fname = path.Join(path.Dir(curname), module)
	}
	e, ok := l.cache[fname]
	if ok {
		if e == nil {
			return nil, fmt.Errorf("cycle in load graph: %s", fname)
		}
		return e.globals, e.err
	}
	if err := l.ctx.Err(); err != nil {
		return nil, err
	}
	log.Debugf("load %s from %s", fname, curname)
	buf, err := fs.ReadFile(l.fsys, fname)
	if err != nil {
		return nil, err
	}
	l.cache[fname] = nil
	t := &starlark.Thread{
		Name:  "load " + fname,
		Print: thread.Print,
		Load:  l.load,
	}
	t.SetLocal("modulename", fname)
	globals, err := starlark.ExecFile(t, fname, buf, l.predeclared)
	l.cache[fname] = &entry{globals: globals, err: err}
	return globals, err
}

func fromGlobals(globals starlark.StringDict) (*Config, error) {
	cfg := &Config{
		Host: &clangscan.HostContext{},
	}
	var errs []error
	check := func(name string, err error) {
		if err != nil {
			errs = append(errs, &GlobalError{Name: name, Err: err})
		}
	}
	var err error
	cfg.Host.DriverArgs, err = driverArgs(globals["driver_args"])
	check("driver_args", err)
	cfg.Host.FrameworkSearchPaths, err = frameworkPaths(globals["framework_paths"])
	check("framework_paths", err)
	cfg.Host.ImportSearchPaths, err = stringList(globals["import_paths"])
	check("import_paths", err)
	cfg.Host.ScannerPrefixMap, err = stringList(globals["prefix_map"])
	check("prefix_map", err)
	cfg.Host.VFSOverlayFiles, err = stringList(globals["vfs_overlays"])
	check("vfs_overlays", err)
	cfg.Host.CASConfigFlags, err = stringList(globals["cas_flags"])
	check("cas_flags", err)
	cfg.Host.LanguageVersion, err = stringValue(globals["language_version"])
	check("language_version", err)
	if cfg.Host.LanguageVersion != "" {
		_, err = clangscan.APINotesVersion(cfg.Host.LanguageVersion)
		check("language_version", err)
	}
	cfg.ModuleCachePath, err = stringValue(globals["module_cache_path"])
	check("module_cache_path", err)
	cfg.ScanDepsPath, err = stringValue(globals["scan_deps"])
	check("scan_deps", err)
	cfg.ScanDepsArgs, err = stringList(globals["scan_deps_args"])
	check("scan_deps_args", err)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func driverArgs(v starlark.Value) ([]string, error) {
	if s, ok := v.(starlark.String); ok {
		return shutil.Split(string(s))
	}
	return stringList(v)
}

func stringValue(v starlark.Value) (string, error) {
	if v == nil || v == starlark.None {
		return "", nil
	}
	s, ok := starlark.AsString(v)
	if !ok {
		return "", fmt.Errorf("got %s; want string", v.Type())
	}
	return s, nil
}

func stringList(v starlark.Value) ([]string, error) {
	if v == nil || v == starlark.None {
		return nil, nil
	}
	if _, ok := v.(starlark.String); ok {
		return nil, fmt.Errorf("got string; want list of strings")
	}
	iter := starlark.Iterate(v)
	if iter == nil {
		return nil, fmt.Errorf("got %s; want list of strings", v.Type())
	}
	defer iter.Done()
	var list []string
	var elem starlark.Value
	for iter.Next(&elem) {
		s, ok := starlark.AsString(elem)
		if !ok {
			return nil, fmt.Errorf("got %s in %s; want string", elem.Type(), v.Type())
		}
		list = append(list, s)
	}
	return list, nil
}

func frameworkPaths(v starlark.Value) ([]clangscan.FrameworkPath, error) {
	if v == nil || v == starlark.None {
		return nil, nil
	}
	iter := starlark.Iterate(v)
	if iter == nil {
		return nil, fmt.Errorf("got %s; want list of framework", v.Type())
	}
	defer iter.Done()
	var paths []clangscan.FrameworkPath
	var elem starlark.Value
	for iter.Next(&elem) {
		switch elem := elem.(type) {
		case starlark.String:
			paths = append(paths, clangscan.FrameworkPath{Path: string(elem)})
		case *starlarkstruct.Struct:
			fp, err := unpackFramework(elem)
			if err != nil {
				return nil, err
			}
			paths = append(paths, fp)
		default:
			return nil, fmt.Errorf("got %s in %s; want framework", elem.Type(), v.Type())
		}
	}
	return paths, nil
}

func unpackFramework(s *starlarkstruct.Struct) (clangscan.FrameworkPath, error) {
	var fp clangscan.FrameworkPath
	v, err := s.Attr("path")
	if err != nil {
		return fp, fmt.Errorf("framework %s: %w", s, err)
	}
	p, ok := starlark.AsString(v)
	if !ok {
		return fp, fmt.Errorf("framework path: got %s; want string", v.Type())
	}
	fp.Path = p
	v, err = s.Attr("system")
	if err != nil {
		// system is optional.
		return fp, nil
	}
	b, ok := v.(starlark.Bool)
	if !ok {
		return fp, fmt.Errorf("framework system: got %s; want bool", v.Type())
	}
	fp.IsSystem = bool(b)
	return fp, nil
}
