// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scandeps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/charmbracelet/log"

	"go.chromium.org/infra/build/modbridge/clangscan"
	"go.chromium.org/infra/build/modbridge/moduledeps"
)

// DefaultPath is the default clang-scan-deps binary.
const DefaultPath = "clang-scan-deps"

// Tool is clangscan.Tool that runs clang-scan-deps.
type Tool struct {
	// Path is the path of clang-scan-deps.
	Path string

	// ExtraArgs are clang-scan-deps options, e.g.
	// "-mode=preprocess-dependency-directives".
	ExtraArgs []string
}

var _ clangscan.Tool = (*Tool)(nil)

// New creates a tool that runs clang-scan-deps at path.
func New(path string, extraArgs ...string) *Tool {
	if path == "" {
		path = DefaultPath
	}
	return &Tool{Path: path, ExtraArgs: extraArgs}
}

// ExitError is an error of clang-scan-deps failure.
type ExitError struct {
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("clang-scan-deps exit=%d: %s", e.ExitCode, e.Stderr)
}

func (t *Tool) run(ctx context.Context, moduleName string, args []string, workingDir string) ([]byte, error) {
	cmdline := []string{"-format", "experimental-full"}
	cmdline = append(cmdline, t.ExtraArgs...)
	if moduleName != "" {
		cmdline = append(cmdline, "-module-name="+moduleName)
	}
	cmdline = append(cmdline, "--")
	cmdline = append(cmdline, args...)

	c := exec.CommandContext(ctx, t.Path, cmdline...)
	c.Dir = workingDir
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	started := time.Now()
	err := c.Run()
	log.Debugf("%s %q in %s: %v (%s)", t.Path, cmdline, workingDir, err, time.Since(started))
	if err != nil {
		var eerr *exec.ExitError
		if errors.As(err, &eerr) {
			return nil, &ExitError{ExitCode: eerr.ExitCode(), Stderr: stderr.String()}
		}
		return nil, fmt.Errorf("failed to run %s: %w", t.Path, err)
	}
	return stdout.Bytes(), nil
}

// GetModuleDependencies scans the clang module moduleName.
func (t *Tool) GetModuleDependencies(ctx context.Context, moduleName string, args []string, workingDir string, alreadySeen map[moduledeps.ModuleID]bool, lookup clangscan.LookupModuleOutput) (clangscan.ModuleDepsGraph, error) {
	buf, err := t.run(ctx, moduleName, args, workingDir)
	if err != nil {
		return nil, err
	}
	out, err := decode(buf)
	if err != nil {
		return nil, err
	}
	return out.moduleGraph(alreadySeen, lookup), nil
}

// GetTranslationUnitDependencies scans the translation unit in args.
func (t *Tool) GetTranslationUnitDependencies(ctx context.Context, args []string, workingDir string, alreadySeen map[moduledeps.ModuleID]bool, lookup clangscan.LookupModuleOutput) (*clangscan.TranslationUnitDeps, error) {
	buf, err := t.run(ctx, "", args, workingDir)
	if err != nil {
		return nil, err
	}
	out, err := decode(buf)
	if err != nil {
		return nil, err
	}
	return out.translationUnit(alreadySeen, lookup)
}
