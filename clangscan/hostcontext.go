// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package clangscan

import (
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
)

// FrameworkPath is a framework search path.
type FrameworkPath struct {
	Path     string
	IsSystem bool
}

// HostContext is the host compilation context used to build scanner
// invocations and module command lines.
type HostContext struct {
	// DriverArgs are clang driver arguments of the host compiler.
	// They must contain SourceFilePlaceholder, a
	// "-Xclang -fmodule-format=..." pair and "-fsyntax-only".
	DriverArgs []string

	FrameworkSearchPaths []FrameworkPath
	ImportSearchPaths    []string

	// ScannerPrefixMap are "old=new" path prefix mapping rules.
	ScannerPrefixMap []string

	// VFSOverlayFiles are overlays given to the host compiler.
	VFSOverlayFiles []string

	// CASConfigFlags are host flags configuring the CAS, e.g.
	// "-cache-compile-job -cas-path /path".
	CASConfigFlags []string

	// LanguageVersion is the effective host language version, e.g. "5.9".
	LanguageVersion string

	// Getwd returns the current working directory of the host
	// filesystem. os.Getwd if nil.
	Getwd func() (string, error)
}

func (hc *HostContext) getwd() (string, error) {
	if hc.Getwd != nil {
		return hc.Getwd()
	}
	return os.Getwd()
}

// apinotes only distinguish major versions, except 4.2.
var apinotes42 = mustConstraint(">= 4.2, < 5")

func mustConstraint(c string) *semver.Constraints {
	v, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return v
}

// APINotesVersion returns the API notes version for the host language
// version.
func APINotesVersion(languageVersion string) (string, error) {
	v, err := semver.NewVersion(languageVersion)
	if err != nil {
		return "", fmt.Errorf("bad language version %q: %w", languageVersion, err)
	}
	if apinotes42.Check(v) {
		return "4.2", nil
	}
	return fmt.Sprintf("%d", v.Major()), nil
}

// capturedPCMArgs returns arguments applied to all foreign modules of
// the build.
func (hc *HostContext) capturedPCMArgs() ([]string, error) {
	if hc.LanguageVersion == "" {
		return nil, nil
	}
	v, err := APINotesVersion(hc.LanguageVersion)
	if err != nil {
		return nil, err
	}
	return []string{"-Xcc", "-fapinotes-swift-version=" + v}, nil
}
