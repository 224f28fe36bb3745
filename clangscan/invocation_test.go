// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package clangscan

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testDriverArgs() []string {
	return []string{
		"clang",
		"-fsyntax-only",
		"-Xclang", "-fmodule-format=obj",
		SourceFilePlaceholder,
		"-working-directory", "/work",
	}
}

func TestScanInvocationArgs(t *testing.T) {
	hc := &HostContext{
		DriverArgs:           testDriverArgs(),
		FrameworkSearchPaths: []FrameworkPath{{Path: "/Frameworks", IsSystem: true}},
		ImportSearchPaths:    []string{"/usr/include/foo"},
	}
	for _, tc := range []struct {
		name   string
		source string
		want   []string
	}{
		{
			name:   "source",
			source: "Input.h",
			want: []string{
				"clang",
				"-c",
				"Input.h",
				"-working-directory", "/work",
				"-iframework", "/Frameworks",
				"-I", "/usr/include/foo",
				"-gmodules",
			},
		},
		{
			name: "module",
			want: []string{
				"clang",
				"-c",
				"-working-directory", "/work",
				"-iframework", "/Frameworks",
				"-I", "/usr/include/foo",
				"-gmodules",
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ScanInvocationArgs(hc, tc.source)
			if err != nil {
				t.Fatalf("ScanInvocationArgs(hc, %q)=_, %v; want nil err", tc.source, err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("ScanInvocationArgs(hc, %q) diff -want +got:\n%s", tc.source, diff)
			}
		})
	}
	if diff := cmp.Diff(testDriverArgs(), hc.DriverArgs); diff != "" {
		t.Errorf("driver args modified: diff -want +got:\n%s", diff)
	}
}

func TestScanInvocationArgsSearchPaths(t *testing.T) {
	hc := &HostContext{
		DriverArgs: testDriverArgs(),
		FrameworkSearchPaths: []FrameworkPath{
			{Path: "/F"},
			{Path: "/SF", IsSystem: true},
		},
		ScannerPrefixMap: []string{"/src=/^src"},
	}
	got, err := ScanInvocationArgs(hc, "")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"clang",
		"-c",
		"-working-directory", "/work",
		"-F", "/F",
		"-iframework", "/SF",
		"-fdepscan-prefix-map=/src=/^src",
		"-gmodules",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ScanInvocationArgs diff -want +got:\n%s", diff)
	}
}

func TestScanInvocationArgsContractViolation(t *testing.T) {
	for _, tc := range []struct {
		name string
		args []string
	}{
		{
			name: "no-placeholder",
			args: []string{"clang", "-fsyntax-only", "-Xclang", "-fmodule-format=obj"},
		},
		{
			name: "no-module-format",
			args: []string{"clang", "-fsyntax-only", SourceFilePlaceholder},
		},
		{
			name: "module-format-without-xclang",
			args: []string{"clang", "-fsyntax-only", "-fmodule-format=obj", SourceFilePlaceholder},
		},
		{
			name: "module-format-first",
			args: []string{"-fmodule-format=obj", "-fsyntax-only", SourceFilePlaceholder},
		},
		{
			name: "no-syntax-only",
			args: []string{"clang", "-Xclang", "-fmodule-format=obj", SourceFilePlaceholder},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			hc := &HostContext{DriverArgs: tc.args}
			_, err := ScanInvocationArgs(hc, "")
			if !errors.Is(err, ErrContractViolation) {
				t.Errorf("ScanInvocationArgs(%q)=_, %v; want %v", tc.args, err, ErrContractViolation)
			}
		})
	}
}

func TestAPINotesVersion(t *testing.T) {
	for _, tc := range []struct {
		version string
		want    string
	}{
		{version: "5.9", want: "5"},
		{version: "5", want: "5"},
		{version: "6.0.1", want: "6"},
		{version: "4", want: "4"},
		{version: "4.2", want: "4.2"},
		{version: "4.2.1", want: "4.2"},
	} {
		got, err := APINotesVersion(tc.version)
		if err != nil || got != tc.want {
			t.Errorf("APINotesVersion(%q)=%q, %v; want %q, nil", tc.version, got, err, tc.want)
		}
	}
	if _, err := APINotesVersion("swift"); err == nil {
		t.Errorf("APINotesVersion(%q)=_, nil; want error", "swift")
	}
}
