// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package clangutil

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtractScanDepsParams(t *testing.T) {
	for _, tc := range []struct {
		name string
		args []string
		want ScanDepsParams
	}{
		{
			name: "scan-invocation",
			args: []string{
				"clang",
				"-fmodules",
				"-c",
				"-x", "objective-c",
				"-I", "/usr/include/foo",
				"-Igen",
				"-iframework", "/Frameworks",
				"-F/Library/Frameworks",
				"-isysroot", "/SDKs/MacOSX.sdk",
				"-ivfsoverlay", "/tmp/overlay.yaml",
				"-working-directory", "/tmp/build",
				"Bridging.h",
				"-o", "out.o",
				"-gmodules",
			},
			want: ScanDepsParams{
				Sources:    []string{"Bridging.h"},
				Dirs:       []string{"/usr/include/foo", "gen"},
				Frameworks: []string{"/Frameworks", "/Library/Frameworks"},
				Sysroots:   []string{"/SDKs/MacOSX.sdk"},
				Overlays:   []string{"/tmp/overlay.yaml"},
			},
		},
		{
			name: "trailing-flag",
			args: []string{"clang", "-I"},
			want: ScanDepsParams{},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractScanDepsParams(tc.args)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("ExtractScanDepsParams(%q): diff -want +got:\n%s", tc.args, diff)
			}
		})
	}
}
