// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package clangscan

import (
	"fmt"

	"github.com/charmbracelet/log"

	"go.chromium.org/infra/build/modbridge/toolsupport/clangutil"
)

// xcc prefixes each clang arg with -Xcc.
func xcc(args []string) []string {
	out := make([]string, 0, len(args)*2)
	for _, arg := range args {
		out = append(out, "-Xcc", arg)
	}
	return out
}

// rawOverlays returns -ivfsoverlay files of args that could not be parsed.
func rawOverlays(args []string) []string {
	var overlays []string
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "-ivfsoverlay" {
			overlays = append(overlays, args[i+1])
			i++
		}
	}
	return overlays
}

// roundTrip reparses clang -cc1 args reported by the scanner, clears
// cache keys and path prefix mappings, which are computed by the host,
// and applies edit if not nil.
// It returns regenerated args prefixed by -Xcc, and -ivfsoverlay files
// of the invocation.
func (b *Bridger) roundTrip(args []string, edit func(*clangutil.Invocation)) ([]string, []string, error) {
	inv, err := clangutil.Parse(args)
	if err != nil {
		b.metrics.RoundTripFailures.Inc()
		err = fmt.Errorf("%w: %w", ErrRoundTrip, err)
		if b.opts.StrictRoundTrip {
			return nil, nil, err
		}
		log.Errorf("%v; use scanner args as is", err)
		if len(args) > 0 && args[0] == "-cc1" {
			args = args[1:]
		}
		return xcc(args), rawOverlays(args), nil
	}
	inv.ModuleCacheKeys = nil
	inv.PathPrefixMappings = nil
	if edit != nil {
		edit(inv)
	}
	return xcc(inv.Args()), inv.VFSOverlayFiles, nil
}
