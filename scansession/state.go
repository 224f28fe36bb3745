// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scansession

import (
	"errors"
	"io/fs"
	"os"

	"github.com/charmbracelet/log"

	"go.chromium.org/infra/build/modbridge/moduledeps"
)

// loadCache loads the cache persisted in fname.
// It returns nil cache if fname doesn't exist or is not usable.
func loadCache(fname string, remapper moduledeps.PathRemapper) (*moduledeps.Cache, string) {
	f, err := os.Open(fname)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warnf("failed to open cache %s: %v", fname, err)
		}
		return nil, ""
	}
	defer f.Close()
	c, buildID, err := moduledeps.Load(f, remapper)
	if err != nil {
		log.Warnf("ignore cache %s: %v", fname, err)
		return nil, ""
	}
	return c, buildID
}

// saveCache persists c in fname, and keeps the previous one in fname.0.
func saveCache(fname string, c *moduledeps.Cache, buildID string) error {
	ofname := fname + ".0"
	if err := os.Remove(ofname); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.Rename(fname, ofname); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	f, err := os.Create(fname)
	if err != nil {
		return err
	}
	if err := moduledeps.Save(f, c, buildID); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
