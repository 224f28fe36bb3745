// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scansession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"go.chromium.org/infra/build/modbridge/clangscan"
	"go.chromium.org/infra/build/modbridge/moduledeps"
	"go.chromium.org/infra/build/modbridge/toolsupport/clangutil"
	"go.chromium.org/infra/build/modbridge/toolsupport/shutil"
)

// Request is a scan request.
type Request struct {
	// Module is a clang module name to scan, or the host source module
	// name of BridgingHeader.
	Module string `yaml:"module"`

	// BridgingHeader is a bridging header of the host source module.
	BridgingHeader string `yaml:"bridging_header,omitempty"`

	// Sources are source files of the host source module.
	Sources []string `yaml:"sources,omitempty"`

	// Output is a file to write the result json.
	Output string `yaml:"output,omitempty"`
}

func (r Request) String() string {
	if r.BridgingHeader != "" {
		return fmt.Sprintf("bridging header %s of %s", r.BridgingHeader, r.Module)
	}
	return fmt.Sprintf("clang module %s", r.Module)
}

func (r Request) hostID() moduledeps.DependencyID {
	return moduledeps.DependencyID{Name: r.Module, Kind: moduledeps.KindHostSource}
}

// Run runs the scan request, and returns module records.
// For a clang module, they are newly discovered clang modules.
// For a bridging header, they are the host module and clang modules
// used by the header.
func (s *Session) Run(ctx context.Context, req Request) (moduledeps.Vector, error) {
	if req.Module == "" {
		return nil, errors.New("no module in request")
	}
	if req.BridgingHeader == "" {
		return s.Scanner.GetModuleDependencies(ctx, req.Module, s.Cache)
	}
	id := req.hostID()
	s.Cache.RecordIfAbsent(id, moduledeps.NewHostSource(req.Sources, req.BridgingHeader, nil))
	err := s.Scanner.AddBridgingHeaderDependencies(ctx, id, s.Cache)
	if err != nil {
		return nil, err
	}
	info, ok := s.Cache.FindDependency(id)
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, moduledeps.ErrNoDependency)
	}
	v := moduledeps.Vector{{ID: id, Info: info}}
	for _, name := range info.Textual().BridgingModuleDependencies {
		dep := moduledeps.Foreign(name)
		if di, ok := s.Cache.FindDependency(dep); ok {
			v = append(v, moduledeps.Entry{ID: dep, Info: di})
		}
	}
	return v, nil
}

// Explain writes the clang-scan-deps command line of req, and the
// search paths in it.
func (s *Session) Explain(w io.Writer, req Request) error {
	args, err := clangscan.ScanInvocationArgs(s.Config.Host, req.BridgingHeader)
	if err != nil {
		return err
	}
	getwd := s.Config.Host.Getwd
	if getwd == nil {
		getwd = os.Getwd
	}
	wd, err := clangscan.WorkingDirectory(args, getwd)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "# %s\n", req)
	fmt.Fprintf(w, "cd %s\n", shutil.Join([]string{wd}))
	fmt.Fprintf(w, "%s\n", shutil.Join(args))
	params := clangutil.ExtractScanDepsParams(args)
	for _, p := range []struct {
		name   string
		values []string
	}{
		{"sources", params.Sources},
		{"dirs", params.Dirs},
		{"frameworks", params.Frameworks},
		{"sysroots", params.Sysroots},
		{"overlays", params.Overlays},
	} {
		for _, v := range p.values {
			fmt.Fprintf(w, "%s\t%s\n", p.name, v)
		}
	}
	return nil
}

type recordJSON struct {
	ID   moduledeps.DependencyID `json:"id"`
	Info *moduledeps.Info        `json:"info"`
}

// WriteJSON writes module records as json array.
func WriteJSON(w io.Writer, v moduledeps.Vector) error {
	records := make([]recordJSON, 0, len(v))
	for _, e := range v {
		records = append(records, recordJSON{ID: e.ID, Info: e.Info})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// WriteJSONFile writes module records as json array to fname.
func WriteJSONFile(fname string, v moduledeps.Vector) error {
	f, err := os.Create(fname)
	if err != nil {
		return err
	}
	err = WriteJSON(f, v)
	cerr := f.Close()
	if err != nil {
		return err
	}
	return cerr
}
