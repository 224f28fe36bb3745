// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package moduledeps

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// ErrNotTextual is returned when a host-only operation is applied to
// a foreign module record.
var ErrNotTextual = errors.New("module record has no textual host details")

// Details is the kind specific payload of Info.
// It is implemented only by *ForeignDetails, *HostInterfaceDetails
// and *HostSourceDetails.
type Details interface {
	kind() Kind
	clone() Details
}

// ForeignDetails is a build recipe of a foreign module.
type ForeignDetails struct {
	// PCMOutputPath is the path of the module file to produce.
	PCMOutputPath string `json:"pcmOutputPath"`

	// ModuleMapFile is the module map that defines the module.
	ModuleMapFile string `json:"moduleMapPath"`

	ContextHash string `json:"contextHash"`

	// CommandLine is the host frontend command line to build the module.
	CommandLine []string `json:"commandLine"`

	FileDependencies []string `json:"fileDependencies"`

	// CapturedPCMArgs are arguments applied to every foreign module of
	// the build.
	CapturedPCMArgs []string `json:"capturedPCMArgs,omitempty"`

	CASFileSystemRootID string `json:"casFSRootID,omitempty"`
	IncludeTreeID       string `json:"includeTreeID,omitempty"`
	ModuleCacheKey      string `json:"moduleCacheKey,omitempty"`
}

func (*ForeignDetails) kind() Kind { return KindForeign }

func (d *ForeignDetails) clone() Details {
	c := *d
	c.CommandLine = slices.Clone(d.CommandLine)
	c.FileDependencies = slices.Clone(d.FileDependencies)
	c.CapturedPCMArgs = slices.Clone(d.CapturedPCMArgs)
	return &c
}

// TextualDetails are fields shared by host modules that are compiled
// from text, including their bridging header state.
type TextualDetails struct {
	CommandLine []string `json:"commandLine,omitempty"`

	// BridgingHeader is the path of the foreign header included by
	// the module, if any.
	BridgingHeader string `json:"bridgingHeader,omitempty"`

	BridgingSourceFiles        []string `json:"bridgingSourceFiles,omitempty"`
	BridgingModuleDependencies []string `json:"bridgingModuleDependencies,omitempty"`
	BridgingIncludeTreeID      string   `json:"bridgingHeaderIncludeTree,omitempty"`
	BridgingCommandLine        []string `json:"bridgingPchCommandLine,omitempty"`
}

func (t TextualDetails) cloneTextual() TextualDetails {
	c := t
	c.CommandLine = slices.Clone(t.CommandLine)
	c.BridgingSourceFiles = slices.Clone(t.BridgingSourceFiles)
	c.BridgingModuleDependencies = slices.Clone(t.BridgingModuleDependencies)
	c.BridgingCommandLine = slices.Clone(t.BridgingCommandLine)
	return c
}

// HostInterfaceDetails is a host module built from a textual interface.
type HostInterfaceDetails struct {
	TextualDetails
	InterfacePath string `json:"moduleInterfacePath"`
	ContextHash   string `json:"contextHash,omitempty"`
}

func (*HostInterfaceDetails) kind() Kind { return KindHostInterface }

func (d *HostInterfaceDetails) clone() Details {
	c := *d
	c.TextualDetails = d.TextualDetails.cloneTextual()
	return &c
}

// HostSourceDetails is the host module being compiled.
type HostSourceDetails struct {
	TextualDetails
	SourceFiles []string `json:"sourceFiles,omitempty"`
}

func (*HostSourceDetails) kind() Kind { return KindHostSource }

func (d *HostSourceDetails) clone() Details {
	c := *d
	c.TextualDetails = d.TextualDetails.cloneTextual()
	c.SourceFiles = slices.Clone(d.SourceFiles)
	return &c
}

// Info is a per-module build recipe (ModuleDependencyInfo).
type Info struct {
	Resolved bool

	// ModuleImports are names of directly imported modules.
	ModuleImports []string

	// ModuleDependencies are direct module-level dependencies.
	ModuleDependencies []DependencyID

	Details Details
}

// NewForeign creates an Info for a foreign module.
func NewForeign(d ForeignDetails) *Info {
	return &Info{Details: &d}
}

// NewHostInterface creates an Info for a host interface module.
func NewHostInterface(interfacePath, contextHash, bridgingHeader string, commandLine []string) *Info {
	return &Info{
		Details: &HostInterfaceDetails{
			TextualDetails: TextualDetails{
				CommandLine:    commandLine,
				BridgingHeader: bridgingHeader,
			},
			InterfacePath: interfacePath,
			ContextHash:   contextHash,
		},
	}
}

// NewHostSource creates an Info for the host source module.
func NewHostSource(sourceFiles []string, bridgingHeader string, commandLine []string) *Info {
	return &Info{
		Details: &HostSourceDetails{
			TextualDetails: TextualDetails{
				CommandLine:    commandLine,
				BridgingHeader: bridgingHeader,
			},
			SourceFiles: sourceFiles,
		},
	}
}

// Kind returns the kind of the module.
func (m *Info) Kind() Kind {
	return m.Details.kind()
}

// AsForeign returns foreign details if m is a foreign module.
func (m *Info) AsForeign() (*ForeignDetails, bool) {
	d, ok := m.Details.(*ForeignDetails)
	return d, ok
}

// Textual returns the textual host details, or nil for foreign modules.
func (m *Info) Textual() *TextualDetails {
	switch d := m.Details.(type) {
	case *HostInterfaceDetails:
		return &d.TextualDetails
	case *HostSourceDetails:
		return &d.TextualDetails
	}
	return nil
}

// BridgingHeader returns the bridging header path of a host module.
func (m *Info) BridgingHeader() (string, bool) {
	t := m.Textual()
	if t == nil || t.BridgingHeader == "" {
		return "", false
	}
	return t.BridgingHeader, true
}

// HasBridgingDependencies reports whether bridging header dependencies
// were already recorded.
func (m *Info) HasBridgingDependencies() bool {
	t := m.Textual()
	if t == nil {
		return false
	}
	return len(t.BridgingSourceFiles) > 0 || len(t.BridgingModuleDependencies) > 0
}

// SetResolved sets resolved flag.
func (m *Info) SetResolved(v bool) {
	m.Resolved = v
}

// AddModuleImport adds an imported module name unless already present.
func (m *Info) AddModuleImport(name string) {
	if slices.Contains(m.ModuleImports, name) {
		return
	}
	m.ModuleImports = append(m.ModuleImports, name)
}

// AddModuleDependency adds a direct module dependency unless already present.
func (m *Info) AddModuleDependency(id DependencyID) {
	if slices.Contains(m.ModuleDependencies, id) {
		return
	}
	m.ModuleDependencies = append(m.ModuleDependencies, id)
}

// AddBridgingSourceFile adds a file included by the bridging header.
func (m *Info) AddBridgingSourceFile(fname string) error {
	t := m.Textual()
	if t == nil {
		return fmt.Errorf("add bridging source %q: %w", fname, ErrNotTextual)
	}
	if !slices.Contains(t.BridgingSourceFiles, fname) {
		t.BridgingSourceFiles = append(t.BridgingSourceFiles, fname)
	}
	return nil
}

// AddBridgingModuleDependency adds a foreign module the bridging header depends on.
func (m *Info) AddBridgingModuleDependency(name string) error {
	t := m.Textual()
	if t == nil {
		return fmt.Errorf("add bridging module %q: %w", name, ErrNotTextual)
	}
	if !slices.Contains(t.BridgingModuleDependencies, name) {
		t.BridgingModuleDependencies = append(t.BridgingModuleDependencies, name)
	}
	return nil
}

// SetBridgingIncludeTree sets the include tree id of the bridging header.
func (m *Info) SetBridgingIncludeTree(id string) error {
	t := m.Textual()
	if t == nil {
		return fmt.Errorf("set bridging include tree: %w", ErrNotTextual)
	}
	t.BridgingIncludeTreeID = id
	return nil
}

// UpdateBridgingCommandLine replaces the command line used to precompile
// the bridging header.
func (m *Info) UpdateBridgingCommandLine(args []string) error {
	t := m.Textual()
	if t == nil {
		return fmt.Errorf("update bridging command line: %w", ErrNotTextual)
	}
	t.BridgingCommandLine = slices.Clone(args)
	return nil
}

// Clone returns a deep copy of m.
func (m *Info) Clone() *Info {
	if m == nil {
		return nil
	}
	c := &Info{
		Resolved:           m.Resolved,
		ModuleImports:      slices.Clone(m.ModuleImports),
		ModuleDependencies: slices.Clone(m.ModuleDependencies),
	}
	if m.Details != nil {
		c.Details = m.Details.clone()
	}
	return c
}

// mergeFrom overwrites m with newer and keeps bridging lists recorded
// in m that newer doesn't have.
func (m *Info) mergeFrom(newer *Info) *Info {
	merged := newer.Clone()
	merged.Resolved = m.Resolved || newer.Resolved
	old := m.Textual()
	t := merged.Textual()
	if old == nil || t == nil {
		return merged
	}
	for _, f := range old.BridgingSourceFiles {
		if !slices.Contains(t.BridgingSourceFiles, f) {
			t.BridgingSourceFiles = append(t.BridgingSourceFiles, f)
		}
	}
	for _, name := range old.BridgingModuleDependencies {
		if !slices.Contains(t.BridgingModuleDependencies, name) {
			t.BridgingModuleDependencies = append(t.BridgingModuleDependencies, name)
		}
	}
	if t.BridgingIncludeTreeID == "" {
		t.BridgingIncludeTreeID = old.BridgingIncludeTreeID
	}
	if len(t.BridgingCommandLine) == 0 {
		t.BridgingCommandLine = slices.Clone(old.BridgingCommandLine)
	}
	return merged
}

// directDependencies returns module dependencies and bridging module
// dependencies.
func (m *Info) directDependencies() []DependencyID {
	deps := slices.Clone(m.ModuleDependencies)
	if t := m.Textual(); t != nil {
		for _, name := range t.BridgingModuleDependencies {
			id := Foreign(name)
			if !slices.Contains(deps, id) {
				deps = append(deps, id)
			}
		}
	}
	return deps
}

type infoJSON struct {
	Kind               string                `json:"kind"`
	Resolved           bool                  `json:"resolved"`
	ModuleImports      []string              `json:"moduleImports,omitempty"`
	ModuleDependencies []DependencyID        `json:"directDependencies,omitempty"`
	Foreign            *ForeignDetails       `json:"foreign,omitempty"`
	HostInterface      *HostInterfaceDetails `json:"hostInterface,omitempty"`
	HostSource         *HostSourceDetails    `json:"hostSource,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (m *Info) MarshalJSON() ([]byte, error) {
	v := infoJSON{
		Resolved:           m.Resolved,
		ModuleImports:      m.ModuleImports,
		ModuleDependencies: m.ModuleDependencies,
	}
	switch d := m.Details.(type) {
	case *ForeignDetails:
		v.Foreign = d
	case *HostInterfaceDetails:
		v.HostInterface = d
	case *HostSourceDetails:
		v.HostSource = d
	default:
		return nil, fmt.Errorf("unexpected module details %T", m.Details)
	}
	v.Kind = m.Kind().String()
	return json.Marshal(v)
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Info) UnmarshalJSON(b []byte) error {
	var v infoJSON
	err := json.Unmarshal(b, &v)
	if err != nil {
		return err
	}
	k, err := ParseKind(v.Kind)
	if err != nil {
		return err
	}
	*m = Info{
		Resolved:           v.Resolved,
		ModuleImports:      v.ModuleImports,
		ModuleDependencies: v.ModuleDependencies,
	}
	switch {
	case k == KindForeign && v.Foreign != nil:
		m.Details = v.Foreign
	case k == KindHostInterface && v.HostInterface != nil:
		m.Details = v.HostInterface
	case k == KindHostSource && v.HostSource != nil:
		m.Details = v.HostSource
	default:
		return fmt.Errorf("module details missing for kind %s", k)
	}
	return nil
}

// Entry is a pair of id and info in a Vector.
type Entry struct {
	ID   DependencyID
	Info *Info
}

// Vector is a sequence of module dependency records in scanner
// emission order.
type Vector []Entry
