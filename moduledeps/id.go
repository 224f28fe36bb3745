// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package moduledeps

import (
	"fmt"
	"strings"
)

// ModuleID identifies a foreign module as reported by the dependency scanner.
// ContextHash distinguishes the same module built under different
// configurations.
type ModuleID struct {
	Name        string `json:"module-name"`
	ContextHash string `json:"context-hash"`
}

// String returns "Name-ContextHash".
func (id ModuleID) String() string {
	return id.Name + "-" + id.ContextHash
}

// Kind is a kind of module in the dependency graph.
type Kind int

const (
	// KindHostInterface is a host module built from a textual interface.
	KindHostInterface Kind = iota
	// KindHostSource is the host module whose sources are being compiled.
	KindHostSource
	// KindForeign is a header/module-map based foreign module.
	KindForeign
)

var kindNames = map[Kind]string{
	KindHostInterface: "hostInterface",
	KindHostSource:    "hostSource",
	KindForeign:       "foreign",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// artifactSuffix is used when rendering dependency paths in diagnostics.
func (k Kind) artifactSuffix() string {
	switch k {
	case KindHostInterface:
		return ".hostinterface"
	case KindHostSource:
		return ".hostsource"
	case KindForeign:
		return ".pcm"
	}
	return ""
}

// ParseKind parses kind name.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown module kind %q", s)
}

// DependencyID is a unique key in the dependency graph.
type DependencyID struct {
	Name string
	Kind Kind
}

// Foreign returns the DependencyID of the foreign module name.
func Foreign(name string) DependencyID {
	return DependencyID{Name: name, Kind: KindForeign}
}

// Encode returns "kind:name" form used in graph outputs.
func (id DependencyID) Encode() string {
	return id.Kind.String() + ":" + id.Name
}

func (id DependencyID) String() string {
	return id.Encode()
}

// ParseDependencyID parses "kind:name" form.
func ParseDependencyID(s string) (DependencyID, error) {
	kind, name, ok := strings.Cut(s, ":")
	if !ok || name == "" {
		return DependencyID{}, fmt.Errorf("malformed dependency id %q", s)
	}
	k, err := ParseKind(kind)
	if err != nil {
		return DependencyID{}, err
	}
	return DependencyID{Name: name, Kind: k}, nil
}

// MarshalText implements encoding.TextMarshaler.
func (id DependencyID) MarshalText() ([]byte, error) {
	return []byte(id.Encode()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *DependencyID) UnmarshalText(b []byte) error {
	v, err := ParseDependencyID(string(b))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

// OutputKind selects which artifact of a foreign module to compute.
type OutputKind int

const (
	// ModuleFile is the precompiled module file.
	ModuleFile OutputKind = iota
	// DependencyFile is the make-style dependency file.
	DependencyFile
	// DependencyTargets is the build-system target name of the module.
	DependencyTargets
	// DiagnosticSerializationFile is the serialized diagnostics file.
	DiagnosticSerializationFile
)

func (k OutputKind) String() string {
	switch k {
	case ModuleFile:
		return "module-file"
	case DependencyFile:
		return "dependency-file"
	case DependencyTargets:
		return "dependency-targets"
	case DiagnosticSerializationFile:
		return "diagnostic-serialization-file"
	}
	return fmt.Sprintf("OutputKind(%d)", int(k))
}
