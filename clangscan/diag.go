// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package clangscan

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// Diagnostics receives dependency scan errors for the user.
type Diagnostics interface {
	ClangDependencyScanError(msg string)
}

// LogDiagnostics reports diagnostics to the log.
type LogDiagnostics struct{}

// ClangDependencyScanError logs msg as an error.
func (LogDiagnostics) ClangDependencyScanError(msg string) {
	log.Errorf("clang dependency scanner failure: %s", msg)
}

// DiagnosticCollector collects diagnostics.
type DiagnosticCollector struct {
	mu   sync.Mutex
	msgs []string
}

// ClangDependencyScanError records msg.
func (d *DiagnosticCollector) ClangDependencyScanError(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.msgs = append(d.msgs, msg)
}

// Messages returns recorded messages.
func (d *DiagnosticCollector) Messages() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.msgs)
}

// isModuleNotFound reports whether scanner error msg is that module name
// is not found.
func isModuleNotFound(msg, name string) bool {
	return strings.Contains(msg, fmt.Sprintf("fatal error: module '%s' not found", name))
}
