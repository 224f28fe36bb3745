// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package shutil provides utilities of shell command lines.
package shutil

import (
	"fmt"
	"strings"
)

// metachars are shell metacharacters that need a shell to interpret.
const metachars = ";&|<>`$()"

// Split splits a command line into arguments.
//
// It handles single and double quotes and backslash escapes.
// It returns error for command lines that need a shell, e.g. pipes,
// redirects or variable expansions.
func Split(cmdline string) ([]string, error) {
	var args []string
	var sb strings.Builder
	inArg := false
	var quote rune
	escaped := false
	for i, ch := range cmdline {
		switch {
		case escaped:
			sb.WriteRune(ch)
			escaped = false
		case quote == '\'':
			if ch == '\'' {
				quote = 0
				continue
			}
			sb.WriteRune(ch)
		case quote == '"':
			switch ch {
			case '"':
				quote = 0
			case '\\':
				escaped = true
			default:
				sb.WriteRune(ch)
			}
		case ch == ' ' || ch == '\t' || ch == '\n':
			if inArg {
				args = append(args, sb.String())
				sb.Reset()
				inArg = false
			}
		case ch == '\\':
			escaped = true
			inArg = true
		case ch == '\'' || ch == '"':
			quote = ch
			inArg = true
		case strings.ContainsRune(metachars, ch):
			return nil, fmt.Errorf("shell metachar %c at %d in %q", ch, i, cmdline)
		default:
			sb.WriteRune(ch)
			inArg = true
		}
	}
	switch {
	case escaped:
		return nil, fmt.Errorf("trailing backslash in %q", cmdline)
	case quote != 0:
		return nil, fmt.Errorf("unterminated %c in %q", quote, cmdline)
	}
	if inArg {
		args = append(args, sb.String())
	}
	if len(args) > 0 && strings.Contains(args[0], "=") {
		return nil, fmt.Errorf("argv[0] sets env var %q", args[0])
	}
	return args, nil
}
