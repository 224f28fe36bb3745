// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package ui reports scan progress to the log.
package ui

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// FormatDuration formats duration in "X.XXs", "XmXX.XXs" or "XhXmXX.XXs".
func FormatDuration(d time.Duration) string {
	d = d.Round(10 * time.Millisecond)
	var sb strings.Builder
	mins := d.Truncate(time.Minute)
	d -= mins
	if mins > 0 {
		sb.WriteString(strings.TrimSuffix(mins.String(), "0s"))
		if d < 10*time.Second {
			sb.WriteByte('0')
		}
	}
	fmt.Fprintf(&sb, "%.02fs", d.Seconds())
	return sb.String()
}

// Progress reports progress of scans.
// It is safe for concurrent use.
type Progress struct {
	total   int
	started time.Time
	now     func() time.Time

	done   atomic.Int64
	failed atomic.Int64
}

// NewProgress creates a progress of total scans.
func NewProgress(total int) *Progress {
	return &Progress{
		total:   total,
		started: time.Now(),
		now:     time.Now,
	}
}

func (p *Progress) elapsed() string {
	return FormatDuration(p.now().Sub(p.started))
}

// Done reports a finished scan of name.
func (p *Progress) Done(name string, err error) {
	n := p.done.Add(1)
	if err != nil {
		p.failed.Add(1)
		log.Warnf("[%d/%d] %s %s failed: %v", n, p.total, p.elapsed(), name, err)
		return
	}
	log.Infof("[%d/%d] %s %s", n, p.total, p.elapsed(), name)
}

// Failed returns the number of failed scans.
func (p *Progress) Failed() int {
	return int(p.failed.Load())
}

// Summary returns a summary of finished scans.
func (p *Progress) Summary() string {
	done := p.done.Load()
	failed := p.failed.Load()
	if failed == 0 {
		return fmt.Sprintf("%d/%d scans done in %s", done, p.total, p.elapsed())
	}
	return fmt.Sprintf("%d/%d scans done in %s, %d failed", done, p.total, p.elapsed(), failed)
}
