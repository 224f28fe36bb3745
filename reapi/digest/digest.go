// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package digest computes content digests in the remote execution API
// form. They are used as cache keys of module build commands.
//
// You can find the Digest proto in REAPI here:
// https://github.com/bazelbuild/remote-apis/blob/c1c1ad2c97ed18943adb55f06657440daa60d833/build/bazel/remote/execution/v2/remote_execution.proto#L633
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	rpb "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
)

// Digest is a sha256 digest of content.
type Digest struct {
	Hash      string `json:"hash,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
}

func ofBytes(b []byte) Digest {
	h := sha256.Sum256(b)
	return Digest{
		Hash:      hex.EncodeToString(h[:]),
		SizeBytes: int64(len(b)),
	}
}

// FromArgs returns the digest of a command line.
// Each argument is terminated by NUL, so that ["a b"] and ["a", "b"]
// have different digests.
func FromArgs(args []string) Digest {
	var buf []byte
	for _, arg := range args {
		buf = append(buf, arg...)
		buf = append(buf, 0)
	}
	return ofBytes(buf)
}

// FromProto converts from digest proto.
func FromProto(d *rpb.Digest) Digest {
	if d == nil {
		return Digest{}
	}
	return Digest{
		Hash:      d.Hash,
		SizeBytes: d.SizeBytes,
	}
}

// Proto returns digest proto.
func (d Digest) Proto() *rpb.Digest {
	if d.IsZero() {
		return nil
	}
	return &rpb.Digest{
		Hash:      d.Hash,
		SizeBytes: d.SizeBytes,
	}
}

// IsZero returns true when digest is zero value (not the digest of empty content).
func (d Digest) IsZero() bool {
	return d.Hash == ""
}

// String returns "hash/size_bytes".
func (d Digest) String() string {
	return fmt.Sprintf("%s/%d", d.Hash, d.SizeBytes)
}
