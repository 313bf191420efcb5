// Copyright 2025 The allocctx Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Goroutine ID extraction.
//
// The tracker registry is keyed by goroutine ID, the Go equivalent of a
// thread identity. Two paths are provided:
//   - getGoroutineID(): hot path, reads g.goid through petermattis/goid
//     (assembly on supported platforms, ~1-2ns)
//   - getGoroutineIDSlow(): runtime.Stack parsing (~1500ns), used to
//     validate the fast path in tests
//
// Live goroutine enumeration for the tracker sweep also parses
// runtime.Stack output, see parseAllGIDs.

package api

import (
	"runtime"

	"github.com/petermattis/goid"
)

// getGoroutineID returns the ID of the calling goroutine.
//
// Goroutine IDs are positive and never reused by the runtime, which is what
// guarantees that a goroutine never inherits another goroutine's tracker.
func getGoroutineID() int64 {
	return goid.Get()
}

// getGoroutineIDSlow extracts the goroutine ID by parsing runtime.Stack
// output.
//
// Stack trace format: "goroutine 123 [running]:\n..."
//
// Returns:
//   - int64: Goroutine ID (always positive), or 0 if parsing fails
func getGoroutineIDSlow() int64 {
	// Only the first line is needed.
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return parseGID(buf[:n])
}

// parseGID extracts the goroutine ID from stack trace bytes.
//
// Expected format: "goroutine 123 [running]:..."
// Returns the numeric ID (123 in this example) or 0 if parsing fails.
func parseGID(buf []byte) int64 {
	const prefix = "goroutine "

	if len(buf) < len(prefix) || string(buf[:len(prefix)]) != prefix {
		return 0
	}

	var gid int64
	digits := 0
	for _, c := range buf[len(prefix):] {
		if c < '0' || c > '9' {
			break
		}
		gid = gid*10 + int64(c-'0')
		digits++
	}
	if digits == 0 {
		return 0
	}
	return gid
}

// getLiveGoroutineIDs returns the IDs of all live goroutines.
//
// runtime.Stack(all=true) stops the world, so this is only called from the
// tracker sweep, never from the hot path. The buffer grows until the whole
// dump fits: a truncated dump would make live goroutines look dead.
func getLiveGoroutineIDs() []int64 {
	size := 64 * 1024
	for {
		buf := make([]byte, size)
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			return parseAllGIDs(buf[:n])
		}
		size *= 2
	}
}

// parseAllGIDs parses runtime.Stack(all=true) output.
//
// Input format (example):
//
//	goroutine 1 [running]:
//	main.main()
//	    /path/to/main.go:10 +0x20
//
//	goroutine 5 [chan receive]:
//	main.worker()
//	    /path/to/main.go:20 +0x40
//
// We extract: [1, 5]
func parseAllGIDs(buf []byte) []int64 {
	var gids []int64

	i := 0
	for i < len(buf) {
		end := i
		for end < len(buf) && buf[end] != '\n' {
			end++
		}

		if gid := parseGID(buf[i:end]); gid != 0 {
			gids = append(gids, gid)
		}

		i = end + 1
	}

	return gids
}
