package allocctx

import (
	"fmt"

	"golang.org/x/mod/semver"
)

// Version information for allocctx.
const (
	// Version is the current version of the tracker runtime.
	Version = "0.1.0"

	// VersionMajor is the major version number.
	VersionMajor = 0

	// VersionMinor is the minor version number.
	VersionMinor = 1

	// VersionPatch is the patch version number.
	VersionPatch = 0
)

// Info provides runtime information about the tracker.
type Info struct {
	// Version is the runtime version string.
	Version string

	// MaxDepth is the pseudo-stack ceiling.
	MaxDepth int

	// DebugChecks indicates whether nesting assertions are compiled in.
	DebugChecks bool

	// CaptureEnabled is the current state of the capture flag.
	CaptureEnabled bool
}

// GetInfo returns information about the tracker runtime.
//
// Example:
//
//	info := allocctx.GetInfo()
//	fmt.Printf("allocctx %s (debug=%t)\n", info.Version, info.DebugChecks)
func GetInfo() Info {
	return Info{
		Version:        Version,
		MaxDepth:       MaxDepth,
		DebugChecks:    DebugChecks,
		CaptureEnabled: CaptureEnabled(),
	}
}

// Compatible reports whether this runtime is at least version min.
// min is a semantic version with or without the leading "v".
func Compatible(min string) (bool, error) {
	if len(min) > 0 && min[0] != 'v' {
		min = "v" + min
	}
	if !semver.IsValid(min) {
		return false, fmt.Errorf("invalid version %q", min)
	}
	return semver.Compare("v"+Version, min) >= 0, nil
}
