// Package version holds the registration protocol's version constants and
// compatibility rules.
package version

import (
	"strconv"
	"strings"
)

// ProtocolVersion is the current semver of the registration protocol.
const ProtocolVersion = "1.0.0"

const (
	ProtocolMajor = 1
	ProtocolMinor = 0
	ProtocolPatch = 0
)

// Info describes the protocol version in structured form.
type Info struct {
	Version string `json:"version"`
	Major   int    `json:"major"`
	Minor   int    `json:"minor"`
	Patch   int    `json:"patch"`
}

// Current returns the protocol's current version information.
func Current() Info {
	return Info{
		Version: ProtocolVersion,
		Major:   ProtocolMajor,
		Minor:   ProtocolMinor,
		Patch:   ProtocolPatch,
	}
}

// IsCompatible reports whether a manifest declaring manifestVersion can be
// accepted by this build of the protocol.
//
// Compatible means the major version matches exactly and the manifest's
// minor version is less than or equal to the protocol's minor version. Any
// malformed version string (not exactly three dot-separated numeric
// segments) is incompatible.
func IsCompatible(manifestVersion string) bool {
	parts := strings.Split(manifestVersion, ".")
	if len(parts) != 3 {
		return false
	}

	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return false
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return false
	}
	patch, err := strconv.Atoi(parts[2])
	if err != nil || minor < 0 || patch < 0 {
		return false
	}

	if major != ProtocolMajor {
		return false
	}
	return minor <= ProtocolMinor
}
