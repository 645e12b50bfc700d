// Package buildinfo carries build-time metadata, kept apart from user configuration.
package buildinfo

import "fmt"

const unknown = "unknown"

// Info is injected at startup from -ldflags variables
type Info struct {
	// Version is the git tag the binary was built from
	Version string
	// BuildDate is when the binary was built
	BuildDate string
}

// GetVersion returns the version, or "unknown" when it was not set
func (i *Info) GetVersion() string {
	if i == nil || i.Version == "" {
		return unknown
	}
	return i.Version
}

// GetBuildDate returns the build date, or "unknown" when it was not set
func (i *Info) GetBuildDate() string {
	if i == nil || i.BuildDate == "" {
		return unknown
	}
	return i.BuildDate
}

// String formats the info for --version output
func (i *Info) String() string {
	return fmt.Sprintf("%s (built %s)", i.GetVersion(), i.GetBuildDate())
}
