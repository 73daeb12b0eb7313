// Package buildinfo contains build-time metadata kept separate from user configuration
package buildinfo

import "runtime/debug"

// UnknownValue is reported for metadata that was not injected at build time
const UnknownValue = "unknown"

// Context contains build-time metadata that is not user-configurable.
// It is created once in main and passed to the commands.
type Context struct {
	// Version holds the Git version tag from build
	Version string

	// BuildDate is the time when the binary was built
	BuildDate string

	// Revision is the VCS commit recorded by the Go toolchain
	Revision string
}

// NewContext creates a build context, taking the revision from the
// binary's embedded build information when available.
func NewContext(version, buildDate string) *Context {
	c := &Context{Version: version, BuildDate: buildDate}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				c.Revision = s.Value
			}
		}
	}
	return c
}

// GetVersion returns the version or UnknownValue
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return UnknownValue
	}
	return c.Version
}

// GetBuildDate returns the build date or UnknownValue
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return UnknownValue
	}
	return c.BuildDate
}

// GetRevision returns the short commit hash or UnknownValue
func (c *Context) GetRevision() string {
	if c == nil || c.Revision == "" {
		return UnknownValue
	}
	if len(c.Revision) > 12 {
		return c.Revision[:12]
	}
	return c.Revision
}
