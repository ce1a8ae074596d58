package version

// Version is the release version of the daylevels toolchain. Overridden at
// build time via -ldflags for tagged builds.
var Version = "main"
