package version

// These variables are populated by the Go linker (LDFLAGS) at build time.
var (
	Version    = "dev"     // Default value if not built with LDFLAGS
	CommitHash = "unknown" // Default value
	BuildDate  = "unknown" // Default value
)

// Package identity reported by the "about" and "version" commands.
const (
	Name        = "dkoosis/sasswatch"
	CLIName     = "CSS-CLI TOOL"
	Description = "Watches sass directories, compiles them with dart-sass and post-processes the generated css"
	Author      = "dkoosis"
	License     = "MIT"
)

// Summary returns "name version (commit, date)".
func Summary() string {
	return Name + " " + Version + " (" + CommitHash + ", " + BuildDate + ")"
}
