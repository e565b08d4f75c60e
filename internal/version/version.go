// Package version holds the build-time version of the jxscout client.
package version

// Overridden at build time:
// go build -ldflags "-X jxscout/internal/version.Version=0.4.0 -X jxscout/internal/version.Commit=abc123"
var (
	// Version is the semantic version of the client
	Version = "0.3.0"

	// Commit is the git commit hash (set at build time)
	Commit = "unknown"

	// BuildDate is the build timestamp (set at build time)
	BuildDate = "unknown"
)

// Info returns a formatted version string
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns complete version information
func Full() string {
	return "jxscout version " + Version + "\n" +
		"Commit: " + Commit + "\n" +
		"Built: " + BuildDate
}

// UserAgent is sent on outbound HTTP requests.
func UserAgent() string {
	return "jxscout-client/" + Version
}
