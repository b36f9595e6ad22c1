package app

import "fmt"

// Version, Commit, and BuildTime are set via ldflags at build time.
// Example: go build -ldflags "-X github.com/casegate/casegate-backend/internal/app.Version=1.0.0"
var (
	Version   = "dev"
	Commit    = ""
	BuildTime = ""
)

// BuildVersion returns the version reported by startup logs and /health.
func BuildVersion() string {
	switch {
	case Commit == "":
		return Version
	case BuildTime == "":
		return fmt.Sprintf("%s+%s", Version, Commit)
	default:
		return fmt.Sprintf("%s+%s (%s)", Version, Commit, BuildTime)
	}
}
