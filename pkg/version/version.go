// Package version holds build-time identity for the stonegate binary.
package version

import "fmt"

// Version, GitCommit, and BuildDate are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/stonegate-lab/stonegate/pkg/version.Version=v1.0.0 \
//	  -X github.com/stonegate-lab/stonegate/pkg/version.GitCommit=abc1234 \
//	  -X github.com/stonegate-lab/stonegate/pkg/version.BuildDate=2026-01-01T00:00:00Z"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// ProtocolVersion is the semver of the websocket/RPC wire protocol.
// A breaking change to message shapes or the RPC method table bumps major.
const ProtocolVersion = "1.0.0"

// Capabilities lists the optional feature surfaces this build exposes
// through backend.info. It is a plain slice rather than a bitmask so new
// capabilities can be appended without a migration.
var Capabilities = []string{"simulation", "recording", "schematics", "qec"}

// Info returns a single human-readable identity line for startup banners.
func Info() string {
	return fmt.Sprintf("stonegate %s (%s, built %s)", Version, GitCommit, BuildDate)
}
