// Package version reports the build version of the penistats agent.
package version

// Overridden with -ldflags "-X github.com/carverauto/penistats/pkg/version.version=<v>".
//
//nolint:gochecknoglobals // ldflags injection target
var (
	version = "dev"
	buildID = "dev"
)

func GetVersion() string { return version }

func GetBuildID() string { return buildID }

// GetFullVersion renders "<version> (build: <id>)".
func GetFullVersion() string {
	return version + " (build: " + buildID + ")"
}
