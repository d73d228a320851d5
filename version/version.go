package version

// version is set at build time via -ldflags "-X github.com/ghostlogic/agent-installer/version.version=..."
var version = "development"

// InstallerVersion returns the installer build version.
func InstallerVersion() string {
	return version
}
