package platform

import (
	"errors"
	"fmt"
	"runtime"
)

// Kind identifies a supported host platform and selects the matching
// service-manager backend.
type Kind string

const (
	Linux   Kind = "linux"
	Darwin  Kind = "darwin"
	Windows Kind = "windows"
)

var (
	// ErrUnsupported is returned for platforms without a service backend.
	ErrUnsupported = errors.New("unsupported platform")

	// ErrNotElevated is returned when the process lacks the privileges
	// required for system-wide changes.
	ErrNotElevated = errors.New("insufficient privileges")
)

// Detect returns the platform the installer is running on. Anything outside
// linux, macos and windows is rejected, no closest match is guessed.
func Detect() (Kind, error) {
	return fromGOOS(runtime.GOOS)
}

func fromGOOS(goos string) (Kind, error) {
	switch goos {
	case "linux":
		return Linux, nil
	case "darwin":
		return Darwin, nil
	case "windows":
		return Windows, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, goos)
	}
}

// ElevationHint returns the remediation text for a missing-elevation failure.
func (k Kind) ElevationHint() string {
	if k == Windows {
		return "run the installer from an elevated (Administrator) prompt"
	}
	return "re-run the installer as root, e.g. with sudo"
}

func (k Kind) String() string {
	return string(k)
}
