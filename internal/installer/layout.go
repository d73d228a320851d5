package installer

import (
	"os"
	"path/filepath"

	"github.com/ghostlogic/agent-installer/internal/platform"
)

// Layout is the filesystem placement of an installation: the agent source
// tree, its virtualenv sandbox, the configuration file and the log
// directory, plus the platform's service name.
type Layout struct {
	Kind        platform.Kind
	InstallDir  string
	VenvDir     string
	ConfigPath  string
	LogDir      string
	ServiceName string
}

// DefaultLayout returns the canonical installation layout for a platform.
func DefaultLayout(kind platform.Kind) Layout {
	switch kind {
	case platform.Darwin:
		return Layout{
			Kind:        kind,
			InstallDir:  "/usr/local/lib/ghostlogic/agent",
			VenvDir:     "/usr/local/lib/ghostlogic/venv",
			ConfigPath:  "/usr/local/etc/ghostlogic/agent-config.json",
			LogDir:      "/usr/local/var/log/ghostlogic",
			ServiceName: "tech.ghostlogic.agent",
		}
	case platform.Windows:
		base := os.Getenv("PROGRAMDATA")
		if base == "" {
			base = `C:\ProgramData`
		}
		return Layout{
			Kind:        kind,
			InstallDir:  filepath.Join(base, "GhostLogic", "agent"),
			VenvDir:     filepath.Join(base, "GhostLogic", "venv"),
			ConfigPath:  filepath.Join(base, "GhostLogic", "agent-config.json"),
			LogDir:      filepath.Join(base, "GhostLogic", "logs"),
			ServiceName: "GhostLogicAgent",
		}
	default:
		return Layout{
			Kind:        kind,
			InstallDir:  "/opt/ghostlogic/agent",
			VenvDir:     "/opt/ghostlogic/venv",
			ConfigPath:  "/etc/ghostlogic/agent-config.json",
			LogDir:      "/var/log/ghostlogic",
			ServiceName: "ghostlogic-agent",
		}
	}
}

// VenvPython returns the sandbox interpreter path.
func (l Layout) VenvPython() string {
	if l.Kind == platform.Windows {
		return filepath.Join(l.VenvDir, "Scripts", "python.exe")
	}
	return filepath.Join(l.VenvDir, "bin", "python")
}

// ConfigDir returns the directory holding the configuration file.
func (l Layout) ConfigDir() string {
	return filepath.Dir(l.ConfigPath)
}
