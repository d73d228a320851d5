package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/ghostlogic/agent-installer/internal/platform"
	"github.com/ghostlogic/agent-installer/util"
)

// ErrDependencyMissing means the host lacks a Python runtime to build the
// agent's sandbox from.
var ErrDependencyMissing = errors.New("python runtime not found")

// VenvProvisioner builds the virtualenv the agent runs inside, keeping its
// dependencies out of the host's global site-packages.
type VenvProvisioner struct {
	Kind      platform.Kind
	Dir       string
	SourceDir string

	// seams for tests
	run      func(ctx context.Context, name string, args ...string) error
	lookPath func(file string) (string, error)
}

func NewVenvProvisioner(kind platform.Kind, dir, sourceDir string) *VenvProvisioner {
	return &VenvProvisioner{
		Kind:      kind,
		Dir:       dir,
		SourceDir: sourceDir,
		run:       runCommand,
		lookPath:  exec.LookPath,
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, string(out))
	}
	return nil
}

// Python returns the sandbox interpreter path.
func (p *VenvProvisioner) Python() string {
	if p.Kind == platform.Windows {
		return filepath.Join(p.Dir, "Scripts", "python.exe")
	}
	return filepath.Join(p.Dir, "bin", "python")
}

// Ensure makes the sandbox exist and be functional. A healthy sandbox is
// reused unmodified; anything else is rebuilt from scratch. On failure no
// partial sandbox is left behind that could pass for a complete one.
func (p *VenvProvisioner) Ensure(ctx context.Context) error {
	hostPython, err := p.findHostPython()
	if err != nil {
		return err
	}

	if p.healthy() {
		log.Infof("reusing existing virtualenv %s", p.Dir)
		return nil
	}

	if err := util.RemoveIfExists(p.Dir); err != nil {
		return fmt.Errorf("remove stale virtualenv: %w", err)
	}

	log.Infof("creating virtualenv %s", p.Dir)
	if err := p.run(ctx, hostPython, "-m", "venv", p.Dir); err != nil {
		_ = os.RemoveAll(p.Dir)
		return fmt.Errorf("create virtualenv: %w", err)
	}

	requirements := filepath.Join(p.SourceDir, "requirements.txt")
	if util.FileExists(requirements) {
		if err := p.run(ctx, p.Python(), "-m", "pip", "install", "--quiet", "-r", requirements); err != nil {
			_ = os.RemoveAll(p.Dir)
			return fmt.Errorf("install agent dependencies: %w", err)
		}
	}

	return nil
}

// healthy reports whether the sandbox looks complete: the venv marker and
// its interpreter both exist.
func (p *VenvProvisioner) healthy() bool {
	return util.FileExists(filepath.Join(p.Dir, "pyvenv.cfg")) && util.FileExists(p.Python())
}

func (p *VenvProvisioner) findHostPython() (string, error) {
	candidates := []string{"python3", "python"}
	if p.Kind == platform.Windows {
		candidates = []string{"python", "py"}
	}

	for _, c := range candidates {
		if path, err := p.lookPath(c); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrDependencyMissing, p.remediation())
}

func (p *VenvProvisioner) remediation() string {
	switch p.Kind {
	case platform.Windows:
		return "install Python 3 from https://www.python.org/downloads/ and ensure python.exe is on PATH"
	case platform.Darwin:
		return "install Python 3, e.g. brew install python3"
	default:
		return "install Python 3 with your package manager, e.g. apt install python3 python3-venv"
	}
}
