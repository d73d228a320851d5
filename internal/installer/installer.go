// Package installer sequences the install, upgrade and uninstall flows for
// the GhostLogic Black Box Agent: stop a prior instance, provision the
// runtime sandbox, deploy the agent tree, synthesize the configuration and
// register/start the platform service.
package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"

	"github.com/ghostlogic/agent-installer/internal/config"
	"github.com/ghostlogic/agent-installer/internal/platform"
	"github.com/ghostlogic/agent-installer/internal/service"
	"github.com/ghostlogic/agent-installer/util"
)

// Options carries the operator-supplied install parameters.
type Options struct {
	BlackboxURL string
	TenantKey   string
	DemoMode    bool
	SourceDir   string
}

// Provisioner builds the agent's isolated runtime sandbox.
type Provisioner interface {
	Ensure(ctx context.Context) error
}

// Installer drives the lifecycle flows. Everything is strictly sequential;
// each step is an idempotent blocking call, so recovery from a killed run is
// simply running the installer again.
type Installer struct {
	layout    Layout
	registrar service.Registrar
	opts      Options

	// Provisioner, DeployFunc, Confirm and Elevated are seams so the flows
	// are testable without a host Python, a real service manager or a
	// terminal. Confirm defaults to "preserve": destructive cleanup needs an
	// explicit affirmative.
	Provisioner Provisioner
	DeployFunc  func(src, dst string) error
	Confirm     func(prompt string) bool
	Elevated    func() bool

	// Grace is the best-effort wait after stopping a prior service, letting
	// the OS release file handles before the install dir is touched.
	Grace      time.Duration
	VerifyWait time.Duration
}

// New returns an Installer wired with the real components.
func New(layout Layout, registrar service.Registrar, opts Options) *Installer {
	return &Installer{
		layout:      layout,
		registrar:   registrar,
		opts:        opts,
		Provisioner: NewVenvProvisioner(layout.Kind, layout.VenvDir, opts.SourceDir),
		DeployFunc:  Deploy,
		Confirm:     func(string) bool { return false },
		Elevated:    util.IsAdmin,
		Grace:       2 * time.Second,
		VerifyWait:  10 * time.Second,
	}
}

// Install performs a fresh install or an upgrade. A prior service instance
// is stopped before the install directory is modified; registration and
// start failures degrade to warnings because the files and configuration are
// already in place and the operator can retry through the service manager.
func (i *Installer) Install(ctx context.Context) error {
	if err := i.requireElevation(); err != nil {
		return err
	}

	name := i.layout.ServiceName
	if running, _ := i.registrar.IsRunning(ctx, name); running {
		log.Infof("stopping running service %s before deployment", name)
		if err := i.registrar.Stop(ctx, name); err != nil {
			// best effort, the goal is only to vacate the install dir
			log.Warnf("failed to stop service %s: %v", name, err)
		}
		time.Sleep(i.Grace)
	}

	if err := i.Provisioner.Ensure(ctx); err != nil {
		return err
	}

	if err := i.DeployFunc(i.opts.SourceDir, i.layout.InstallDir); err != nil {
		return err
	}

	if err := os.MkdirAll(i.layout.LogDir, 0750); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	if _, err := config.Synthesize(ctx, i.layout.ConfigPath, config.SynthesizeOptions{
		BlackboxURL: i.opts.BlackboxURL,
		TenantKey:   i.opts.TenantKey,
		DemoMode:    i.opts.DemoMode,
		LogDir:      i.layout.LogDir,
	}); err != nil {
		return err
	}

	if err := i.registrar.Register(ctx, i.Definition()); err != nil {
		log.Warnf("service registration failed: %v", err)
		log.Warnf("files are installed; re-run install after checking %s", i.serviceLogHint())
		return nil
	}

	if err := i.registrar.Start(ctx, name); err != nil {
		log.Warnf("service start failed: %v", err)
		log.Warnf("installation is complete; inspect %s", i.serviceLogHint())
		return nil
	}

	if err := i.verifyRunning(ctx, name); err != nil {
		log.Warnf("service %s was not observed running: %v", name, err)
		log.Warnf("installation is complete; inspect %s", i.serviceLogHint())
	} else {
		log.Infof("service %s is running", name)
	}

	return nil
}

// Uninstall stops and unregisters the service and removes the installed
// files. Configuration and logs are only removed after an explicit
// affirmative answer; anything else preserves them.
func (i *Installer) Uninstall(ctx context.Context) error {
	if err := i.requireElevation(); err != nil {
		return err
	}

	name := i.layout.ServiceName
	if running, _ := i.registrar.IsRunning(ctx, name); running {
		if err := i.registrar.Stop(ctx, name); err != nil {
			log.Warnf("failed to stop service %s: %v", name, err)
		}
		time.Sleep(i.Grace)
	}

	if err := i.registrar.Unregister(ctx, name); err != nil {
		log.Warnf("failed to unregister service %s: %v, remove it manually", name, err)
	}

	if err := util.RemoveIfExists(i.layout.InstallDir); err != nil {
		return err
	}
	if err := util.RemoveIfExists(i.layout.VenvDir); err != nil {
		return err
	}
	log.Infof("removed installed agent files")

	if i.Confirm("Remove configuration and logs as well? [y/N]: ") {
		if err := util.RemoveIfExists(i.layout.LogDir); err != nil {
			return err
		}
		if err := util.RemoveIfExists(i.layout.ConfigDir()); err != nil {
			return err
		}
		log.Infof("removed configuration and log directories")
	} else {
		log.Infof("preserved configuration %s and logs %s", i.layout.ConfigPath, i.layout.LogDir)
	}

	return nil
}

// Definition assembles the service definition launching the agent from its
// sandbox interpreter with the effective config path.
func (i *Installer) Definition() service.Definition {
	return service.Definition{
		Name:        i.layout.ServiceName,
		DisplayName: "GhostLogic Black Box Agent",
		Description: "GhostLogic black box telemetry agent",
		Executable:  i.layout.VenvPython(),
		WorkingDir:  i.layout.InstallDir,
		Args:        []string{"-m", "agent", "--foreground", "--config", i.layout.ConfigPath},
		Env:         map[string]string{"GHOSTLOGIC_CONFIG": i.layout.ConfigPath},
		StdoutPath:  filepath.Join(i.layout.LogDir, "agent.out.log"),
		StderrPath:  filepath.Join(i.layout.LogDir, "agent.err.log"),
	}
}

func (i *Installer) requireElevation() error {
	if i.Elevated() {
		return nil
	}
	return fmt.Errorf("%w: %s", platform.ErrNotElevated, i.layout.Kind.ElevationHint())
}

// verifyRunning polls the service state for a short period after start.
func (i *Installer) verifyRunning(ctx context.Context, name string) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = i.VerifyWait

	return backoff.Retry(func() error {
		running, err := i.registrar.IsRunning(ctx, name)
		if err != nil {
			return err
		}
		if !running {
			return errors.New("not yet in running state")
		}
		return nil
	}, backoff.WithContext(bo, ctx))
}

func (i *Installer) serviceLogHint() string {
	switch i.layout.Kind {
	case platform.Linux:
		return "journalctl -u " + i.layout.ServiceName
	case platform.Darwin:
		return filepath.Join(i.layout.LogDir, "agent.err.log")
	default:
		return "the Task Scheduler history for " + i.layout.ServiceName
	}
}
