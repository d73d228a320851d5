package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

const systemdUnitDir = "/etc/systemd/system"

// SystemdRegistrar supervises the agent through a system-wide systemd unit.
type SystemdRegistrar struct {
	run     Runner
	unitDir string
}

func NewSystemdRegistrar() *SystemdRegistrar {
	return &SystemdRegistrar{run: ExecRunner, unitDir: systemdUnitDir}
}

func (r *SystemdRegistrar) unitPath(name string) string {
	return filepath.Join(r.unitDir, name+".service")
}

// renderUnit serializes a Definition into a systemd unit. The definition is
// assembled as a value first so the serialization is testable on its own and
// no untrusted text is spliced into the file.
func renderUnit(def Definition) string {
	var b strings.Builder

	b.WriteString("[Unit]\n")
	fmt.Fprintf(&b, "Description=%s\n", def.Description)
	b.WriteString("After=network-online.target\n")
	b.WriteString("Wants=network-online.target\n")
	b.WriteString("\n[Service]\n")
	b.WriteString("Type=simple\n")
	if def.WorkingDir != "" {
		fmt.Fprintf(&b, "WorkingDirectory=%s\n", def.WorkingDir)
	}
	fmt.Fprintf(&b, "ExecStart=%s\n", execStartLine(def.Executable, def.Args))

	keys := make([]string, 0, len(def.Env))
	for k := range def.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "Environment=%q\n", k+"="+def.Env[k])
	}

	b.WriteString("Restart=always\n")
	b.WriteString("RestartSec=10\n")
	b.WriteString("StandardOutput=journal\n")
	b.WriteString("StandardError=journal\n")
	fmt.Fprintf(&b, "SyslogIdentifier=%s\n", def.Name)
	b.WriteString("\n[Install]\n")
	b.WriteString("WantedBy=multi-user.target\n")

	return b.String()
}

// execStartLine quotes arguments containing whitespace the way systemd
// expects them.
func execStartLine(executable string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	for _, p := range append([]string{executable}, args...) {
		if strings.ContainsAny(p, " \t") {
			p = "\"" + p + "\""
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, " ")
}

func (r *SystemdRegistrar) Register(ctx context.Context, def Definition) error {
	// retire any previous registration first, registration is not additive
	if err := r.Unregister(ctx, def.Name); err != nil {
		return err
	}

	if err := os.WriteFile(r.unitPath(def.Name), []byte(renderUnit(def)), 0644); err != nil {
		return fmt.Errorf("write unit file: %w", err)
	}

	if _, err := r.run(ctx, "systemctl", "daemon-reload"); err != nil {
		return err
	}
	if _, err := r.run(ctx, "systemctl", "enable", def.Name); err != nil {
		return err
	}

	log.Infof("registered systemd unit %s", r.unitPath(def.Name))
	return nil
}

func (r *SystemdRegistrar) Unregister(ctx context.Context, name string) error {
	unit := r.unitPath(name)
	if _, err := os.Stat(unit); os.IsNotExist(err) {
		return nil
	}

	if _, err := r.run(ctx, "systemctl", "disable", name); err != nil {
		log.Warnf("failed to disable %s: %v", name, err)
	}
	if err := os.Remove(unit); err != nil {
		return fmt.Errorf("remove unit file: %w", err)
	}
	if _, err := r.run(ctx, "systemctl", "daemon-reload"); err != nil {
		return err
	}
	return nil
}

func (r *SystemdRegistrar) Start(ctx context.Context, name string) error {
	_, err := r.run(ctx, "systemctl", "start", name)
	return err
}

func (r *SystemdRegistrar) Stop(ctx context.Context, name string) error {
	_, err := r.run(ctx, "systemctl", "stop", name)
	return err
}

// IsRunning queries the unit's active state. systemctl exits non-zero for
// inactive units, so any error maps to "not running".
func (r *SystemdRegistrar) IsRunning(ctx context.Context, name string) (bool, error) {
	out, err := r.run(ctx, "systemctl", "is-active", name)
	if err != nil {
		return false, nil
	}
	return strings.TrimSpace(out) == "active", nil
}
