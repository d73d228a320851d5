package service

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

// LaunchdRegistrar supervises the agent through a per-user launchd agent.
// Bootstrap prefers the modern `launchctl bootstrap` call and falls back to
// the legacy `launchctl load -w` on systems that do not support it.
type LaunchdRegistrar struct {
	run       Runner
	agentsDir string
	uid       int
}

func NewLaunchdRegistrar() *LaunchdRegistrar {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("failed to resolve home directory: %v", err)
	}
	return &LaunchdRegistrar{
		run:       ExecRunner,
		agentsDir: filepath.Join(home, "Library", "LaunchAgents"),
		uid:       os.Getuid(),
	}
}

func (r *LaunchdRegistrar) plistPath(name string) string {
	return filepath.Join(r.agentsDir, name+".plist")
}

func (r *LaunchdRegistrar) domainTarget(name string) string {
	return fmt.Sprintf("gui/%d/%s", r.uid, name)
}

// renderPlist serializes a Definition into a launchd property list. Every
// string is XML-escaped, so no definition value can break out of its element.
func renderPlist(def Definition) string {
	var b strings.Builder

	b.WriteString(xml.Header)
	b.WriteString("<!DOCTYPE plist PUBLIC \"-//Apple//DTD PLIST 1.0//EN\" \"http://www.apple.com/DTDs/PropertyList-1.0.dtd\">\n")
	b.WriteString("<plist version=\"1.0\">\n<dict>\n")

	plistKey(&b, "Label")
	plistString(&b, def.Name)

	plistKey(&b, "ProgramArguments")
	b.WriteString("\t<array>\n")
	for _, arg := range append([]string{def.Executable}, def.Args...) {
		b.WriteString("\t")
		plistString(&b, arg)
	}
	b.WriteString("\t</array>\n")

	if def.WorkingDir != "" {
		plistKey(&b, "WorkingDirectory")
		plistString(&b, def.WorkingDir)
	}

	if len(def.Env) > 0 {
		plistKey(&b, "EnvironmentVariables")
		b.WriteString("\t<dict>\n")
		keys := make([]string, 0, len(def.Env))
		for k := range def.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString("\t")
			plistKey(&b, k)
			b.WriteString("\t")
			plistString(&b, def.Env[k])
		}
		b.WriteString("\t</dict>\n")
	}

	plistKey(&b, "RunAtLoad")
	b.WriteString("\t<true/>\n")
	plistKey(&b, "KeepAlive")
	b.WriteString("\t<true/>\n")

	if def.StdoutPath != "" {
		plistKey(&b, "StandardOutPath")
		plistString(&b, def.StdoutPath)
	}
	if def.StderrPath != "" {
		plistKey(&b, "StandardErrorPath")
		plistString(&b, def.StderrPath)
	}

	b.WriteString("</dict>\n</plist>\n")
	return b.String()
}

func plistKey(b *strings.Builder, key string) {
	b.WriteString("\t<key>")
	_ = xml.EscapeText(b, []byte(key))
	b.WriteString("</key>\n")
}

func plistString(b *strings.Builder, value string) {
	b.WriteString("\t<string>")
	_ = xml.EscapeText(b, []byte(value))
	b.WriteString("</string>\n")
}

func (r *LaunchdRegistrar) Register(ctx context.Context, def Definition) error {
	if err := r.Unregister(ctx, def.Name); err != nil {
		return err
	}

	if err := os.MkdirAll(r.agentsDir, 0755); err != nil {
		return fmt.Errorf("create launch agents dir: %w", err)
	}

	plist := r.plistPath(def.Name)
	if err := os.WriteFile(plist, []byte(renderPlist(def)), 0644); err != nil {
		return fmt.Errorf("write plist: %w", err)
	}

	if _, err := r.run(ctx, "launchctl", "bootstrap", fmt.Sprintf("gui/%d", r.uid), plist); err != nil {
		log.Debugf("launchctl bootstrap unsupported or failed, falling back to load: %v", err)
		if _, err := r.run(ctx, "launchctl", "load", "-w", plist); err != nil {
			return err
		}
	}

	log.Infof("registered launch agent %s", plist)
	return nil
}

func (r *LaunchdRegistrar) Unregister(ctx context.Context, name string) error {
	plist := r.plistPath(name)
	if _, err := os.Stat(plist); os.IsNotExist(err) {
		return nil
	}

	if _, err := r.run(ctx, "launchctl", "bootout", r.domainTarget(name)); err != nil {
		log.Debugf("launchctl bootout failed, falling back to unload: %v", err)
		if _, err := r.run(ctx, "launchctl", "unload", "-w", plist); err != nil {
			log.Warnf("failed to unload %s: %v", name, err)
		}
	}

	if err := os.Remove(plist); err != nil {
		return fmt.Errorf("remove plist: %w", err)
	}
	return nil
}

func (r *LaunchdRegistrar) Start(ctx context.Context, name string) error {
	_, err := r.run(ctx, "launchctl", "kickstart", r.domainTarget(name))
	if err != nil {
		_, err = r.run(ctx, "launchctl", "start", name)
	}
	return err
}

func (r *LaunchdRegistrar) Stop(ctx context.Context, name string) error {
	_, err := r.run(ctx, "launchctl", "stop", name)
	return err
}

func (r *LaunchdRegistrar) IsRunning(ctx context.Context, name string) (bool, error) {
	out, err := r.run(ctx, "launchctl", "print", r.domainTarget(name))
	if err != nil {
		return false, nil
	}
	return strings.Contains(out, "state = running"), nil
}
