// Package service registers, starts and stops the OS-native persistent
// service definition supervising the agent process. One backend exists per
// platform (systemd unit, launchd agent, scheduled task) behind a single
// contract so callers never branch on the platform again.
package service

import (
	"context"
	"fmt"

	"github.com/ghostlogic/agent-installer/internal/platform"
)

// Definition describes how the OS should supervise the agent process.
// It is assembled as a value and serialized by the selected backend, the
// definition itself carries no platform specifics.
type Definition struct {
	Name        string
	DisplayName string
	Description string
	Executable  string
	WorkingDir  string
	Args        []string
	Env         map[string]string
	StdoutPath  string
	StderrPath  string
}

// Registrar is the platform service-manager contract. Register fully retires
// any previous definition under the same name before installing the new one,
// registration is never additive. Unregister of an absent definition is a
// no-op.
type Registrar interface {
	Register(ctx context.Context, def Definition) error
	Unregister(ctx context.Context, name string) error
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string) error
	IsRunning(ctx context.Context, name string) (bool, error)
}

// New returns the registrar backend for the given platform.
func New(kind platform.Kind) (Registrar, error) {
	switch kind {
	case platform.Linux:
		return NewSystemdRegistrar(), nil
	case platform.Darwin:
		return NewLaunchdRegistrar(), nil
	case platform.Windows:
		return NewSchtasksRegistrar(), nil
	default:
		return nil, fmt.Errorf("%w: no service backend for %q", platform.ErrUnsupported, kind)
	}
}
