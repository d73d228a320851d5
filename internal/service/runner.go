package service

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes a service-manager command and returns its combined output.
// Backends take it as a seam so tests can record call sequences without
// touching the host.
type Runner func(ctx context.Context, name string, args ...string) (string, error)

// ExecRunner runs the command on the host.
func ExecRunner(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err != nil {
		return output, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, output)
	}
	return output, nil
}
