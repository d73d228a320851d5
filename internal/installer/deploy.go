package installer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/ghostlogic/agent-installer/util"
)

// ErrSourceNotFound means the agent distribution tree is missing at the
// expected location.
var ErrSourceNotFound = errors.New("agent source tree not found")

// Deploy replaces the installed agent tree in one step: the entire previous
// copy is removed, then the distribution tree is copied whole. Mixing stale
// and new files is never possible; the brief window with no installed copy
// is safe because the controller stops the service before calling this.
func Deploy(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrSourceNotFound, src)
	}

	if err := util.RemoveIfExists(dst); err != nil {
		return fmt.Errorf("remove previous install: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("create install parent dir: %w", err)
	}

	if err := util.CopyDir(src, dst); err != nil {
		return fmt.Errorf("copy agent tree: %w", err)
	}

	log.Infof("deployed agent tree %s -> %s", src, dst)
	return nil
}
