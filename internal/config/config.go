package config

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ghostlogic/agent-installer/util"
)

const (
	// DefaultBlackboxURL is the collection endpoint used when the operator
	// supplies no override.
	DefaultBlackboxURL = "https://api.blackbox.ghostlogic.tech"

	DefaultCollectIntervalSecs = 5
	DefaultSealIntervalSecs    = 60
	DefaultLogMaxHours         = 24
)

// AgentConfig is the agent's persisted configuration record. It is created at
// most once per installation; reinstalls never overwrite it so operator edits
// (a manually added tenant key in particular) survive upgrades.
type AgentConfig struct {
	BlackboxURL         string `json:"blackbox_url"`
	TenantKey           string `json:"tenant_key"`
	AgentID             string `json:"agent_id"`
	CollectIntervalSecs int    `json:"collect_interval_secs"`
	SealIntervalSecs    int    `json:"seal_interval_secs"`
	DemoMode            bool   `json:"demo_mode"`
	LogDir              string `json:"log_dir"`
	LogMaxHours         int    `json:"log_max_hours"`
}

// SynthesizeOptions carries the operator-supplied values for a fresh config.
type SynthesizeOptions struct {
	BlackboxURL string
	TenantKey   string
	DemoMode    bool
	LogDir      string
}

// Synthesize creates the agent configuration file unless it already exists.
// A fresh file gets a newly generated agent identifier and is written with
// owner-only permissions before any content is visible. Returns true when a
// new file was created, false when an existing one was preserved.
//
// The tenant key is a secret and is never logged here or anywhere else.
func Synthesize(ctx context.Context, path string, opts SynthesizeOptions) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		log.Infof("configuration %s already exists, preserving it", path)
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat config %s: %w", path, err)
	}

	cfg := &AgentConfig{
		BlackboxURL:         opts.BlackboxURL,
		TenantKey:           opts.TenantKey,
		AgentID:             uuid.NewString(),
		CollectIntervalSecs: DefaultCollectIntervalSecs,
		SealIntervalSecs:    DefaultSealIntervalSecs,
		DemoMode:            opts.DemoMode,
		LogDir:              opts.LogDir,
		LogMaxHours:         DefaultLogMaxHours,
	}
	if cfg.BlackboxURL == "" {
		cfg.BlackboxURL = DefaultBlackboxURL
	}

	if err := util.WriteJsonWithRestrictedPermission(ctx, path, cfg); err != nil {
		return false, fmt.Errorf("write config %s: %w", path, err)
	}

	log.Infof("created configuration %s (agent id %s)", path, cfg.AgentID)
	return true, nil
}

// Load reads an existing agent configuration.
func Load(path string) (*AgentConfig, error) {
	cfg := &AgentConfig{}
	if _, err := util.ReadJson(path, cfg); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return cfg, nil
}
