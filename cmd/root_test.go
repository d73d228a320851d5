package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitCommands(t *testing.T) {
	expected := []string{"install", "uninstall", "status", "version"}

	registered := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}

	for _, name := range expected {
		require.True(t, registered[name], "command %s must be registered", name)
	}
}

func TestFlagNameToEnvVar(t *testing.T) {
	tests := []struct {
		flag string
		want string
	}{
		{"tenant-key", "GHOSTLOGIC_TENANT_KEY"},
		{"blackbox-url", "GHOSTLOGIC_BLACKBOX_URL"},
		{"demo", "GHOSTLOGIC_DEMO"},
		{"log-level", "GHOSTLOGIC_LOG_LEVEL"},
	}

	for _, tc := range tests {
		require.Equal(t, tc.want, FlagNameToEnvVar(tc.flag, envVarPrefix))
	}
}

func TestSetFlagsFromEnvVars(t *testing.T) {
	t.Setenv("GHOSTLOGIC_TENANT_KEY", "tk-from-env")
	t.Setenv("GHOSTLOGIC_BLACKBOX_URL", "https://env.example")

	SetFlagsFromEnvVars(rootCmd)

	require.Equal(t, "tk-from-env", tenantKey)
	require.Equal(t, "https://env.example", blackboxURL)

	// flags revert for other tests
	tenantKey = ""
	blackboxURL = ""
}

func TestFlagDefaults(t *testing.T) {
	demo, err := rootCmd.PersistentFlags().GetBool("demo")
	require.NoError(t, err)
	require.True(t, demo, "demo mode defaults to enabled")

	level, err := rootCmd.PersistentFlags().GetString("log-level")
	require.NoError(t, err)
	require.Equal(t, "info", level)
}
