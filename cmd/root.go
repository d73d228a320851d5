package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ghostlogic/agent-installer/internal/config"
	"github.com/ghostlogic/agent-installer/internal/installer"
	"github.com/ghostlogic/agent-installer/internal/platform"
	"github.com/ghostlogic/agent-installer/internal/service"
)

const envVarPrefix = "GHOSTLOGIC_"

var (
	blackboxURL string
	tenantKey   string
	demoMode    bool
	sourceDir   string
	configPath  string
	logLevel    string
	logFile     string

	rootCmd = &cobra.Command{
		Use:          "ghostlogic-installer",
		Short:        "Installs and manages the GhostLogic Black Box Agent service",
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&blackboxURL, "blackbox-url", "u", "", fmt.Sprintf("Blackbox collection endpoint URL (default %q)", config.DefaultBlackboxURL))
	rootCmd.PersistentFlags().StringVarP(&tenantKey, "tenant-key", "k", "", "Tenant key authenticating the agent to the collection endpoint")
	rootCmd.PersistentFlags().BoolVar(&demoMode, "demo", true, "Demo mode disables transport certificate verification; pass --demo=false together with a tenant key for production use")
	rootCmd.PersistentFlags().StringVar(&sourceDir, "source", "", "Agent distribution source tree (default: the installer's own directory)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Agent config file location (default: the platform config path)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "sets the installer log level")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "console", "sets the installer log path. If console is specified the log will be output to stdout")

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

// SetFlagsFromEnvVars reads and updates flag values from environment
// variables with the GHOSTLOGIC_ prefix, e.g. GHOSTLOGIC_TENANT_KEY maps to
// --tenant-key.
func SetFlagsFromEnvVars(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.VisitAll(func(f *pflag.Flag) {
		envVar := FlagNameToEnvVar(f.Name, envVarPrefix)

		if value, present := os.LookupEnv(envVar); present {
			err := flags.Set(f.Name, value)
			if err != nil {
				log.Infof("unable to configure flag %s using variable %s, err: %v", f.Name, envVar, err)
			}
		}
	})
}

// FlagNameToEnvVar converts flag name to environment var name adding a prefix,
// replacing dashes and making all uppercase (e.g. tenant-key is converted to
// GHOSTLOGIC_TENANT_KEY according to the input prefix)
func FlagNameToEnvVar(cmdFlag string, prefix string) string {
	parsed := strings.ReplaceAll(cmdFlag, "-", "_")
	upper := strings.ToUpper(parsed)
	return prefix + upper
}

// newInstaller detects the platform, checks the service backend and builds
// an Installer from the effective flag values.
func newInstaller() (*installer.Installer, error) {
	kind, err := platform.Detect()
	if err != nil {
		return nil, err
	}

	registrar, err := service.New(kind)
	if err != nil {
		return nil, err
	}

	layout := installer.DefaultLayout(kind)
	if configPath != "" {
		layout.ConfigPath = configPath
	}

	src := sourceDir
	if src == "" {
		src, err = defaultSourceDir()
		if err != nil {
			return nil, err
		}
	}

	return installer.New(layout, registrar, installer.Options{
		BlackboxURL: blackboxURL,
		TenantKey:   tenantKey,
		DemoMode:    demoMode,
		SourceDir:   src,
	}), nil
}

// defaultSourceDir is the distribution layout: the agent tree ships in the
// same directory as the installer binary.
func defaultSourceDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate installer executable: %w", err)
	}
	return filepath.Dir(exe), nil
}
