package cmd

import (
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/spf13/cobra"

	"github.com/ghostlogic/agent-installer/internal/installer"
	"github.com/ghostlogic/agent-installer/internal/platform"
	"github.com/ghostlogic/agent-installer/internal/service"
	"github.com/ghostlogic/agent-installer/util"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the agent service and process state",
	RunE: func(cmd *cobra.Command, args []string) error {
		SetFlagsFromEnvVars(rootCmd)
		cmd.SetOut(cmd.OutOrStdout())

		if err := util.InitLog(logLevel, logFile); err != nil {
			return err
		}

		kind, err := platform.Detect()
		if err != nil {
			return err
		}

		registrar, err := service.New(kind)
		if err != nil {
			return err
		}

		layout := installer.DefaultLayout(kind)
		if configPath != "" {
			layout.ConfigPath = configPath
		}

		running, err := registrar.IsRunning(cmd.Context(), layout.ServiceName)
		if err != nil {
			return err
		}

		cmd.Printf("Service:  %s\n", layout.ServiceName)
		if running {
			cmd.Println("State:    running")
		} else {
			cmd.Println("State:    not running")
		}
		cmd.Printf("Install:  %s\n", layout.InstallDir)
		cmd.Printf("Config:   %s\n", layout.ConfigPath)
		cmd.Printf("Logs:     %s\n", layout.LogDir)

		if proc := findAgentProcess(layout); proc != nil {
			cmd.Printf("PID:      %d\n", proc.Pid)
			if created, err := proc.CreateTime(); err == nil {
				uptime := time.Since(time.UnixMilli(created)).Round(time.Second)
				cmd.Printf("Uptime:   %s\n", uptime)
			}
		}

		return nil
	},
}

// findAgentProcess locates the supervised agent by matching its module
// invocation against the sandbox interpreter.
func findAgentProcess(layout installer.Layout) *process.Process {
	procs, err := process.Processes()
	if err != nil {
		return nil
	}

	for _, p := range procs {
		cmdline, err := p.Cmdline()
		if err != nil {
			continue
		}
		if strings.Contains(cmdline, layout.VenvPython()) && strings.Contains(cmdline, "-m agent") {
			return p
		}
	}
	return nil
}
