package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ghostlogic/agent-installer/util"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install or upgrade the agent and register its service",
	RunE: func(cmd *cobra.Command, args []string) error {
		SetFlagsFromEnvVars(rootCmd)
		cmd.SetOut(cmd.OutOrStdout())

		if err := util.InitLog(logLevel, logFile); err != nil {
			return err
		}

		inst, err := newInstaller()
		if err != nil {
			return err
		}

		if err := inst.Install(cmd.Context()); err != nil {
			return err
		}

		cmd.Println("GhostLogic agent has been installed")
		return nil
	},
}
