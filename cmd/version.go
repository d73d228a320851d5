package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ghostlogic/agent-installer/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Prints the installer version",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version.InstallerVersion())
	},
}
