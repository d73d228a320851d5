package cmd

import (
	"bufio"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ghostlogic/agent-installer/util"
)

var assumeYes bool

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Stop and unregister the agent service and remove installed files",
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

		if assumeYes {
			inst.Confirm = func(string) bool { return true }
		} else {
			inst.Confirm = terminalConfirm(cmd)
		}

		if err := inst.Uninstall(cmd.Context()); err != nil {
			return err
		}

		cmd.Println("GhostLogic agent has been uninstalled")
		return nil
	},
}

func init() {
	uninstallCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "also remove configuration and logs without prompting")
}

// terminalConfirm prompts on the command's input stream. Anything but an
// explicit affirmative preserves the data.
func terminalConfirm(cmd *cobra.Command) func(prompt string) bool {
	return func(prompt string) bool {
		cmd.Print(prompt)
		reader := bufio.NewReader(cmd.InOrStdin())
		line, err := reader.ReadString('\n')
		if err != nil {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	}
}
