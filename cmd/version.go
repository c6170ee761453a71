package cmd

import (
	"github.com/fatih/color"
	"github.com/rumsystem/mstnode/internal/pkg/utils"
	"github.com/spf13/cobra"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	Run: func(cmd *cobra.Command, args []string) {
		color.Green("%s - %s\n", utils.ReleaseVersion, utils.GitCommit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
