package cmd

import (
	"fmt"

	"github.com/chainforge/devnode/cli/style"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X github.com/chainforge/devnode/cli/cmd.Version=...".
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", style.Key.Render("Version"), style.Val.Render(Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
