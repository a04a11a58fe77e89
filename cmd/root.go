package cmd

import (
	"github.com/ferama/ptyctl/pkg/logger"
	"github.com/spf13/cobra"
)

// Version is set at build time with
// -ldflags="-X 'github.com/ferama/ptyctl/cmd.Version=v1.2.3'"
var Version = "development"

var rootCmd = &cobra.Command{
	Use:   "ptyctl",
	Short: "Pseudo terminal sessions, locally or over http and ssh",
	Long: `ptyctl starts processes on freshly allocated pseudo terminals.

Use exec to run one attached to this terminal, or web, sshd and run to
serve sessions to remote clients.`,
	Version: Version,
	// failures are already explained by the error itself
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
			logger.DisableLoggers()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "disable all logs")
	rootCmd.SetVersionTemplate("ptyctl {{.Version}}\n")
}

// Execute runs the command selected on the command line
func Execute() error {
	return rootCmd.Execute()
}
