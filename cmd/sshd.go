package cmd

import (
	"github.com/ferama/ptyctl/cmd/cmnflags"
	"github.com/ferama/ptyctl/pkg/conf"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sshdCmd)

	cmnflags.AddSshdFlags(sshdCmd.Flags())
	cmnflags.AddLaunchFlags(sshdCmd.Flags())
}

var sshdCmd = &cobra.Command{
	Use:   "sshd",
	Short: "Starts the sshd server",
	Long: `Starts the sshd server. Every shell and exec request runs
on its own pseudo terminal`,
	RunE: func(cmd *cobra.Command, args []string) error {
		launch, err := cmnflags.GetLaunchConf(cmd)
		if err != nil {
			return err
		}
		return runService(&conf.Config{
			Launch: launch,
			SshD:   cmnflags.GetSshDConf(cmd),
		})
	},
}
