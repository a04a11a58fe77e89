package cmd

import (
	"github.com/ferama/ptyctl/cmd/cmnflags"
	"github.com/ferama/ptyctl/pkg/conf"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(webCmd)

	cmnflags.AddWebFlags(webCmd.Flags())
	cmnflags.AddLaunchFlags(webCmd.Flags())
}

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Starts the http control plane",
	Long: `Starts the http control plane. Sessions are launched, resized,
signaled and attached (over websocket) through the /api/sessions endpoints`,
	RunE: func(cmd *cobra.Command, args []string) error {
		launch, err := cmnflags.GetLaunchConf(cmd)
		if err != nil {
			return err
		}
		return runService(&conf.Config{
			Launch: launch,
			Web:    cmnflags.GetWebConf(cmd),
		})
	},
}
