package cmd

import (
	"github.com/ferama/ptyctl/pkg/conf"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run config_file_path.yaml",
	Short: "Run ptyctl using a config file.",
	Long:  "Run ptyctl using a config file. Use the template command to get a sample one.",
	Args:  cobra.ExactArgs(1),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) != 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return []string{"yaml"}, cobra.ShellCompDirectiveFilterFileExt
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := conf.LoadConfig(args[0])
		if err != nil {
			return err
		}
		return runService(c)
	},
}
