package cmd

import (
	_ "embed"
	"os"

	"github.com/spf13/cobra"
)

//go:embed configs/config_template.yaml
var configTemplate []byte

func init() {
	rootCmd.AddCommand(templateCmd)
	templateCmd.Flags().StringP("output", "o", "", "write the template to this file instead of stdout")
}

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Prints a commented config file for the run command",
	Example: `
  # start from the template, then edit it
  $ ptyctl template -o ptyctl.yaml
  $ ptyctl run ptyctl.yaml
	`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			_, err := cmd.OutOrStdout().Write(configTemplate)
			return err
		}
		// the template may end up holding a password
		return os.WriteFile(output, configTemplate, 0600)
	},
}
