package cmnflags

import (
	"github.com/ferama/ptyctl/pkg/session"
	"github.com/ferama/ptyctl/pkg/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// AddLaunchFlags adds the session defaults flags to FlagSet
func AddLaunchFlags(fs *pflag.FlagSet) {
	def := session.DefaultLaunchConf()
	fs.String("shell", def.Shell, "the shell launched when no command is given")
	fs.Int("rows", def.Rows, "initial terminal rows")
	fs.Int("cols", def.Cols, "initial terminal columns")
	fs.StringArrayP("env", "e", nil, "KEY=VALUE added to the session environment. Can be repeated")
	fs.StringP("dir", "d", "", "the session working directory")
}

// GetLaunchConf builds a LaunchConf object from cmd
func GetLaunchConf(cmd *cobra.Command) (*session.LaunchConf, error) {
	shell, _ := cmd.Flags().GetString("shell")
	rows, _ := cmd.Flags().GetInt("rows")
	cols, _ := cmd.Flags().GetInt("cols")
	envList, _ := cmd.Flags().GetStringArray("env")
	dir, _ := cmd.Flags().GetString("dir")

	conf := session.DefaultLaunchConf()
	env, err := utils.ParseEnvList(envList)
	if err != nil {
		return nil, err
	}
	for k, v := range env {
		conf.Env[k] = v
	}
	conf.Shell = shell
	conf.Rows = rows
	conf.Cols = cols
	conf.Dir = dir

	if _, err := conf.Size(); err != nil {
		return nil, err
	}
	return conf, nil
}
