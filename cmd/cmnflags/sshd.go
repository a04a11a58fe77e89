package cmnflags

import (
	"github.com/ferama/ptyctl/pkg/sshd"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// AddSshdFlags adds sshd common flags to FlagSet
func AddSshdFlags(fs *pflag.FlagSet) {
	def := sshd.DefaultSshDConf()
	fs.StringP("sshd-authorized-keys", "K", def.AuthorizedKeysFile, "ssh server authorized keys path")
	fs.StringP("sshd-listen-address", "P", def.ListenAddress, "the ssh server listen address")
	fs.StringP("sshd-key", "I", def.Key, "the ssh server key path. Generated if missing")
	fs.StringP("sshd-authorized-password", "A", "", "ssh server authorized password. Disabled if empty")
	fs.BoolP("disable-shell", "D", false, "if set disable shell/exec")
	fs.Bool("disable-sftp-subsystem", false, "if set disable the sftp subsystem")
}

// GetSshDConf builds an SshDConf object from cmd
func GetSshDConf(cmd *cobra.Command) *sshd.SshDConf {
	sshdKey, _ := cmd.Flags().GetString("sshd-key")
	sshdAuthorizedKeys, _ := cmd.Flags().GetString("sshd-authorized-keys")
	sshdListenAddress, _ := cmd.Flags().GetString("sshd-listen-address")
	authorizedPasssword, _ := cmd.Flags().GetString("sshd-authorized-password")
	disableShell, _ := cmd.Flags().GetBool("disable-shell")
	disableSftp, _ := cmd.Flags().GetBool("disable-sftp-subsystem")

	return &sshd.SshDConf{
		Key:                  sshdKey,
		AuthorizedKeysFile:   sshdAuthorizedKeys,
		ListenAddress:        sshdListenAddress,
		AuthorizedPassword:   authorizedPasssword,
		DisableShell:         disableShell,
		DisableSftpSubsystem: disableSftp,
	}
}
