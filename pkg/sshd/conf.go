package sshd

// SshDConf holds the sshd configuration
type SshDConf struct {
	Key                string `yaml:"server_key"`
	AuthorizedKeysFile string `yaml:"authorized_keys"`

	AuthorizedPassword string `yaml:"authorized_password"`
	// The address the sshd server will listen too
	ListenAddress string `yaml:"listen_address"`
	// if true the exec,shell and pty requests will be declined
	DisableShell         bool `yaml:"disable_shell"`
	DisableSftpSubsystem bool `yaml:"disable_sftp_subsystem"`
}

// DefaultSshDConf returns the configuration used for missing values
func DefaultSshDConf() *SshDConf {
	return &SshDConf{
		Key:                "~/.ptyctl/server_key",
		AuthorizedKeysFile: "~/.ssh/authorized_keys",
		ListenAddress:      ":2222",
	}
}
