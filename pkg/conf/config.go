package conf

import (
	"fmt"
	"os"

	"github.com/ferama/ptyctl/pkg/session"
	"github.com/ferama/ptyctl/pkg/sshd"
	"github.com/ferama/ptyctl/pkg/web"
	"gopkg.in/yaml.v3"
)

// Config holds all the config values
type Config struct {
	Launch *session.LaunchConf `yaml:"launch"`
	Web    *web.WebConf        `yaml:"web"`
	SshD   *sshd.SshDConf      `yaml:"sshd"`
}

// LoadConfig parses the [config].yaml file and loads its values
// into the Config struct. Missing launch values get defaults, the web and
// sshd sections stay nil when absent
func LoadConfig(filePath string) (*Config, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("error while reading config file: %w", err)
	}
	defer f.Close()

	// set some reasonable defaults
	cfg := Config{
		Launch: session.DefaultLaunchConf(),
	}

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("error while parsing config file: %w", err)
	}
	if cfg.Launch == nil {
		// an explicit empty section
		cfg.Launch = session.DefaultLaunchConf()
	}

	if _, err := cfg.Launch.Size(); err != nil {
		return nil, fmt.Errorf("launch: %w", err)
	}
	if cfg.SshD != nil {
		applySshDDefaults(cfg.SshD)
	}
	if cfg.Web != nil && cfg.Web.ListenAddress == "" {
		cfg.Web.ListenAddress = web.DefaultWebConf().ListenAddress
	}

	if cfg.Web == nil && cfg.SshD == nil {
		return nil, fmt.Errorf("nothing to run: configure at least one of the web and sshd sections")
	}
	return &cfg, nil
}

func applySshDDefaults(c *sshd.SshDConf) {
	def := sshd.DefaultSshDConf()
	if c.Key == "" {
		c.Key = def.Key
	}
	if c.ListenAddress == "" {
		c.ListenAddress = def.ListenAddress
	}
	if c.AuthorizedKeysFile == "" && c.AuthorizedPassword == "" {
		c.AuthorizedKeysFile = def.AuthorizedKeysFile
	}
}
