package session

import (
	"errors"
	"os"
	"os/user"
	"strings"

	"github.com/ferama/ptyctl/pkg/rpty"
	"github.com/ferama/ptyctl/pkg/utils"
)

// LaunchConf holds the defaults applied to every new session
type LaunchConf struct {
	// Shell is launched when a request carries no command
	Shell string            `yaml:"shell"`
	Rows  int               `yaml:"rows"`
	Cols  int               `yaml:"cols"`
	Env   map[string]string `yaml:"env"`
	Dir   string            `yaml:"dir"`
}

// DefaultLaunchConf returns the defaults used when no configuration
// section is given
func DefaultLaunchConf() *LaunchConf {
	username := ""
	if usr, err := user.Current(); err == nil {
		username = usr.Username
	}
	return &LaunchConf{
		Shell: utils.GetUserDefaultShell(username),
		Rows:  24,
		Cols:  80,
		Env: map[string]string{
			"TERM": "xterm-256color",
		},
	}
}

// Size validates the configured geometry
func (c *LaunchConf) Size() (rpty.WindowSize, error) {
	return rpty.NewWindowSize(c.Rows, c.Cols)
}

// Request builds a launch request. An empty argv runs the configured
// shell. The environment is the one of the current process overlaid with
// the configured variables and then with env.
func (c *LaunchConf) Request(argv []string, env map[string]string) (*rpty.LaunchRequest, error) {
	if len(argv) == 0 {
		if c.Shell == "" {
			return nil, errors.New("no command and no shell configured")
		}
		argv = []string{c.Shell}
	}
	size, err := c.Size()
	if err != nil {
		return nil, err
	}
	dir := c.Dir
	if dir != "" {
		if dir, err = utils.ExpandUserHome(dir); err != nil {
			return nil, err
		}
	}

	return &rpty.LaunchRequest{
		Command: argv[0],
		Argv:    argv,
		Env:     MergeEnv(c.Env, env),
		Dir:     dir,
		Size:    size,
	}, nil
}

// MergeEnv overlays the given maps on the current process environment.
// Later maps win.
func MergeEnv(overlays ...map[string]string) map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			env[k] = v
		}
	}
	for _, o := range overlays {
		for k, v := range o {
			env[k] = v
		}
	}
	return env
}
