package cmnflags

import (
	"github.com/ferama/ptyctl/pkg/web"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// AddWebFlags adds the http control plane flags to FlagSet
func AddWebFlags(fs *pflag.FlagSet) {
	fs.StringP("web-listen-address", "L", web.DefaultWebConf().ListenAddress, "the http control plane listen address")
}

// GetWebConf builds a WebConf object from cmd
func GetWebConf(cmd *cobra.Command) *web.WebConf {
	listenAddress, _ := cmd.Flags().GetString("web-listen-address")
	return &web.WebConf{
		ListenAddress: listenAddress,
	}
}
