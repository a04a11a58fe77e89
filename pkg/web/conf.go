package web

// WebConf holds the http control plane configuration
type WebConf struct {
	ListenAddress string `yaml:"listen_address"`
}

// DefaultWebConf returns the configuration used for missing values
func DefaultWebConf() *WebConf {
	return &WebConf{
		ListenAddress: ":8090",
	}
}
