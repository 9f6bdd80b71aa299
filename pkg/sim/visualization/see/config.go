package see

import (
	"flag"
	"io"
	"os"
)

// Config represents configuration for see.
type Config struct {
	Enabled bool
	// Spacing (mm) between nodes.
	Spacing float64
	// Radius (mm) of a node.
	Radius float64
}

var defaultConfig = Config{
	Spacing: 60,
	Radius:  20,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.BoolVar(&defaultConfig.Enabled, "see", defaultConfig.Enabled, "Print visualization messages to stdout")
	flag.Float64Var(&defaultConfig.Spacing, "see-spacing", defaultConfig.Spacing, "Spacing (mm) between nodes")
	flag.Float64Var(&defaultConfig.Radius, "see-radius", defaultConfig.Radius, "Radius (mm) of a node")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a default config.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewAdapter creates adapter from config, writing to stdout.
func (c *Config) NewAdapter() *Adapter {
	return NewAdapter(c, os.Stdout)
}

// NewAdapterTo creates adapter writing to w.
func (c *Config) NewAdapterTo(w io.Writer) *Adapter {
	return NewAdapter(c, w)
}
