// Package env sets up a ledchain node from configuration.
package env

import (
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/robotalks/ledchain/pkg/frame"
	"github.com/robotalks/ledchain/pkg/hw"
	"github.com/robotalks/ledchain/pkg/transport"
)

// Backends.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendLog    = "log"
	BackendSysfs  = "sysfs"
	BackendGPIO   = "gpio"
	BackendLED    = "led"
)

// Channels is a list of PWM channel numbers for red, green and blue.
type Channels []int

// String implements flag.Value.
func (c *Channels) String() string {
	strs := make([]string, len(*c))
	for n, ch := range *c {
		strs[n] = strconv.Itoa(ch)
	}
	return strings.Join(strs, ",")
}

// Set implements flag.Value.
func (c *Channels) Set(val string) error {
	var chs Channels
	for _, str := range strings.Split(val, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(str))
		if err != nil {
			return fmt.Errorf("invalid channel %q", str)
		}
		chs = append(chs, n)
	}
	*c = chs
	return nil
}

// Names is a list of names for red, green and blue.
type Names []string

// String implements flag.Value.
func (n *Names) String() string {
	return strings.Join(*n, ",")
}

// Set implements flag.Value.
func (n *Names) Set(val string) error {
	var names Names
	for _, str := range strings.Split(val, ",") {
		if str = strings.TrimSpace(str); str == "" {
			return fmt.Errorf("invalid names %q", val)
		}
		names = append(names, str)
	}
	*n = names
	return nil
}

// PWMConfig selects the PWM backend.
type PWMConfig struct {
	Backend string `yaml:"backend"`
	// sysfs
	Root     string   `yaml:"root"`
	Chip     int      `yaml:"chip"`
	Channels Channels `yaml:"channels,flow"`
	// gpio
	Pins Names `yaml:"pins,flow"`

	Period time.Duration `yaml:"period"`
}

// IndicatorConfig selects the status indicator backend. Name is the LED
// class device for led, or the pin for gpio.
type IndicatorConfig struct {
	Backend string `yaml:"backend"`
	Name    string `yaml:"name"`
}

// Config provides options to setup a node.
type Config struct {
	ID          string `yaml:"id"`
	Description string `yaml:"description"`

	// Port is the URL of the serial channel, see transport.Open.
	Port         string `yaml:"port"`
	Baud         int    `yaml:"baud"`
	LengthPolicy string `yaml:"length-policy"`
	// ForwardTruncated forwards the terminator of truncated frames.
	ForwardTruncated bool `yaml:"forward-truncated"`

	PWM       PWMConfig       `yaml:"pwm"`
	Indicator IndicatorConfig `yaml:"indicator"`

	// MQTTURL enables telemetry if not empty.
	// e.g. mqtt://host:port/topic-prefix
	MQTTURL string `yaml:"mqtt"`

	// File is the optional YAML config file.
	File string `yaml:"-"`
}

var defaultConfig = Config{
	Port:         "/dev/ttyUSB0",
	Baud:         transport.DefaultBaud,
	LengthPolicy: frame.LengthWrap.String(),
	PWM: PWMConfig{
		Backend:  BackendMemory,
		Root:     hw.DefaultPWMRoot,
		Channels: Channels{0, 1, 2},
		Period:   hw.DefaultPWMPeriod,
	},
	Indicator: IndicatorConfig{
		Backend: BackendLog,
	},
}

func init() {
	if val := os.Getenv("LEDCHAIN_ID"); val != "" {
		defaultConfig.ID = val
	}
	if val := os.Getenv("LEDCHAIN_PORT"); val != "" {
		defaultConfig.Port = val
	}
	if val := os.Getenv("LEDCHAIN_MQTT_URL"); val != "" {
		defaultConfig.MQTTURL = val
	}
	if val := os.Getenv("LEDCHAIN_CONFIG"); val != "" {
		defaultConfig.File = val
	}
}

// RegisterFlags registers flags on fs bound to the fields of c. Current values
// of c are the defaults.
func RegisterFlags(fs *flag.FlagSet, c *Config) {
	fs.StringVar(&c.File, "config", c.File, "YAML config file.")
	fs.StringVar(&c.ID, "id", c.ID, "Node ID, defaults to machine ID.")
	fs.StringVar(&c.Port, "port", c.Port, "Serial channel URL.")
	fs.IntVar(&c.Baud, "baud", c.Baud, "Serial baud rate.")
	fs.StringVar(&c.LengthPolicy, "length-policy", c.LengthPolicy, "Length underflow policy: wrap, saturate or fault.")
	fs.BoolVar(&c.ForwardTruncated, "forward-truncated", c.ForwardTruncated, "Forward the terminator of frames truncated before passthrough bytes.")
	fs.StringVar(&c.PWM.Backend, "pwm", c.PWM.Backend, "PWM backend: memory, sysfs or gpio.")
	fs.StringVar(&c.PWM.Root, "pwm-root", c.PWM.Root, "PWM sysfs root.")
	fs.IntVar(&c.PWM.Chip, "pwm-chip", c.PWM.Chip, "PWM chip number.")
	fs.Var(&c.PWM.Channels, "pwm-channels", "PWM channels for red,green,blue.")
	fs.Var(&c.PWM.Pins, "pwm-pins", "PWM capable pins for red,green,blue, e.g. GPIO12,GPIO13,GPIO18.")
	fs.DurationVar(&c.PWM.Period, "pwm-period", c.PWM.Period, "PWM period.")
	fs.StringVar(&c.Indicator.Backend, "indicator", c.Indicator.Backend, "Status indicator: none, log, led or gpio.")
	fs.StringVar(&c.Indicator.Name, "indicator-name", c.Indicator.Name, "Status LED or pin name.")
	fs.StringVar(&c.MQTTURL, "mqtt", c.MQTTURL, "MQTT broker URL for telemetry.")
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	RegisterFlags(flag.CommandLine, &defaultConfig)
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	conf.PWM.Channels = append(Channels(nil), defaultConfig.PWM.Channels...)
	conf.PWM.Pins = append(Names(nil), defaultConfig.PWM.Pins...)
	return &conf
}

// LoadFile loads YAML config file. Unknown keys are rejected.
func (c *Config) LoadFile(fn string) error {
	data, err := ioutil.ReadFile(fn)
	if err != nil {
		return err
	}
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return fmt.Errorf("config %s: %v", fn, err)
	}
	return nil
}

// Resolve loads the config file if specified, re-applies the flags set
// explicitly in fs, and validates the result.
func (c *Config) Resolve(fs *flag.FlagSet) error {
	if c.File != "" {
		if err := c.LoadFile(c.File); err != nil {
			return err
		}
		overrides := flag.NewFlagSet("overrides", flag.ContinueOnError)
		RegisterFlags(overrides, c)
		var err error
		if fs != nil {
			fs.Visit(func(f *flag.Flag) {
				if err == nil && overrides.Lookup(f.Name) != nil {
					err = overrides.Set(f.Name, f.Value.String())
				}
			})
		}
		if err != nil {
			return err
		}
	}
	if c.ID == "" {
		c.ID = MachineID()
	}
	return c.Validate()
}

// Validate checks the config.
func (c *Config) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("node ID must be specified")
	}
	if c.Port == "" {
		return fmt.Errorf("port must be specified")
	}
	if _, err := frame.ParseLengthPolicy(c.LengthPolicy); err != nil {
		return err
	}
	switch c.PWM.Backend {
	case BackendMemory:
	case BackendSysfs:
		if len(c.PWM.Channels) != int(frame.NumChannels) {
			return fmt.Errorf("expect %d PWM channels, got %d", frame.NumChannels, len(c.PWM.Channels))
		}
	case BackendGPIO:
		if len(c.PWM.Pins) != int(frame.NumChannels) {
			return fmt.Errorf("expect %d PWM pins, got %d", frame.NumChannels, len(c.PWM.Pins))
		}
	default:
		return fmt.Errorf("unknown PWM backend %q", c.PWM.Backend)
	}
	switch c.Indicator.Backend {
	case BackendNone, BackendLog:
	case BackendLED, BackendGPIO:
		if c.Indicator.Name == "" {
			return fmt.Errorf("indicator name must be specified")
		}
	default:
		return fmt.Errorf("unknown indicator backend %q", c.Indicator.Backend)
	}
	return nil
}
