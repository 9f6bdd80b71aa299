package env

import (
	"context"
	"flag"
	"io"
	"io/ioutil"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/ledchain/pkg/frame"
)

func testConfig() *Config {
	conf := NewConfig()
	conf.ID = "test"
	conf.Port = "pipe"
	conf.Indicator.Backend = BackendNone
	return conf
}

func TestChannelsFlag(t *testing.T) {
	var chs Channels
	require.NoError(t, chs.Set("3, 4,5"))
	require.Equal(t, Channels{3, 4, 5}, chs)
	require.Equal(t, "3,4,5", chs.String())
	require.Error(t, chs.Set("1,x"))
}

func TestNamesFlag(t *testing.T) {
	var names Names
	require.NoError(t, names.Set("GPIO12, GPIO13,GPIO18"))
	require.Equal(t, Names{"GPIO12", "GPIO13", "GPIO18"}, names)
	require.Equal(t, "GPIO12,GPIO13,GPIO18", names.String())
	require.Error(t, names.Set("GPIO12,,GPIO18"))
}

func TestValidate(t *testing.T) {
	require.NoError(t, testConfig().Validate())

	testCases := []func(*Config){
		func(c *Config) { c.ID = "" },
		func(c *Config) { c.Port = "" },
		func(c *Config) { c.LengthPolicy = "bounce" },
		func(c *Config) { c.PWM.Backend = "gpio" },
		func(c *Config) { c.PWM.Backend, c.PWM.Channels = BackendSysfs, Channels{0, 1} },
		func(c *Config) { c.PWM.Backend, c.PWM.Pins = BackendGPIO, Names{"GPIO12"} },
		func(c *Config) { c.Indicator.Backend = BackendLED },
		func(c *Config) { c.Indicator.Backend = BackendGPIO },
		func(c *Config) { c.Indicator.Backend = BackendSysfs },
		func(c *Config) { c.Indicator.Backend = "beeper" },
	}
	for n, modify := range testCases {
		conf := testConfig()
		modify(conf)
		require.Errorf(t, conf.Validate(), "case %d", n)
	}
}

func writeConfigFile(t *testing.T, content string) (string, func()) {
	dir, err := ioutil.TempDir("", "ledchain-env")
	require.NoError(t, err)
	fn := filepath.Join(dir, "ledchain.yaml")
	require.NoError(t, ioutil.WriteFile(fn, []byte(content), 0644))
	return fn, func() { os.RemoveAll(dir) }
}

func TestResolveConfigFile(t *testing.T) {
	fn, cleanup := writeConfigFile(t, `
id: from-file
port: tcp://localhost:7000
length-policy: saturate
pwm:
  backend: sysfs
  chip: 2
  channels: [3, 4, 5]
  period: 2ms
indicator:
  backend: led
  name: status
forward-truncated: true
`)
	defer cleanup()

	conf := testConfig()
	conf.ID = ""
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	RegisterFlags(fs, conf)
	require.NoError(t, fs.Parse([]string{"-config", fn, "-port", "ws://localhost:8080/chain", "-pwm-channels", "6,7,8"}))
	require.NoError(t, conf.Resolve(fs))

	require.Equal(t, "from-file", conf.ID)
	require.Equal(t, "ws://localhost:8080/chain", conf.Port)
	require.Equal(t, "saturate", conf.LengthPolicy)
	require.Equal(t, BackendSysfs, conf.PWM.Backend)
	require.Equal(t, 2, conf.PWM.Chip)
	require.Equal(t, Channels{6, 7, 8}, conf.PWM.Channels)
	require.Equal(t, 2*time.Millisecond, conf.PWM.Period)
	require.Equal(t, BackendLED, conf.Indicator.Backend)
	require.Equal(t, "status", conf.Indicator.Name)
	require.True(t, conf.ForwardTruncated)
}

func TestResolveRejectsUnknownKeys(t *testing.T) {
	fn, cleanup := writeConfigFile(t, "colour: red\n")
	defer cleanup()
	conf := testConfig()
	conf.File = fn
	require.Error(t, conf.Resolve(nil))
}

func TestNewConfigCopiesChannels(t *testing.T) {
	conf := NewConfig()
	conf.PWM.Channels[0] = 9
	require.Equal(t, 0, Default().PWM.Channels[0])
}

func TestEnvRun(t *testing.T) {
	upstream, port := net.Pipe()
	defer upstream.Close()
	defer func(open func(string, int) (io.ReadWriteCloser, error)) {
		OpenPort = open
	}(OpenPort)
	OpenPort = func(string, int) (io.ReadWriteCloser, error) { return port, nil }

	env, err := testConfig().NewEnv()
	require.NoError(t, err)
	require.Nil(t, env.Reporter)
	require.Len(t, env.Runnables(), 2)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- env.Run(ctx) }()

	go upstream.Write([]byte{0x05, 0x10, 0x20, 0x30, frame.Terminator})
	buf := make([]byte, 2)
	upstream.SetReadDeadline(time.Now().Add(time.Second))
	_, err = io.ReadFull(upstream, buf)
	require.NoError(t, err)
	require.Equal(t, []byte{0x02, frame.Terminator}, buf)
	require.Equal(t, frame.Color{Red: 0x10, Green: 0x20, Blue: 0x30}, env.Node.Color())

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("env not stopped")
	}
}

func TestEnvOpenPortError(t *testing.T) {
	conf := testConfig()
	conf.Port = "bogus://x"
	_, err := conf.NewEnv()
	require.Error(t, err)
}

func TestEnvForwardTruncated(t *testing.T) {
	upstream, port := net.Pipe()
	defer upstream.Close()
	defer func(open func(string, int) (io.ReadWriteCloser, error)) {
		OpenPort = open
	}(OpenPort)
	OpenPort = func(string, int) (io.ReadWriteCloser, error) { return port, nil }

	conf := testConfig()
	conf.ForwardTruncated = true
	env, err := conf.NewEnv()
	require.NoError(t, err)
	defer env.Close()

	readCh := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 2)
		upstream.SetReadDeadline(time.Now().Add(time.Second))
		n, _ := io.ReadFull(upstream, buf)
		readCh <- buf[:n]
	}()
	for _, b := range []byte{0x09, 0x20, frame.Terminator} {
		require.NoError(t, env.Node.HandleByte(context.Background(), b))
	}
	require.Equal(t, []byte{0x06, frame.Terminator}, <-readCh)
}
