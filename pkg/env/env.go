package env

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/golang/glog"

	fx "github.com/robotalks/ledchain/pkg/framework"
	"github.com/robotalks/ledchain/pkg/frame"
	"github.com/robotalks/ledchain/pkg/hw"
	"github.com/robotalks/ledchain/pkg/node"
	"github.com/robotalks/ledchain/pkg/telemetry"
	"github.com/robotalks/ledchain/pkg/transport"
)

// Env is a node with its transport, hardware backends and telemetry.
type Env struct {
	Config   *Config
	Port     io.ReadWriteCloser
	Node     *node.Node
	Reporter *telemetry.Reporter

	closers []io.Closer
}

// OpenPort opens the serial channel.
var OpenPort = transport.Open

// NewPWM creates the PWM backend.
func (c *Config) NewPWM() (hw.PWM, io.Closer, error) {
	switch c.PWM.Backend {
	case BackendMemory:
		return hw.NewRegisters(), nil, nil
	case BackendSysfs:
		pwm := hw.NewSysfsPWM(c.PWM.Chip)
		pwm.Root, pwm.Period = c.PWM.Root, c.PWM.Period
		copy(pwm.Channels[:], c.PWM.Channels)
		if err := pwm.Open(); err != nil {
			return nil, nil, fmt.Errorf("open PWM: %v", err)
		}
		return pwm, pwm, nil
	case BackendGPIO:
		pwm, err := hw.OpenPinPWM(c.PWM.Pins, c.PWM.Period)
		if err != nil {
			return nil, nil, fmt.Errorf("open PWM pins: %v", err)
		}
		return pwm, pwm, nil
	}
	return nil, nil, fmt.Errorf("unknown PWM backend %q", c.PWM.Backend)
}

// NewIndicator creates the status indicator.
func (c *Config) NewIndicator() (hw.Indicator, error) {
	switch c.Indicator.Backend {
	case BackendNone:
		return hw.NopIndicator{}, nil
	case BackendLog:
		return hw.LogIndicator{}, nil
	case BackendLED, BackendGPIO:
		open := hw.OpenLED
		if c.Indicator.Backend == BackendGPIO {
			open = hw.OpenPin
		}
		ind, err := open(c.Indicator.Name)
		if err != nil {
			return nil, fmt.Errorf("open indicator %s: %v", c.Indicator.Name, err)
		}
		return ind, nil
	}
	return nil, fmt.Errorf("unknown indicator backend %q", c.Indicator.Backend)
}

// NewEnv creates Env from config. The config is expected to be resolved.
func (c *Config) NewEnv() (*Env, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	policy, err := frame.ParseLengthPolicy(c.LengthPolicy)
	if err != nil {
		return nil, err
	}
	env := &Env{Config: c}
	pwm, pwmCloser, err := c.NewPWM()
	if err != nil {
		return nil, err
	}
	if pwmCloser != nil {
		env.closers = append(env.closers, pwmCloser)
	}
	indicator, err := c.NewIndicator()
	if err != nil {
		env.Close()
		return nil, err
	}
	if c.MQTTURL != "" {
		meta := telemetry.Meta{Description: c.Description, Port: c.Port}
		if env.Reporter, err = telemetry.NewReporter(c.MQTTURL, c.ID, meta); err != nil {
			env.Close()
			return nil, fmt.Errorf("create telemetry reporter error: %v", err)
		}
	}
	if env.Port, err = OpenPort(c.Port, c.Baud); err != nil {
		env.Close()
		return nil, fmt.Errorf("open %s: %v", c.Port, err)
	}
	env.closers = append(env.closers, env.Port)

	env.Node = node.New(env.Port, pwm).
		WithLengthPolicy(policy).
		WithForwardTruncated(c.ForwardTruncated)
	env.Node.ID, env.Node.Indicator = c.ID, indicator
	if env.Reporter != nil {
		env.Node.Observer = env.Reporter
	}
	return env, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	env, err := c.NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	return env
}

// Runnables gets what to run in a Runner. The port is closed once the
// runner stops.
func (e *Env) Runnables() []fx.Runnable {
	runnables := []fx.Runnable{e.Node, fx.NamedRun("closer", fx.Closing(e))}
	if e.Reporter != nil {
		runnables = append(runnables, e.Reporter)
	}
	return runnables
}

// Run runs the node until ctx is done or the serial channel fails.
func (e *Env) Run(ctx context.Context) error {
	return fx.NewRunnerWith(ctx).Go(e.Runnables()...).Wait()
}

// Close releases the port and hardware.
func (e *Env) Close() error {
	var errs fx.AggregatedError
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs.Add(e.closers[i].Close())
	}
	e.closers = nil
	if err := errs.Aggregate(); err != nil {
		glog.Warningf("close: %v", err)
		return err
	}
	return nil
}
