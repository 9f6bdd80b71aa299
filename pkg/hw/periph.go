package hw

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/sysfs"

	"github.com/robotalks/ledchain/pkg/frame"
)

var (
	hostInitOnce sync.Once
	hostInitErr  error
)

func initHost() error {
	hostInitOnce.Do(func() {
		state, err := host.Init()
		if err != nil {
			hostInitErr = fmt.Errorf("periph host init: %v", err)
			return
		}
		for _, failure := range state.Failed {
			glog.V(2).Infof("periph driver %s: %v", failure.D, failure.Err)
		}
	})
	return hostInitErr
}

// PinIndicator is an Indicator driving an output pin, high while a frame is
// being received.
type PinIndicator struct {
	Pin gpio.PinOut
}

// SetStatus implements Indicator.
func (p *PinIndicator) SetStatus(on bool) error {
	return p.Pin.Out(gpio.Level(on))
}

// OpenLED opens a Linux LED class device, e.g. led0 in /sys/class/leds.
func OpenLED(name string) (*PinIndicator, error) {
	if err := initHost(); err != nil {
		return nil, err
	}
	led, err := sysfs.LEDByName(name)
	if err != nil {
		return nil, err
	}
	return &PinIndicator{Pin: led}, nil
}

// OpenPin opens a GPIO pin by name, e.g. GPIO17.
func OpenPin(name string) (*PinIndicator, error) {
	pin, err := lookupPin(name)
	if err != nil {
		return nil, err
	}
	return &PinIndicator{Pin: pin}, nil
}

func lookupPin(name string) (gpio.PinIO, error) {
	if err := initHost(); err != nil {
		return nil, err
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("unknown pin %q", name)
	}
	return pin, nil
}

// PinPWM drives the color channels with PWM capable GPIO pins.
type PinPWM struct {
	Pins      [frame.NumChannels]gpio.PinOut
	Frequency physic.Frequency
}

// NewPinPWM creates a PinPWM with pins for red, green and blue.
func NewPinPWM(pins [frame.NumChannels]gpio.PinOut, period time.Duration) *PinPWM {
	if period <= 0 {
		period = DefaultPWMPeriod
	}
	return &PinPWM{Pins: pins, Frequency: physic.PeriodToFrequency(period)}
}

// OpenPinPWM looks up the pins by name and turns the channels off.
func OpenPinPWM(names []string, period time.Duration) (*PinPWM, error) {
	if len(names) != int(frame.NumChannels) {
		return nil, fmt.Errorf("expect %d pins, got %d", frame.NumChannels, len(names))
	}
	var pins [frame.NumChannels]gpio.PinOut
	for n, name := range names {
		pin, err := lookupPin(name)
		if err != nil {
			return nil, err
		}
		pins[n] = pin
	}
	p := NewPinPWM(pins, period)
	for ch := frame.Red; ch < frame.NumChannels; ch++ {
		if err := p.SetCompare(ch, CompareOff); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Duty converts a compare value to a pin duty cycle.
func Duty(compare byte) gpio.Duty {
	return gpio.Duty(int64(gpio.DutyMax) * int64(compare) / 0xff)
}

// SetCompare implements PWM.
func (p *PinPWM) SetCompare(ch frame.Channel, compare byte) error {
	if ch < 0 || ch >= frame.NumChannels {
		return &ChannelError{Channel: ch}
	}
	return p.Pins[ch].PWM(Duty(compare), p.Frequency)
}

// Close implements io.Closer, halts all pins.
func (p *PinPWM) Close() error {
	var err error
	for _, pin := range p.Pins {
		if e := pin.Halt(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
