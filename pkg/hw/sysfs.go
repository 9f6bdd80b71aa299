package hw

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/ledchain/pkg/frame"
)

// DefaultPWMRoot is the sysfs location of PWM chips.
const DefaultPWMRoot = "/sys/class/pwm"

// DefaultPWMPeriod is about 1kHz, the carrier of the MSP430 nodes.
const DefaultPWMPeriod = time.Millisecond

// SysfsPWM drives the color channels with the Linux PWM class in sysfs.
// periph's sysfs package has no driver for it.
type SysfsPWM struct {
	Root     string
	Chip     int
	Channels [frame.NumChannels]int
	Period   time.Duration
}

// NewSysfsPWM creates a SysfsPWM using channels 0, 1, 2 of a chip.
func NewSysfsPWM(chip int) *SysfsPWM {
	return &SysfsPWM{
		Root:     DefaultPWMRoot,
		Chip:     chip,
		Channels: [frame.NumChannels]int{0, 1, 2},
		Period:   DefaultPWMPeriod,
	}
}

func (p *SysfsPWM) chipDir() string {
	root := p.Root
	if root == "" {
		root = DefaultPWMRoot
	}
	return filepath.Join(root, "pwmchip"+strconv.Itoa(p.Chip))
}

func (p *SysfsPWM) channelDir(ch frame.Channel) string {
	return filepath.Join(p.chipDir(), "pwm"+strconv.Itoa(p.Channels[ch]))
}

func (p *SysfsPWM) period() time.Duration {
	if p.Period <= 0 {
		return DefaultPWMPeriod
	}
	return p.Period
}

// Open exports and enables all channels with the LEDs off.
func (p *SysfsPWM) Open() error {
	for ch := frame.Red; ch < frame.NumChannels; ch++ {
		dir := p.channelDir(ch)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err = writeSysfs(filepath.Join(p.chipDir(), "export"), strconv.Itoa(p.Channels[ch])); err != nil {
				return fmt.Errorf("export %v: %v", ch, err)
			}
		}
		if err := writeSysfs(filepath.Join(dir, "period"), strconv.FormatInt(p.period().Nanoseconds(), 10)); err != nil {
			return fmt.Errorf("set %v period: %v", ch, err)
		}
		if err := p.SetCompare(ch, CompareOff); err != nil {
			return err
		}
		if err := writeSysfs(filepath.Join(dir, "enable"), "1"); err != nil {
			return fmt.Errorf("enable %v: %v", ch, err)
		}
	}
	glog.Infof("PWM %s opened, period %v", p.chipDir(), p.period())
	return nil
}

// SetCompare implements PWM.
func (p *SysfsPWM) SetCompare(ch frame.Channel, compare byte) error {
	if ch < 0 || ch >= frame.NumChannels {
		return &ChannelError{Channel: ch}
	}
	duty := p.period().Nanoseconds() * int64(compare) / 0xff
	return writeSysfs(filepath.Join(p.channelDir(ch), "duty_cycle"), strconv.FormatInt(duty, 10))
}

// Close implements io.Closer, disables and unexports all channels.
func (p *SysfsPWM) Close() error {
	var err error
	for ch := frame.Red; ch < frame.NumChannels; ch++ {
		if e := writeSysfs(filepath.Join(p.channelDir(ch), "enable"), "0"); e != nil && err == nil {
			err = e
		}
		if e := writeSysfs(filepath.Join(p.chipDir(), "unexport"), strconv.Itoa(p.Channels[ch])); e != nil && err == nil {
			err = e
		}
	}
	return err
}

func writeSysfs(path, val string) error {
	return ioutil.WriteFile(path, []byte(val), 0644)
}
