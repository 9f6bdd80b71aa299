package hw

import (
	"sync/atomic"

	"github.com/golang/glog"
)

// Indicator shows whether a frame is being received.
type Indicator interface {
	SetStatus(on bool) error
}

// SetStatusFunc is func form of Indicator.
type SetStatusFunc func(bool) error

// SetStatus implements Indicator.
func (f SetStatusFunc) SetStatus(on bool) error {
	return f(on)
}

// Flag is an in-memory Indicator.
type Flag struct {
	on int32
}

// SetStatus implements Indicator.
func (f *Flag) SetStatus(on bool) error {
	var val int32
	if on {
		val = 1
	}
	atomic.StoreInt32(&f.on, val)
	return nil
}

// On gets the current status.
func (f *Flag) On() bool {
	return atomic.LoadInt32(&f.on) != 0
}

// LogIndicator logs status changes.
type LogIndicator struct{}

// SetStatus implements Indicator.
func (LogIndicator) SetStatus(on bool) error {
	if on {
		glog.V(2).Info("status: receiving")
	} else {
		glog.V(2).Info("status: idle")
	}
	return nil
}

// NopIndicator discards status changes.
type NopIndicator struct{}

// SetStatus implements Indicator.
func (NopIndicator) SetStatus(bool) error { return nil }
