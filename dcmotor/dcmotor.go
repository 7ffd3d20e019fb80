// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package dcmotor drives a brushed DC motor through the two inputs of an
// H-bridge driver such as the DRV8833, DRV8871, TB6612, L9110H or L293D.
//
// # Datasheet
//
// https://www.ti.com/lit/ds/symlink/drv8871.pdf
package dcmotor

import (
	"errors"
	"fmt"
	"math"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/motor/common"
)

var (
	// ErrInvalidThrottle is returned for throttle values outside [-1, 1].
	ErrInvalidThrottle = errors.New("throttle must be between -1.0 and +1.0")

	// ErrInvalidDecayMode is returned for an unknown DecayMode value.
	ErrInvalidDecayMode = errors.New("invalid decay mode")
)

// DecayMode selects how the motor recirculation current decays during the
// off phase of the PWM cycle.
//
// Decay mode only changes the operational performance of controller chips
// such as the DRV8833, DRV8871 and TB6612. Discrete H-bridges like the
// L9110H and L293D behave the same either way.
type DecayMode int

const (
	// FastDecay lets the motor coast during the off phase. Default.
	FastDecay DecayMode = iota
	// SlowDecay brakes during the off phase. Recommended: it improves the
	// spin threshold, speed to throttle linearity and PWM frequency
	// sensitivity.
	SlowDecay
)

// String implements fmt.Stringer.
func (m DecayMode) String() string {
	if m == SlowDecay {
		return "slow decay"
	}
	return "fast decay"
}

// defaultFrequency is the conventional motor shield PWM rate, fast enough
// to be inaudible on most small motors.
const defaultFrequency = 1600 * physic.Hertz

// Opts configures New. The zero value selects defaults.
type Opts struct {
	// Frequency is the PWM rate driven on both outputs. Defaults to 1.6kHz.
	Frequency physic.Frequency
}

// Dev is a handle to one DC motor behind an H-bridge.
//
// Dev is not safe for concurrent use; the caller serializes access and owns
// both output pins for the lifetime of the Dev.
type Dev struct {
	positive gpio.PinOut
	negative gpio.PinOut
	freq     physic.Frequency
	decay    DecayMode
	throttle float64
	powered  bool
}

// New returns a Dev driving the motor through positive and negative, the
// two H-bridge inputs that spin the motor forwards respectively backwards
// when driven alone. Swap the two pins if the motor runs opposite to what
// "forwards" should mean.
//
// The controller starts switched off; pins that cannot sustain
// opts.Frequency fail here.
func New(positive, negative gpio.PinOut, opts *Opts) (*Dev, error) {
	freq := defaultFrequency
	if opts != nil && opts.Frequency != 0 {
		freq = opts.Frequency
	}
	d := &Dev{positive: positive, negative: negative, freq: freq}
	if err := d.Stop(); err != nil {
		return nil, err
	}
	return d, nil
}

// SetThrottle sets the motor speed, from -1 (full speed reverse) through +1
// (full speed forward). A throttle of exactly 0 actively brakes the motor;
// use Stop to switch the controller off and let the motor spin freely.
func (d *Dev) SetThrottle(v float64) error {
	if v < -1.0 || v > 1.0 {
		return wrap(ErrInvalidThrottle)
	}
	if err := d.apply(v); err != nil {
		return err
	}
	d.throttle = v
	d.powered = true
	return nil
}

// Throttle returns the current throttle. ok is false when the controller is
// off, before the first SetThrottle or after Stop.
func (d *Dev) Throttle() (float64, bool) {
	return d.throttle, d.powered
}

// Stop switches the controller off: both outputs stop driving, the bridge
// goes high impedance and the motor coasts. Distinct from SetThrottle(0),
// which brakes.
func (d *Dev) Stop() error {
	if err := d.positive.PWM(0, d.freq); err != nil {
		return wrap(err)
	}
	if err := d.negative.PWM(0, d.freq); err != nil {
		return wrap(err)
	}
	d.throttle = 0
	d.powered = false
	return nil
}

// SetDecayMode selects the recirculation current decay mode. When the motor
// is running, the current throttle is reapplied so the new duty split takes
// effect immediately.
func (d *Dev) SetDecayMode(m DecayMode) error {
	if m != FastDecay && m != SlowDecay {
		return wrap(ErrInvalidDecayMode)
	}
	d.decay = m
	if d.powered {
		return d.apply(d.throttle)
	}
	return nil
}

// DecayMode returns the active decay mode.
func (d *Dev) DecayMode() DecayMode {
	return d.decay
}

// Halt switches the controller off.
//
// Halt implements conn.Resource.
func (d *Dev) Halt() error {
	return d.Stop()
}

// String implements conn.Resource.
func (d *Dev) String() string {
	return fmt.Sprintf("dcmotor.Dev{%s, %s}", d.positive, d.negative)
}

// apply writes the duty split for throttle v without recording it.
func (d *Dev) apply(v float64) error {
	var pos, neg uint16
	duty := uint16(0xFFFF * math.Abs(v))
	switch {
	case v == 0:
		// Brake: both sides driven.
		pos, neg = 0xFFFF, 0xFFFF
	case d.decay == SlowDecay:
		// The active side stays on and the complement is modulated on the
		// other side.
		if v < 0 {
			pos, neg = 0xFFFF-duty, 0xFFFF
		} else {
			pos, neg = 0xFFFF, 0xFFFF-duty
		}
	default:
		if v < 0 {
			pos, neg = 0, duty
		} else {
			pos, neg = duty, 0
		}
	}
	if err := d.positive.PWM(common.Duty16(pos), d.freq); err != nil {
		return wrap(err)
	}
	if err := d.negative.PWM(common.Duty16(neg), d.freq); err != nil {
		return wrap(err)
	}
	return nil
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("dcmotor: %w", err)
}
