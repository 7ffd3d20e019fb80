// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package servo drives hobby RC servos with a standard 50Hz pulse train,
// mapping an angle within the servo's actuation range to a pulse width
// between a configurable minimum and maximum.
package servo

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/motor/common"
)

var (
	// ErrOutOfRange is returned for a fraction outside [0, 1] or an angle
	// outside [0, ActuationRange].
	ErrOutOfRange = errors.New("value out of range")

	// ErrPulseWidthRange is returned for a negative or inverted pulse width
	// range.
	ErrPulseWidthRange = errors.New("invalid pulse width range")
)

const (
	// defaultFrequency is the pulse repetition rate nearly all analog
	// servos expect.
	defaultFrequency = 50 * physic.Hertz
	// defaultMinPulse and defaultMaxPulse give roughly 135° of motion on
	// most modern servos. The historical convention is 1000µs-2000µs for
	// 90°, but current servos reach 170-180° with widths well outside that
	// window.
	defaultMinPulse = 750 * time.Microsecond
	defaultMaxPulse = 2250 * time.Microsecond
	// defaultActuationRange is the angle swept between defaultMinPulse and
	// defaultMaxPulse.
	defaultActuationRange = 180
)

// Opts configures New. The zero value selects defaults.
type Opts struct {
	// ActuationRange is the physical range of motion in degrees obtained
	// between MinPulse and MaxPulse. Calibrate it to the motion actually
	// observed. Defaults to 180.
	ActuationRange float64
	// MinPulse and MaxPulse bound the pulse width. Pushing them out widens
	// the motion but can run the mechanism into its end stops, buzzing and
	// stalling; find the safe limits carefully. Default 750µs and 2250µs.
	MinPulse time.Duration
	MaxPulse time.Duration
	// Frequency is the pulse repetition rate. Defaults to 50Hz.
	Frequency physic.Frequency
}

// pulser converts a position expressed as a fraction of [0, 1] into a pulse
// of the matching width within the configured window. It is the shared
// lower half of the fraction and angle APIs.
type pulser struct {
	pin     gpio.PinOut
	freq    physic.Frequency
	minDuty gpio.Duty
	span    gpio.Duty
}

func (p *pulser) setPulseWidthRange(min, max time.Duration) error {
	if min < 0 || max <= min {
		return ErrPulseWidthRange
	}
	minDuty := common.PulseDuty(min, p.freq)
	p.span = common.PulseDuty(max, p.freq) - minDuty
	p.minDuty = minDuty
	return nil
}

func (p *pulser) set(f float64) error {
	return p.pin.PWM(p.minDuty+gpio.Duty(f*float64(p.span)), p.freq)
}

// disable stops pulsing entirely, which most servos take as a signal to
// stop holding their position.
func (p *pulser) disable() error {
	return p.pin.PWM(0, p.freq)
}

// Servo is a handle to one positional servo.
//
// Servo is not safe for concurrent use; the caller serializes access and
// owns the output pin for the lifetime of the Servo.
type Servo struct {
	p              pulser
	actuationRange float64
	fraction       float64
	enabled        bool
}

// New returns a Servo on the given PWM capable pin. The servo starts
// disabled: no pulses are sent until the first SetFraction or SetAngle.
func New(pin gpio.PinOut, opts *Opts) (*Servo, error) {
	rng := float64(defaultActuationRange)
	min := defaultMinPulse
	max := defaultMaxPulse
	freq := defaultFrequency
	if opts != nil {
		if opts.ActuationRange != 0 {
			rng = opts.ActuationRange
		}
		if opts.MinPulse != 0 {
			min = opts.MinPulse
		}
		if opts.MaxPulse != 0 {
			max = opts.MaxPulse
		}
		if opts.Frequency != 0 {
			freq = opts.Frequency
		}
	}
	s := &Servo{p: pulser{pin: pin, freq: freq}, actuationRange: rng}
	if err := s.p.setPulseWidthRange(min, max); err != nil {
		return nil, wrap(err)
	}
	if err := s.p.disable(); err != nil {
		return nil, wrap(err)
	}
	return s, nil
}

// SetFraction positions the servo between its minimum (0.0) and maximum
// (1.0) pulse widths.
func (s *Servo) SetFraction(f float64) error {
	if f < 0 || f > 1 {
		return wrap(ErrOutOfRange)
	}
	if err := s.p.set(f); err != nil {
		return wrap(err)
	}
	s.fraction = f
	s.enabled = true
	return nil
}

// Fraction returns the last fraction set. ok is false while the servo is
// disabled.
func (s *Servo) Fraction() (float64, bool) {
	return s.fraction, s.enabled
}

// SetAngle positions the servo at angle degrees, between 0 and the
// actuation range.
func (s *Servo) SetAngle(angle float64) error {
	if angle < 0 || angle > s.actuationRange {
		return wrap(ErrOutOfRange)
	}
	return s.SetFraction(angle / s.actuationRange)
}

// Angle returns the last angle set, scaled by the actuation range. ok is
// false while the servo is disabled.
func (s *Servo) Angle() (float64, bool) {
	return s.fraction * s.actuationRange, s.enabled
}

// ActuationRange returns the configured range of motion in degrees.
func (s *Servo) ActuationRange() float64 {
	return s.actuationRange
}

// SetPulseWidthRange recalibrates the pulse width window for non standard
// servos. A servo that is currently enabled is repositioned within the new
// window.
func (s *Servo) SetPulseWidthRange(min, max time.Duration) error {
	if err := s.p.setPulseWidthRange(min, max); err != nil {
		return wrap(err)
	}
	if s.enabled {
		return wrap(s.p.set(s.fraction))
	}
	return nil
}

// Disable stops the pulse train. The servo stops holding its position and
// Fraction and Angle report no value until the next set.
func (s *Servo) Disable() error {
	if err := s.p.disable(); err != nil {
		return wrap(err)
	}
	s.fraction = 0
	s.enabled = false
	return nil
}

// Halt disables the servo.
//
// Halt implements conn.Resource.
func (s *Servo) Halt() error {
	return s.Disable()
}

// String implements conn.Resource.
func (s *Servo) String() string {
	return fmt.Sprintf("servo.Servo{%s}", s.p.pin)
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("servo: %w", err)
}
