// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains functions used across multiple packages. For
// example, duty cycle conversions.
package common

import (
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Duty16 rescales a 16 bit duty cycle, 0 for fully off through 0xFFFF for
// fully on, to the gpio.Duty range. Motor driver chips are conventionally
// specified against 16 bit PWM resolution.
func Duty16(v uint16) gpio.Duty {
	return gpio.Duty(int64(v) * int64(gpio.DutyMax) / 0xFFFF)
}

// PulseDuty returns the duty cycle that drives a pulse of width p on every
// period of a PWM output running at f. Pulses wider than the period saturate
// at gpio.DutyMax.
func PulseDuty(p time.Duration, f physic.Frequency) gpio.Duty {
	d := gpio.Duty(int64(gpio.DutyMax) * int64(p) / int64(f.Period()))
	if d > gpio.DutyMax {
		return gpio.DutyMax
	}
	return d
}
