// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package stepper

import "math"

// microstepCurve returns the first quarter period of a sine wave as
// microsteps+1 16 bit intensities, from curve[0] == 0 up to
// curve[microsteps] == 0xFFFF.
//
// Coil torque is proportional to the sine of the rotor phase offset, so
// driving the leading coil with curve[phase] and the trailing coil with
// curve[microsteps-phase] rotates the current vector at constant magnitude.
// One quarter period covers all four coils by symmetry.
func microstepCurve(microsteps int) []uint16 {
	curve := make([]uint16, microsteps+1)
	for i := range curve {
		curve[i] = uint16(math.Round(0xFFFF * math.Sin(math.Pi/(2*float64(microsteps))*float64(i))))
	}
	return curve
}
