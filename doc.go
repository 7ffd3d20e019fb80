// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package motor is a container for motor driver packages.
//
// Each subdirectory drives one kind of actuator through gpio.PinOut
// outputs: stepper for four coil stepper motors, dcmotor for brushed DC
// motors behind an H-bridge, servo for hobby RC servos.
package motor
