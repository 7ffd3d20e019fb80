// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package stepper drives a bipolar stepper motor, or a four coil unipolar
// stepper motor, through the four inputs of a dual H-bridge or darlington
// array such as the L293D, DRV8833, TB6612 or ULN2003.
//
// Two drive modes are available. New binds plain digital outputs and steps
// the motor with fixed coil activation patterns, giving whole steps
// (Single, Double) and half steps (Interleave). NewMicrostep binds PWM
// capable outputs and additionally interpolates coil current along a
// quarter sine table, subdividing each full step into a configurable number
// of microsteps for smoother torque and finer positioning.
//
// The driver is purely sequential: OneStep computes and writes one coil
// excitation and returns. The caller sets the step rate by sleeping between
// calls, and provides any locking if several goroutines share one Dev.
//
// # Datasheet
//
// https://www.ti.com/lit/ds/symlink/drv8833.pdf
//
// https://toshiba.semicon-storage.com/info/TB6612FNG_datasheet_en_20141001.pdf
package stepper
