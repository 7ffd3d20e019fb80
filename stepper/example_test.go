// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package stepper_test

import (
	"log"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
	"periph.io/x/motor/stepper"
)

func Example() {
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}

	// The four H-bridge inputs.
	ain1 := gpioreg.ByName("GPIO4")
	ain2 := gpioreg.ByName("GPIO17")
	bin1 := gpioreg.ByName("GPIO27")
	bin2 := gpioreg.ByName("GPIO22")

	d, err := stepper.New(ain1, ain2, bin1, bin2)
	if err != nil {
		log.Fatal(err)
	}
	defer d.Release()

	// One full revolution of a 200 step motor at 100 steps per second.
	for i := 0; i < 200; i++ {
		if _, err := d.OneStep(stepper.Forward, stepper.Double); err != nil {
			log.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func Example_microstepping() {
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}

	d, err := stepper.NewMicrostep(
		gpioreg.ByName("GPIO4"),
		gpioreg.ByName("GPIO17"),
		gpioreg.ByName("GPIO27"),
		gpioreg.ByName("GPIO22"),
		&stepper.MicrostepOpts{Microsteps: 32},
	)
	if err != nil {
		log.Fatal(err)
	}
	defer d.Release()

	// Half a full step, one microstep at a time.
	for i := 0; i < 16; i++ {
		if _, err := d.OneStep(stepper.Forward, stepper.Microstep); err != nil {
			log.Fatal(err)
		}
		time.Sleep(2 * time.Millisecond)
	}
}
