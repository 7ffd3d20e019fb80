// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package stepper

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/motor/common"
)

var (
	// ErrInvalidMicrosteps is returned when the configured microstep count
	// is below 2 or odd.
	ErrInvalidMicrosteps = errors.New("microsteps must be an even number of at least 2")

	// ErrFrequency is returned when the configured PWM rate is too slow for
	// microstepping.
	ErrFrequency = errors.New("PWM outputs must run at 1500Hz or faster")

	// ErrInvalidStyle is returned when a style is not usable on this Dev,
	// like Microstep on a Dev from New.
	ErrInvalidStyle = errors.New("unsupported step style")
)

// Direction selects which way the rotor turns on each step.
type Direction int

const (
	// Forward advances the position.
	Forward Direction = iota
	// Backward retreats the position.
	Backward
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	if d == Forward {
		return "forward"
	}
	return "backward"
}

// Style selects how the coils are energized for one step.
type Style int

const (
	// Single energizes one coil at a time. Full step, lowest power.
	Single Style = iota
	// Double energizes two adjacent coils at once. Full step, more torque.
	Double
	// Interleave alternates between Single and Double detents, halving the
	// step angle.
	Interleave
	// Microstep splits current between two adjacent coils along the sine
	// table, moving one microstep at a time. Only usable on a Dev from
	// NewMicrostep.
	Microstep
)

// String implements fmt.Stringer.
func (s Style) String() string {
	switch s {
	case Single:
		return "single"
	case Double:
		return "double"
	case Interleave:
		return "interleave"
	case Microstep:
		return "microstep"
	}
	return fmt.Sprintf("Style(%d)", int(s))
}

const (
	// minFrequency is the slowest PWM rate that keeps coil current ripple
	// inaudible and the torque steady while microstepping.
	minFrequency = 1500 * physic.Hertz
	// defaultFrequency is used when MicrostepOpts.Frequency is zero.
	defaultFrequency = 2 * physic.KiloHertz
	// defaultMicrosteps is used when MicrostepOpts.Microsteps is zero.
	defaultMicrosteps = 16
)

// Coil activation patterns, one bit per output in ain1, ain2, bin1, bin2
// order.
var (
	singleSteps     = []byte{0x2, 0x4, 0x1, 0x8}
	doubleSteps     = []byte{0xa, 0x6, 0x5, 0x9}
	interleaveSteps = []byte{0xa, 0x2, 0x6, 0x4, 0x5, 0x1, 0x9, 0x8}
)

// Dev is a handle to one stepper motor.
//
// Dev keeps an absolute position counter in step (New) or microstep
// (NewMicrostep) units. The counter starts at 0, is never bounded and is
// only changed by OneStep.
//
// Dev is not safe for concurrent use. The caller serializes access and owns
// the four output pins for the lifetime of the Dev.
type Dev struct {
	x        exciter
	position int
}

// exciter is the mode dependent half of Dev: pattern stepping on digital
// pins or sine interpolation on PWM pins.
type exciter interface {
	fmt.Stringer
	// step validates style and returns the position after one step. It does
	// not write to the pins.
	step(position int, dir Direction, style Style) (int, error)
	// update writes the coil excitation for position to the four outputs.
	update(position int, style Style) error
	// off de-energizes the four outputs.
	off() error
}

// New returns a Dev driving the motor with plain digital outputs, using
// whole steps (Single, Double) and half steps (Interleave).
//
// ain1 and ain2 are the two inputs of the first coil, bin1 and bin2 of the
// second; on a unipolar motor they are the four coil wires in that order.
// All coils start de-energized.
func New(ain1, ain2, bin1, bin2 gpio.PinOut) (*Dev, error) {
	d := &Dev{x: &digital{coils: [4]gpio.PinOut{ain1, ain2, bin1, bin2}}}
	if err := d.x.update(0, Single); err != nil {
		return nil, wrap(err)
	}
	return d, nil
}

// MicrostepOpts configures NewMicrostep. The zero value selects defaults.
type MicrostepOpts struct {
	// Microsteps is the number of microsteps between two full steps. Must
	// be even and at least 2. Defaults to 16.
	Microsteps int
	// Frequency is the PWM rate driven on the four outputs. Must be at
	// least 1500Hz. Defaults to 2kHz.
	Frequency physic.Frequency
}

// NewMicrostep returns a Dev driving the motor with PWM outputs, adding
// Microstep to the available styles.
//
// Every call on the returned Dev drives the pins at opts.Frequency; pins
// that cannot sustain that rate fail here, not on a later step. The outputs
// are energized for position 0 before returning, so the rotor holds a known
// detent.
//
// The outputs are driven in ain2, bin1, ain1, bin2 order, not the ain1,
// ain2, bin1, bin2 order of New. The permutation matches how the sine table
// indexes map onto the coil wiring and must not be changed.
func NewMicrostep(ain1, ain2, bin1, bin2 gpio.PinOut, opts *MicrostepOpts) (*Dev, error) {
	microsteps := defaultMicrosteps
	freq := defaultFrequency
	if opts != nil {
		if opts.Microsteps != 0 {
			microsteps = opts.Microsteps
		}
		if opts.Frequency != 0 {
			freq = opts.Frequency
		}
	}
	if microsteps < 2 || microsteps%2 != 0 {
		return nil, wrap(ErrInvalidMicrosteps)
	}
	if freq < minFrequency {
		return nil, wrap(ErrFrequency)
	}
	d := &Dev{x: &microstepped{
		coils:      [4]gpio.PinOut{ain2, bin1, ain1, bin2},
		curve:      microstepCurve(microsteps),
		microsteps: microsteps,
		freq:       freq,
	}}
	if err := d.x.update(0, Single); err != nil {
		return nil, wrap(err)
	}
	return d, nil
}

// OneStep performs one step in the given direction and style and returns
// the new absolute position. The caller sleeps between calls to set the
// step rate.
//
// Single and Double normally move a full step and Interleave a half step.
// When styles are mixed, a position left between half step detents by
// Microstep calls is first moved to the nearest detent in the requested
// direction, and that alignment is the entire move for the call.
//
// A rejected style leaves the position and the outputs unchanged.
func (d *Dev) OneStep(dir Direction, style Style) (int, error) {
	p, err := d.x.step(d.position, dir, style)
	if err != nil {
		return d.position, wrap(err)
	}
	d.position = p
	if err := d.x.update(p, style); err != nil {
		return p, wrap(err)
	}
	return p, nil
}

// Position returns the absolute position counter.
func (d *Dev) Position() int {
	return d.position
}

// Release de-energizes all four coils so the motor spins freely and draws
// no current. The position counter is kept; the next OneStep resumes from
// it.
func (d *Dev) Release() error {
	return wrap(d.x.off())
}

// Halt releases the motor.
//
// Halt implements conn.Resource.
func (d *Dev) Halt() error {
	return d.Release()
}

// String implements conn.Resource.
func (d *Dev) String() string {
	return fmt.Sprintf("stepper.Dev{%s}", d.x)
}

// digital steps through fixed coil activation patterns on digital pins.
type digital struct {
	// coils is in ain1, ain2, bin1, bin2 order.
	coils [4]gpio.PinOut
	// table is the pattern selected by the most recent style. nil until the
	// first step, which leaves every coil off.
	table []byte
}

func (g *digital) step(position int, dir Direction, style Style) (int, error) {
	switch style {
	case Single:
		g.table = singleSteps
	case Double:
		g.table = doubleSteps
	case Interleave:
		g.table = interleaveSteps
	default:
		return position, ErrInvalidStyle
	}
	if dir == Forward {
		return position + 1, nil
	}
	return position - 1, nil
}

func (g *digital) update(position int, style Style) error {
	var pattern byte
	if g.table != nil {
		pattern = g.table[floorMod(position, len(g.table))]
	}
	for i, c := range g.coils {
		if err := c.Out(gpio.Level(pattern>>uint(i)&1 != 0)); err != nil {
			return err
		}
	}
	return nil
}

func (g *digital) off() error {
	for _, c := range g.coils {
		if err := c.Out(gpio.Low); err != nil {
			return err
		}
	}
	return nil
}

func (g *digital) String() string {
	return fmt.Sprintf("%s, %s, %s, %s", g.coils[0], g.coils[1], g.coils[2], g.coils[3])
}

// microstepped interpolates coil current along the sine table on PWM pins.
type microstepped struct {
	// coils is in ain2, bin1, ain1, bin2 order, see NewMicrostep.
	coils      [4]gpio.PinOut
	curve      []uint16
	microsteps int
	freq       physic.Frequency
}

func (m *microstepped) step(position int, dir Direction, style Style) (int, error) {
	switch style {
	case Microstep:
		if dir == Forward {
			return position + 1, nil
		}
		return position - 1, nil
	case Single, Double, Interleave:
	default:
		return position, ErrInvalidStyle
	}
	half := m.microsteps / 2
	// Previous Microstep calls may have left the position between half step
	// detents. Realigning to the nearest one is the whole move for this
	// call.
	if off := floorMod(position, half); off != 0 {
		if dir == Forward {
			return position + half - off, nil
		}
		return position - off, nil
	}
	size := half
	if style != Interleave {
		// Single rests at full step detents, Double at the half steps in
		// between. The style that is out of phase with the current detent
		// moves a half step onto its own grid, after which it moves full
		// steps.
		odd := floorDiv(position, half)%2 != 0
		if (style == Single && !odd) || (style == Double && odd) {
			size = m.microsteps
		}
	}
	if dir == Forward {
		return position + size, nil
	}
	return position - size, nil
}

func (m *microstepped) update(position int, style Style) error {
	var duty [4]uint16
	trailing := floorMod(floorDiv(position, m.microsteps), 4)
	leading := (trailing + 1) % 4
	phase := floorMod(position, m.microsteps)
	duty[leading] = m.curve[phase]
	duty[trailing] = m.curve[m.microsteps-phase]
	// Single, Double and Interleave detents landing exactly on the sine
	// crossover would only get the partial torque of curve value 0xb504.
	// Force both coils to full scale there. True microsteps keep the curve
	// values.
	if style != Microstep && duty[leading] == duty[trailing] && duty[leading] > 0 {
		duty[leading] = 0xFFFF
		duty[trailing] = 0xFFFF
	}
	for i, c := range m.coils {
		if err := c.PWM(common.Duty16(duty[i]), m.freq); err != nil {
			return err
		}
	}
	return nil
}

func (m *microstepped) off() error {
	for _, c := range m.coils {
		if err := c.PWM(0, m.freq); err != nil {
			return err
		}
	}
	return nil
}

func (m *microstepped) String() string {
	return fmt.Sprintf("%s, %s, %s, %s, %d microsteps", m.coils[0], m.coils[1], m.coils[2], m.coils[3], m.microsteps)
}

// floorMod returns the remainder of the floored division a/b for b > 0. The
// result is never negative, so the unbounded position counter indexes
// tables and phases correctly on both sides of zero.
func floorMod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// floorDiv returns the floored quotient a/b, rounding towards negative
// infinity instead of zero.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("stepper: %w", err)
}
