// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pca9685

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Mode is the way a channel interprets the values it is given.
type Mode int

// Supported modes.
const (
	Servo90      Mode = iota // angle in [0, 90]
	Servo120                 // angle in [0, 120]
	Servo180                 // angle in [0, 180]
	Servo270                 // angle in [0, 270]
	ForwardMotor             // speed in [0, 100]
	ReverseMotor             // speed in [-100, 100], 0 is stopped
	OnOff                    // 0 is off, anything positive is on
)

type transform uint8

const (
	oneSided transform = iota
	bipolar
	boolean
)

var modes = [...]struct {
	name string
	max  float64
	kind transform
}{
	Servo90:      {"servo90", 90, oneSided},
	Servo120:     {"servo120", 120, oneSided},
	Servo180:     {"servo180", 180, oneSided},
	Servo270:     {"servo270", 270, oneSided},
	ForwardMotor: {"forwardMotor", 100, oneSided},
	ReverseMotor: {"reverseMotor", 100, bipolar},
	OnOff:        {"onOff", 1, boolean},
}

// ParseMode returns the Mode named s. The match is case insensitive.
func ParseMode(s string) (Mode, error) {
	for i := range modes {
		if strings.EqualFold(modes[i].name, s) {
			return Mode(i), nil
		}
	}
	return 0, errors.Errorf("pca9685: unknown mode %q", s)
}

func (m Mode) String() string {
	if !m.valid() {
		return "Mode(" + strconv.Itoa(int(m)) + ")"
	}
	return modes[m].name
}

// Max returns the largest logical value accepted by the mode, 0 for an
// invalid Mode.
func (m Mode) Max() float64 {
	if !m.valid() {
		return 0
	}
	return modes[m].max
}

// Min returns the smallest logical value accepted by the mode.
func (m Mode) Min() float64 {
	if m.valid() && modes[m].kind == bipolar {
		return -modes[m].max
	}
	return 0
}

// Clamp limits v to the mode's domain.
func (m Mode) Clamp(v float64) float64 {
	return math.Max(m.Min(), math.Min(m.Max(), v))
}

// Map converts the logical value v into a tick count within r.
//
// It returns the clamped logical value that was actually mapped. Only OnOff
// can fail on a value, when it is negative.
func (m Mode) Map(v float64, r Range) (float64, uint16, error) {
	if !m.valid() {
		return 0, 0, errors.Wrapf(ErrInvalidMode, "pca9685: %s", m)
	}
	switch modes[m].kind {
	case boolean:
		if v < 0 || math.IsNaN(v) {
			return 0, 0, errors.Wrapf(ErrInvalidValue, "pca9685: %s got %g", m, v)
		}
		if v == 0 {
			return 0, 0, nil
		}
		return 1, FullScale, nil
	case oneSided, bipolar:
		if math.IsNaN(v) {
			v = m.Min()
		}
		v = m.Clamp(v)
		span := m.Max() - m.Min()
		return v, r.at((v - m.Min()) / span), nil
	default:
		panic("unreachable")
	}
}

func (m Mode) valid() bool {
	return m >= 0 && int(m) < len(modes)
}

// Range is the window of ticks a logical domain is mapped onto.
type Range struct {
	Min, Max uint16
}

// at returns the tick at fraction f of the range, truncated toward Min.
func (r Range) at(f float64) uint16 {
	// The epsilon absorbs float error on exact multiples, e.g. 90/90.
	t := math.Floor(float64(r.Min) + f*float64(int(r.Max)-int(r.Min)) + 1e-9)
	return clampTicks(t)
}

func clampTicks(t float64) uint16 {
	if t < 0 {
		return 0
	}
	if t > FullScale {
		return FullScale
	}
	return uint16(t)
}
