// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pca9685

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/physic"
)

// Limits are the tick bounds of a pulse at a given carrier frequency.
//
// One standard pulse unit is Min ticks: 1ms at 50Hz. Standard pulses span 1~2
// units, extended pulses 0.5~2.5.
type Limits struct {
	Min, Max         uint16
	WideMin, WideMax uint16
}

// LimitsFor returns the tick bounds at f.
func LimitsFor(f physic.Frequency) Limits {
	unit := uint16(Period * int64(f/physic.Hertz) / 1000)
	wide := unit / 2
	return Limits{
		Min:     unit,
		Max:     2 * unit,
		WideMin: wide,
		WideMax: 5 * wide,
	}
}

// Range returns the standard or extended window.
func (l Limits) Range(extended bool) Range {
	if extended {
		return Range{Min: l.WideMin, Max: l.WideMax}
	}
	return Range{Min: l.Min, Max: l.Max}
}

// Channel is one claimed output of a Chip.
//
// Successive calls on a Channel reach the chip in call order.
type Channel struct {
	chip     *Chip
	index    int
	mode     Mode
	freq     physic.Frequency
	extended bool
	limits   Limits

	mu       sync.Mutex
	value    float64
	released bool
}

func (ch *Channel) String() string {
	return fmt.Sprintf("%s/%d(%s)", ch.chip, ch.index, ch.mode)
}

// Index returns the output number, 0~15.
func (ch *Channel) Index() int {
	return ch.index
}

// Mode returns the mode the channel was claimed with.
func (ch *Channel) Mode() Mode {
	return ch.mode
}

// Frequency returns the carrier frequency the channel runs at. It is the
// chip's frequency even if the claim asked for another one.
func (ch *Channel) Frequency() physic.Frequency {
	return ch.freq
}

// Extended reports whether the channel maps onto the extended pulse range.
func (ch *Channel) Extended() bool {
	return ch.extended
}

// Limits returns the tick bounds at the channel's frequency.
func (ch *Channel) Limits() Limits {
	return ch.limits
}

// Value returns the last value accepted by SetValue, after clamping. It is
// what was commanded, not read back from the chip.
func (ch *Channel) Value() float64 {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.value
}

// SetValue drives the output to the logical value v.
//
// The domain depends on the mode, see Mode. Out of range values are clamped.
// OnOff returns ErrInvalidValue on negative values.
func (ch *Channel) SetValue(v float64) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.released {
		return ch.notInitialized()
	}
	clamped, ticks, err := ch.mode.Map(v, ch.limits.Range(ch.extended))
	if err != nil {
		return err
	}
	if err := ch.writeTicks(ticks); err != nil {
		return err
	}
	ch.value = clamped
	return nil
}

// SetOn drives an OnOff output fully high or low.
func (ch *Channel) SetOn(on bool) error {
	if ch.mode != OnOff {
		return errors.Errorf("pca9685: SetOn on %s channel %d", ch.mode, ch.index)
	}
	if on {
		return ch.SetValue(1)
	}
	return ch.SetValue(0)
}

// SetPulseWidth drives a pulse of duration d, clamped to one carrier period.
//
// It bypasses the mode and doesn't change Value.
func (ch *Channel) SetPulseWidth(d time.Duration) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.released {
		return ch.notInitialized()
	}
	if p := ch.freq.Period(); d > p {
		d = p
	}
	if d < 0 {
		d = 0
	}
	ms := float64(d) / float64(time.Millisecond)
	return ch.writeTicks(clampTicks(math.Round(ms * float64(ch.limits.Min))))
}

// PulseWidth reads the pulse width currently programmed in the chip.
func (ch *Channel) PulseWidth() (time.Duration, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.released {
		return 0, ch.notInitialized()
	}
	b, err := ch.chip.bus.ReadBlock(ch.chip.addr, led0OffL+4*byte(ch.index), 2)
	if err != nil {
		return 0, errors.Wrapf(err, "pca9685: read channel %d", ch.index)
	}
	if b[1]&fullOff != 0 {
		return 0, nil
	}
	ticks := int64(b[0]) | int64(b[1]&0x0F)<<8
	return time.Duration(ticks) * time.Millisecond / time.Duration(ch.limits.Min), nil
}

// Release returns the channel to its Chip. The Channel can't be used
// afterward; the output keeps its last pulse.
func (ch *Channel) Release() {
	ch.mu.Lock()
	ch.released = true
	ch.mu.Unlock()
	ch.chip.release(ch)
}

// writeTicks programs the channel with its on edge at tick 0, so every
// channel shares the same phase.
//
// Must be called with mu held.
func (ch *Channel) writeTicks(t uint16) error {
	if t > FullScale {
		t = FullScale
	}
	buf := [4]byte{0, 0, byte(t), byte(t >> 8)}
	if err := ch.chip.bus.WriteRegs(ch.chip.addr, led0OnL+4*byte(ch.index), buf[:]); err != nil {
		return errors.Wrapf(err, "pca9685: write channel %d", ch.index)
	}
	return nil
}

func (ch *Channel) notInitialized() error {
	return errors.Wrapf(ErrChannelNotInitialized, "pca9685: channel %d released", ch.index)
}
