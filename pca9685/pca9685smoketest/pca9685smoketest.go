// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pca9685smoketest verifies that a PCA9685 on a live bus is working
// as expected.
package pca9685smoketest

import (
	"flag"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/hat/v3/pca9685"
	"periph.io/x/hat/v3/regbus"
	"periph.io/x/host/v3"
)

// SmokeTest is imported by rpipwm.
type SmokeTest struct {
	// Bus, when set, is used instead of opening one from the -bus flag.
	Bus i2c.Bus
	// Step is the pause between two positions. 0 means 20ms.
	Step time.Duration
}

// Name implements the SmokeTest interface.
func (s *SmokeTest) Name() string {
	return "pca9685"
}

// Description implements the SmokeTest interface.
func (s *SmokeTest) Description() string {
	return "Sweeps one PCA9685 channel and reads back the pulse width"
}

// Run implements the SmokeTest interface.
func (s *SmokeTest) Run(f *flag.FlagSet, args []string) (err error) {
	busName := f.String("bus", "", "I²C bus to use")
	index := f.Int("channel", 0, "channel to sweep, 0~15")
	modeName := f.String("mode", pca9685.Servo180.String(), "channel mode")
	hz := f.Int("freq", 50, "PWM frequency in Hz; 50, 125 or 250")
	if err := f.Parse(args); err != nil {
		return err
	}
	if f.NArg() != 0 {
		f.Usage()
		return errors.New("unrecognized arguments")
	}
	mode, err := pca9685.ParseMode(*modeName)
	if err != nil {
		return err
	}

	bus := s.Bus
	if bus == nil {
		if _, err := host.Init(); err != nil {
			return err
		}
		b, err := i2creg.Open(*busName)
		if err != nil {
			return err
		}
		defer func() {
			if err2 := b.Close(); err == nil {
				err = err2
			}
		}()
		bus = b
	}

	c := pca9685.NewChip(regbus.New(bus), nil)
	ch, err := c.Claim(*index, mode, &pca9685.ChannelOpts{Frequency: physic.Frequency(*hz) * physic.Hertz})
	if err != nil {
		return err
	}
	defer ch.Release()
	defer func() {
		if err2 := c.Halt(); err == nil {
			err = err2
		}
	}()
	fmt.Printf("  %s at %s\n", ch, ch.Frequency())
	return s.sweep(ch)
}

// sweep walks the channel across its range and checks that every written
// position reads back within one tick.
func (s *SmokeTest) sweep(ch *pca9685.Channel) error {
	step := s.Step
	if step == 0 {
		step = 20 * time.Millisecond
	}
	m := ch.Mode()
	lo, hi := m.Min(), m.Max()
	n := 10
	if m == pca9685.OnOff {
		n = 1
	}
	l := ch.Limits()
	tick := time.Millisecond / time.Duration(l.Min)
	for i := 0; i <= n; i++ {
		v := lo + (hi-lo)*float64(i)/float64(n)
		if err := ch.SetValue(v); err != nil {
			return err
		}
		got, err := ch.PulseWidth()
		if err != nil {
			return err
		}
		want, err := expected(ch, v)
		if err != nil {
			return err
		}
		if d := got - want; d > tick || d < -tick {
			return fmt.Errorf("%s: value %g read back as %s, expected %s", ch, v, got, want)
		}
		fmt.Printf("    %8.2f -> %s\n", v, got)
		time.Sleep(step)
	}
	return nil
}

// expected returns the pulse width the channel should produce for v.
func expected(ch *pca9685.Channel, v float64) (time.Duration, error) {
	_, ticks, err := ch.Mode().Map(v, ch.Limits().Range(ch.Extended()))
	if err != nil {
		return 0, err
	}
	if ticks == 0 {
		return 0, nil
	}
	return time.Duration(ticks) * time.Millisecond / time.Duration(ch.Limits().Min), nil
}
