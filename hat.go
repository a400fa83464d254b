// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hat

import (
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/hat/v3/config"
	"periph.io/x/hat/v3/mcp3221"
	"periph.io/x/hat/v3/oled"
	"periph.io/x/hat/v3/pca9685"
	"periph.io/x/hat/v3/regbus"
	"periph.io/x/hat/v3/userio"
	"periph.io/x/host/v3"
)

// Board is a HAT brought up from a configuration.
type Board struct {
	Regs *regbus.I2C
	PWM  *pca9685.Chip
	// Channels holds the configured channels by index.
	Channels map[int]*pca9685.Channel
	Battery  *mcp3221.Monitor
	// Display, Button and LED are nil when not configured.
	Display *oled.Display
	Button  *userio.Button
	LED     *userio.LED

	bus    i2c.BusCloser
	logger golog.Logger
}

// Open loads the host drivers, opens the configured I²C bus and brings the
// HAT up. Close releases the bus.
func Open(cfg *config.Config, logger golog.Logger) (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "hat: host")
	}
	bus, err := i2creg.Open(cfg.HAT.Bus)
	if err != nil {
		return nil, errors.Wrapf(err, "hat: i2c bus %q", cfg.HAT.Bus)
	}
	b, err := New(bus, cfg, logger)
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	b.bus = bus
	return b, nil
}

// New brings the HAT up on an already open bus. cfg must have been validated
// and normalized, see config.Load.
func New(bus i2c.Bus, cfg *config.Config, logger golog.Logger) (*Board, error) {
	if logger == nil {
		logger = golog.Global()
	}
	h := cfg.HAT
	regs := regbus.New(bus)
	b := &Board{
		Regs:     regs,
		PWM:      pca9685.Open(regs, &pca9685.Opts{Addr: h.PWM.Address, Logger: logger}),
		Channels: map[int]*pca9685.Channel{},
		logger:   logger,
	}

	for _, c := range h.PWM.Channels {
		mode, err := pca9685.ParseMode(c.Mode)
		if err != nil {
			b.abort()
			return nil, errors.Wrap(err, "hat")
		}
		ch, err := b.PWM.Claim(c.Channel, mode, &pca9685.ChannelOpts{
			Frequency: physic.Frequency(c.FrequencyHz) * physic.Hertz,
			Extended:  c.Extended,
		})
		if err != nil {
			b.abort()
			return nil, errors.Wrap(err, "hat")
		}
		b.Channels[c.Channel] = ch
		if c.Initial != nil {
			if err := ch.SetValue(*c.Initial); err != nil {
				b.abort()
				return nil, errors.Wrap(err, "hat")
			}
		}
	}

	mon, err := mcp3221.NewMonitor(mcp3221.New(regs, h.Battery.Address), &mcp3221.Opts{
		Reference: h.Battery.ReferenceVoltage,
		Gain:      h.Battery.DividerGain,
		K:         h.Battery.FilterK,
		Interval:  time.Duration(h.Battery.IntervalMs) * time.Millisecond,
		Logger:    logger,
	})
	if err != nil {
		b.abort()
		return nil, errors.Wrap(err, "hat")
	}
	b.Battery = mon

	if d := h.Display; d != nil {
		disp, err := oled.Open(bus, oled.Size{W: d.Width, H: d.Height})
		if err != nil {
			b.abort()
			return nil, errors.Wrap(err, "hat")
		}
		b.Display = disp
	}

	if g := h.GPIO; g != nil {
		if err := b.openGPIO(g); err != nil {
			b.abort()
			return nil, errors.Wrap(err, "hat")
		}
	}
	logger.Infow("hat ready", "pwm", b.PWM.String(), "channels", len(b.Channels), "adc", mon.String())
	return b, nil
}

func (b *Board) openGPIO(g *config.GPIOConfig) error {
	bp := gpioreg.ByName(g.Button)
	if bp == nil {
		return errors.Errorf("unknown button pin %q", g.Button)
	}
	lp := gpioreg.ByName(g.LED)
	if lp == nil {
		return errors.Errorf("unknown led pin %q", g.LED)
	}
	btn, err := userio.NewButton(bp, time.Duration(g.DebounceMs)*time.Millisecond)
	if err != nil {
		return err
	}
	led, err := userio.NewLED(lp)
	if err != nil {
		return err
	}
	b.Button = btn
	b.LED = led
	return nil
}

// Close stops the battery monitor, turns the outputs off and releases the
// bus when it was opened by Open.
func (b *Board) Close() error {
	b.Battery.Stop()
	var errs []error
	if err := b.PWM.Halt(); err != nil {
		errs = append(errs, err)
	}
	if b.Display != nil {
		if err := b.Display.Halt(); err != nil {
			errs = append(errs, err)
		}
	}
	if b.Button != nil {
		if err := b.Button.Halt(); err != nil {
			errs = append(errs, err)
		}
	}
	if b.LED != nil {
		if err := b.LED.Halt(); err != nil {
			errs = append(errs, err)
		}
	}
	b.release()
	if err := b.PWM.Close(); err != nil {
		errs = append(errs, err)
	}
	if b.bus != nil {
		if err := b.bus.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) != 0 {
		b.logger.Warnw("hat close", "errors", errs)
		return errors.Wrapf(errs[0], "hat: close (%d errors)", len(errs))
	}
	return nil
}

// abort undoes a partial New.
func (b *Board) abort() {
	b.release()
	_ = b.PWM.Close()
}

// release returns the claimed channels to the chip, which is shared by the
// process.
func (b *Board) release() {
	for i, ch := range b.Channels {
		ch.Release()
		delete(b.Channels, i)
	}
}
