// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import (
	"periph.io/x/conn/v3/physic"
	"periph.io/x/hat/v3/mcp3221"
	"periph.io/x/hat/v3/oled"
	"periph.io/x/hat/v3/pca9685"
	"periph.io/x/hat/v3/userio"
)

// Normalize fills in defaults.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	h := &cfg.HAT

	if h.PWM.Address == 0 {
		h.PWM.Address = pca9685.I2CAddr
	}
	if h.PWM.FrequencyHz == 0 {
		h.PWM.FrequencyHz = int(pca9685.DefaultFrequency / physic.Hertz)
	}
	for i := range h.PWM.Channels {
		c := &h.PWM.Channels[i]
		if c.FrequencyHz == 0 {
			c.FrequencyHz = h.PWM.FrequencyHz
		}
	}

	b := &h.Battery
	if b.Address == 0 {
		b.Address = mcp3221.I2CAddr
	}
	if b.ReferenceVoltage == 0 {
		b.ReferenceVoltage = mcp3221.DefaultOpts.Reference
	}
	if b.DividerGain == 0 {
		b.DividerGain = mcp3221.DefaultOpts.Gain
	}
	if b.FilterK == 0 {
		b.FilterK = mcp3221.DefaultOpts.K
	}
	if b.IntervalMs == 0 {
		b.IntervalMs = int(mcp3221.DefaultOpts.Interval.Milliseconds())
	}

	if d := h.Display; d != nil && d.Width == 0 && d.Height == 0 {
		d.Width = oled.Size128x64.W
		d.Height = oled.Size128x64.H
	}

	if g := h.GPIO; g != nil {
		if g.Button == "" {
			g.Button = userio.ButtonPin
		}
		if g.LED == "" {
			g.LED = userio.LEDPin
		}
		if g.DebounceMs == 0 {
			g.DebounceMs = int(userio.DefaultDebounce.Milliseconds())
		}
	}
}
