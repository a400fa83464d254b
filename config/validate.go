// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import (
	"github.com/pkg/errors"
	"periph.io/x/hat/v3/oled"
	"periph.io/x/hat/v3/pca9685"
)

// Validate checks configuration correctness.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil")
	}
	h := &cfg.HAT

	// ---- pwm ----
	if !validFrequency(h.PWM.FrequencyHz) {
		return errors.Errorf("pwm: unsupported frequency_hz %d", h.PWM.FrequencyHz)
	}
	seen := map[int]bool{}
	for _, c := range h.PWM.Channels {
		if c.Channel < 0 || c.Channel >= pca9685.NumChannels {
			return errors.Errorf("pwm: channel %d out of range 0~%d", c.Channel, pca9685.NumChannels-1)
		}
		if seen[c.Channel] {
			return errors.Errorf("pwm: channel %d declared twice", c.Channel)
		}
		seen[c.Channel] = true
		m, err := pca9685.ParseMode(c.Mode)
		if err != nil {
			return errors.Wrapf(err, "pwm: channel %d", c.Channel)
		}
		if !validFrequency(c.FrequencyHz) {
			return errors.Errorf("pwm: channel %d: unsupported frequency_hz %d", c.Channel, c.FrequencyHz)
		}
		if c.Initial != nil && m == pca9685.OnOff && *c.Initial < 0 {
			return errors.Errorf("pwm: channel %d: onOff initial must be 0 or 1", c.Channel)
		}
	}

	// ---- battery ----
	b := h.Battery
	if b.ReferenceVoltage < 0 || b.DividerGain < 0 {
		return errors.New("battery: reference_voltage and divider_gain must be positive")
	}
	if b.FilterK < 0 || b.FilterK >= 1 {
		return errors.Errorf("battery: filter_k %g not in (0, 1)", b.FilterK)
	}
	if b.IntervalMs < 0 {
		return errors.Errorf("battery: negative interval_ms %d", b.IntervalMs)
	}

	// ---- display ----
	if d := h.Display; d != nil && (d.Width != 0 || d.Height != 0) {
		if s := (oled.Size{W: d.Width, H: d.Height}); !s.Valid() {
			return errors.Errorf("display: unsupported panel %s", s)
		}
	}

	// ---- gpio ----
	if g := h.GPIO; g != nil {
		if g.DebounceMs < 0 {
			return errors.Errorf("gpio: negative debounce_ms %d", g.DebounceMs)
		}
		if g.Button != "" && g.Button == g.LED {
			return errors.Errorf("gpio: button and led share %s", g.Button)
		}
	}
	return nil
}

func validFrequency(hz int) bool {
	switch hz {
	case 0, 50, 125, 250:
		return true
	}
	return false
}
